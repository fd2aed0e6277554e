package domain

import "time"

// FloorConfig overrides engine settings for one (customer, app, model).
type FloorConfig struct {
	CustomerID string `json:"customer_id" gorm:"column:customer_id;primaryKey"`
	AppID      string `json:"app_id" gorm:"column:app_id;primaryKey"`
	ModelID    string `json:"model_id" gorm:"column:model_id;primaryKey"`

	// 0 leaves the cardinality unspecified.
	MaxAdUnits int `json:"max_ad_units" gorm:"column:max_ad_units"`

	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (FloorConfig) TableName() string {
	return "floor_configs"
}
