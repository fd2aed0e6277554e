package domain

import (
	"time"

	"gorm.io/datatypes"
)

// FloorDecision is the audit row of one served allocation.
type FloorDecision struct {
	ID         string  `gorm:"column:id;primaryKey" json:"id"`
	TraceID    string  `gorm:"column:trace_id" json:"trace_id"`
	CustomerID string  `gorm:"column:customer_id;not null" json:"customer_id"`
	AppID      string  `gorm:"column:app_id;not null" json:"app_id"`
	ModelID    string  `gorm:"column:model_id;not null" json:"model_id"`
	UserID     string  `gorm:"column:user_id;not null" json:"user_id"`
	Variant    string  `gorm:"column:variant" json:"variant"`
	Branch     string  `gorm:"column:branch" json:"branch"`
	Propensity float64 `gorm:"column:propensity" json:"propensity"`

	AdUnitIDs      datatypes.JSONSlice[string]             `gorm:"column:ad_unit_ids;type:jsonb" json:"ad_unit_ids"`
	BidFloorValues datatypes.JSONSlice[float64]            `gorm:"column:bid_floor_values;type:jsonb" json:"bid_floor_values"`
	Estimates      datatypes.JSONSlice[PredictionEstimate] `gorm:"column:estimates;type:jsonb" json:"estimates"`
	Context        datatypes.JSONMap                       `gorm:"column:context;type:jsonb" json:"context"`

	StickinessSeconds int       `gorm:"column:stickiness_seconds" json:"stickiness_seconds"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (FloorDecision) TableName() string {
	return "floor_decisions"
}
