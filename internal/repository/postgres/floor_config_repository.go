package postgres

import (
	"context"
	"errors"
	"fmt"

	"smartBidFloor/business/floors"
	"smartBidFloor/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FloorConfigRepository struct {
	DB *gorm.DB
}

var _ floors.ConfigRepository = (*FloorConfigRepository)(nil)

func NewFloorConfigRepository(db *gorm.DB) *FloorConfigRepository {
	return &FloorConfigRepository{DB: db}
}

func (r *FloorConfigRepository) GetFloorConfig(ctx context.Context, customerID, appID, modelID string) (domain.FloorConfig, bool, error) {
	var cfg domain.FloorConfig

	err := r.DB.WithContext(ctx).
		Where("customer_id = ? AND app_id = ? AND model_id = ?", customerID, appID, modelID).
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.FloorConfig{}, false, nil
	}
	if err != nil {
		return domain.FloorConfig{}, false, fmt.Errorf("failed to query floor_configs: %w", err)
	}
	return cfg, true, nil
}

func (r *FloorConfigRepository) UpsertFloorConfig(ctx context.Context, cfg domain.FloorConfig) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}, {Name: "app_id"}, {Name: "model_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"max_ad_units",
				"updated_at",
			}),
		}).
		Create(&cfg).Error
}
