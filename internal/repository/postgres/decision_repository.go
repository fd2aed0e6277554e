package postgres

import (
	"context"
	"fmt"

	"smartBidFloor/business/floors"
	"smartBidFloor/domain"

	"gorm.io/gorm"
)

type DecisionRepository struct {
	DB *gorm.DB
}

var _ floors.DecisionRepository = (*DecisionRepository)(nil)

func NewDecisionRepository(db *gorm.DB) *DecisionRepository {
	return &DecisionRepository{DB: db}
}

func (r *DecisionRepository) SaveDecision(ctx context.Context, d domain.FloorDecision) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&d).Error; err != nil {
		return fmt.Errorf("failed to save floor decision: %w", err)
	}

	return nil
}

// ListDecisions returns the latest decisions for one app, newest first.
func (r *DecisionRepository) ListDecisions(ctx context.Context, customerID, appID string, limit int) ([]domain.FloorDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []domain.FloorDecision
	err := r.DB.WithContext(ctx).
		Where("customer_id = ? AND app_id = ?", customerID, appID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query floor_decisions: %w", err)
	}
	return rows, nil
}
