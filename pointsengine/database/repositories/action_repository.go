package repositories

import (
	"context"
	"fmt"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/uptrace/bun"
)

// ActionRepository reads actions for backfill scans.
type ActionRepository interface {
	ListCompleted(ctx context.Context, afterID string, limit int) ([]*models.Action, error)
}

type actionRepository struct {
	db *bun.DB
}

func NewActionRepository(db *bun.DB) ActionRepository {
	return &actionRepository{db: db}
}

func (r *actionRepository) ListCompleted(ctx context.Context, afterID string, limit int) ([]*models.Action, error) {
	var actions []*models.Action
	err := r.db.NewSelect().
		Model(&actions).
		Where("status = ?", models.ActionStatusCompleted).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list completed actions: %w", err)
	}
	return actions, nil
}
