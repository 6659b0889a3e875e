package repositories

import (
	"context"
	"fmt"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/uptrace/bun"
)

// HabitLogRepository reads habit check-ins for backfill scans.
type HabitLogRepository interface {
	ListCompleted(ctx context.Context, afterID string, limit int) ([]*models.HabitLog, error)
}

type habitLogRepository struct {
	db *bun.DB
}

func NewHabitLogRepository(db *bun.DB) HabitLogRepository {
	return &habitLogRepository{db: db}
}

// ListCompleted returns logs that are plausibly payable: either an
// explicit completed status or the completed flag with no status. The
// reconciler re-checks payability; this filter only trims the scan.
func (r *habitLogRepository) ListCompleted(ctx context.Context, afterID string, limit int) ([]*models.HabitLog, error) {
	var logs []*models.HabitLog
	err := r.db.NewSelect().
		Model(&logs).
		Where("status = ? OR (status = '' AND completed = TRUE)", string(models.HabitLogStatusCompleted)).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list completed habit logs: %w", err)
	}
	return logs, nil
}
