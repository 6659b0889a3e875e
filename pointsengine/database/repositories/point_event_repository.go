package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/uptrace/bun"
)

// PointEventRepository is the only writer of the point_events table.
// Save is a full-row upsert keyed on the deterministic event id; the
// idempotency and ownership rules live one layer up in reconcile.Ledger.
type PointEventRepository interface {
	GetByID(ctx context.Context, id string) (*models.PointEvent, error)
	Save(ctx context.Context, event *models.PointEvent) error
}

type pointEventRepository struct {
	db *bun.DB
}

func NewPointEventRepository(db *bun.DB) PointEventRepository {
	return &pointEventRepository{db: db}
}

// GetByID returns the ledger entry for the given deterministic key, or
// (nil, nil) when no entry exists yet.
func (r *pointEventRepository) GetByID(ctx context.Context, id string) (*models.PointEvent, error) {
	event := new(models.PointEvent)
	err := r.db.NewSelect().
		Model(event).
		Where("id = ?", id).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load point event %s: %w", id, err)
	}
	return event, nil
}

func (r *pointEventRepository) Save(ctx context.Context, event *models.PointEvent) error {
	_, err := r.db.NewInsert().
		Model(event).
		On("CONFLICT (id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("date = EXCLUDED.date").
		Set("reason = EXCLUDED.reason").
		Set("source = EXCLUDED.source").
		Set("ref_type = EXCLUDED.ref_type").
		Set("ref_id = EXCLUDED.ref_id").
		Set("allocations = EXCLUDED.allocations").
		Set("pillar_ids = EXCLUDED.pillar_ids").
		Set("total_points = EXCLUDED.total_points").
		Set("updated_at = EXCLUDED.updated_at").
		Set("voided_at = EXCLUDED.voided_at").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to save point event %s: %w", event.ID, err)
	}
	return nil
}
