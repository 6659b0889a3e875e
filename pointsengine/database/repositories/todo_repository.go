package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/uptrace/bun"
)

// TodoRepository reads todos for backfill scans and mirrors the payout
// outcome onto the bounty_paid_at side field. Everything else about todos
// belongs to the CRUD layer.
type TodoRepository interface {
	ListCompleted(ctx context.Context, afterID string, limit int) ([]*models.Todo, error)
	SetBountyPaidAt(ctx context.Context, id string, paidAt time.Time) error
	ClearBountyPaidAt(ctx context.Context, id string) error
}

type todoRepository struct {
	db *bun.DB
}

func NewTodoRepository(db *bun.DB) TodoRepository {
	return &todoRepository{db: db}
}

// ListCompleted pages through completed todos in id order. Pass the last
// id of the previous page to continue; "" starts from the beginning.
func (r *todoRepository) ListCompleted(ctx context.Context, afterID string, limit int) ([]*models.Todo, error) {
	var todos []*models.Todo
	err := r.db.NewSelect().
		Model(&todos).
		Where("status = ?", string(models.TodoStatusCompleted)).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list completed todos: %w", err)
	}
	return todos, nil
}

// SetBountyPaidAt stamps the first payment time. The IS NULL guard keeps
// redelivered change events from moving an already-set stamp.
func (r *todoRepository) SetBountyPaidAt(ctx context.Context, id string, paidAt time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.Todo)(nil)).
		Set("bounty_paid_at = ?", paidAt).
		Where("id = ?", id).
		Where("bounty_paid_at IS NULL").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set bounty_paid_at on todo %s: %w", id, err)
	}
	return nil
}

func (r *todoRepository) ClearBountyPaidAt(ctx context.Context, id string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Todo)(nil)).
		Set("bounty_paid_at = NULL").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to clear bounty_paid_at on todo %s: %w", id, err)
	}
	return nil
}
