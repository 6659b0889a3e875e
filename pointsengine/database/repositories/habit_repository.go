package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/uptrace/bun"
)

// HabitRepository reads parent habits during habit-log reconciliation.
type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*models.Habit, error)
}

type habitRepository struct {
	db *bun.DB
}

func NewHabitRepository(db *bun.DB) HabitRepository {
	return &habitRepository{db: db}
}

// GetByID returns (nil, nil) when the habit does not exist.
func (r *habitRepository) GetByID(ctx context.Context, id string) (*models.Habit, error) {
	habit := new(models.Habit)
	err := r.db.NewSelect().
		Model(habit).
		Where("id = ?", id).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load habit %s: %w", id, err)
	}
	return habit, nil
}
