package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/uptrace/bun"
)

// PillarRepository reads the pillar ownership model. Pillars are owned by
// the CRUD layer; this engine never writes them.
type PillarRepository interface {
	GetByID(ctx context.Context, id string) (*models.Pillar, error)
}

type pillarRepository struct {
	db *bun.DB
}

func NewPillarRepository(db *bun.DB) PillarRepository {
	return &pillarRepository{db: db}
}

// GetByID returns (nil, nil) when the pillar does not exist.
func (r *pillarRepository) GetByID(ctx context.Context, id string) (*models.Pillar, error) {
	pillar := new(models.Pillar)
	err := r.db.NewSelect().
		Model(pillar).
		Where("id = ?", id).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pillar %s: %w", id, err)
	}
	return pillar, nil
}
