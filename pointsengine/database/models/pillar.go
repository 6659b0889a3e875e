package models

import (
	"github.com/uptrace/bun"
)

// Pillar is the minimal read model used for ownership validation of
// bounty allocations.
type Pillar struct {
	bun.BaseModel `bun:"table:pillars,alias:p"`

	ID     string `bun:"id,pk" json:"id"`
	UserID string `bun:"user_id,notnull" json:"userId"`
	Name   string `bun:"name" json:"name"`
}
