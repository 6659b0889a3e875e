package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Allocation is a single pillar/points pair inside a bounty configuration
// or a resolved payout.
type Allocation struct {
	PillarID string `json:"pillarId"`
	Points   int    `json:"points"`
}

// PointEvent is one ledger entry: points awarded (or voided) for one
// completion of one source entity. Identified by a deterministic key so
// repeated writes for the same logical event converge on the same row.
type PointEvent struct {
	bun.BaseModel `bun:"table:point_events,alias:pe"`

	ID          string       `bun:"id,pk" json:"id"`
	UserID      string       `bun:"user_id,notnull" json:"userId"`
	Date        string       `bun:"date,notnull" json:"date"`
	Reason      string       `bun:"reason,notnull" json:"reason"`
	Source      string       `bun:"source,notnull" json:"source"`
	RefType     string       `bun:"ref_type,notnull" json:"refType"`
	RefID       string       `bun:"ref_id,notnull" json:"refId"`
	Allocations []Allocation `bun:"allocations,type:jsonb" json:"allocations"`
	PillarIDs   []string     `bun:"pillar_ids,type:jsonb" json:"pillarIds"`
	TotalPoints int          `bun:"total_points,notnull" json:"totalPoints"`
	CreatedAt   time.Time    `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time    `bun:"updated_at,notnull" json:"updatedAt"`
	VoidedAt    *time.Time   `bun:"voided_at" json:"voidedAt,omitempty"`
}

const (
	// PointEventSource tags ledger entries written by this engine.
	PointEventSource = "system"

	RefTypeTodo   = "todo"
	RefTypeHabit  = "habit"
	RefTypeAction = "action"
)

// Voided reports whether the entry has been marked void.
func (e *PointEvent) Voided() bool {
	return e.VoidedAt != nil
}
