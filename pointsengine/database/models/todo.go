package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TodoStatus string

const (
	TodoStatusActive    TodoStatus = "active"
	TodoStatusCompleted TodoStatus = "completed"
)

// Todo is a one-shot work item owned by the CRUD layer. The engine reads
// it from the change feed and writes back exactly one field: bounty_paid_at.
type Todo struct {
	bun.BaseModel `bun:"table:todos,alias:t"`

	ID                string       `bun:"id,pk" json:"id"`
	UserID            string       `bun:"user_id" json:"userId"`
	Status            string       `bun:"status" json:"status"`
	Content           string       `bun:"content" json:"content"`
	DueDate           string       `bun:"due_date" json:"dueDate"`
	BountyPoints      *int         `bun:"bounty_points" json:"bountyPoints,omitempty"`
	BountyPillarID    string       `bun:"bounty_pillar_id" json:"bountyPillarId,omitempty"`
	PillarID          string       `bun:"pillar_id" json:"pillarId,omitempty"`
	BountyAllocations []Allocation `bun:"bounty_allocations,type:jsonb" json:"bountyAllocations,omitempty"`
	BountyPaidAt      *time.Time   `bun:"bounty_paid_at" json:"bountyPaidAt,omitempty"`
	CreatedAt         time.Time    `bun:"created_at" json:"createdAt"`
	UpdatedAt         time.Time    `bun:"updated_at" json:"updatedAt"`
}
