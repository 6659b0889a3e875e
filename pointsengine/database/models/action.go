package models

import (
	"time"

	"github.com/uptrace/bun"
)

const ActionStatusCompleted = "completed"

// Action is a planned one-time action. Its bounty list is usually proposed
// by the external classifier after creation.
type Action struct {
	bun.BaseModel `bun:"table:actions,alias:a"`

	ID         string       `bun:"id,pk" json:"id"`
	UserID     string       `bun:"user_id" json:"userId"`
	Status     string       `bun:"status" json:"status"`
	Title      string       `bun:"title" json:"title"`
	Notes      string       `bun:"notes" json:"notes,omitempty"`
	Date       string       `bun:"date" json:"date"`
	Bounties   []Allocation `bun:"bounties,type:jsonb" json:"bounties,omitempty"`
	ArchivedAt *time.Time   `bun:"archived_at" json:"archivedAt,omitempty"`
	TemplateID string       `bun:"template_id" json:"templateId,omitempty"`
	CreatedAt  time.Time    `bun:"created_at" json:"createdAt"`
	UpdatedAt  time.Time    `bun:"updated_at" json:"updatedAt"`
}
