package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Habit is the recurring parent of daily habit logs. It carries the bounty
// configuration; the logs only carry completion state.
type Habit struct {
	bun.BaseModel `bun:"table:habits,alias:h"`

	ID                string       `bun:"id,pk" json:"id"`
	UserID            string       `bun:"user_id" json:"userId"`
	Name              string       `bun:"name" json:"name"`
	BountyPoints      *int         `bun:"bounty_points" json:"bountyPoints,omitempty"`
	BountyPillarID    string       `bun:"bounty_pillar_id" json:"bountyPillarId,omitempty"`
	PillarID          string       `bun:"pillar_id" json:"pillarId,omitempty"`
	BountyAllocations []Allocation `bun:"bounty_allocations,type:jsonb" json:"bountyAllocations,omitempty"`
	CreatedAt         time.Time    `bun:"created_at" json:"createdAt"`
	UpdatedAt         time.Time    `bun:"updated_at" json:"updatedAt"`
}

type HabitLogStatus string

const (
	HabitLogStatusCompleted HabitLogStatus = "completed"
	HabitLogStatusPending   HabitLogStatus = "pending"
	HabitLogStatusSkipped   HabitLogStatus = "skipped"
)

// HabitLog is one calendar-day check-in of a habit.
type HabitLog struct {
	bun.BaseModel `bun:"table:habit_logs,alias:hl"`

	ID        string    `bun:"id,pk" json:"id"`
	HabitID   string    `bun:"habit_id" json:"habitId"`
	UserID    string    `bun:"user_id" json:"userId"`
	Status    string    `bun:"status" json:"status,omitempty"`
	Completed bool      `bun:"completed" json:"completed"`
	Date      string    `bun:"date" json:"date"`
	CreatedAt time.Time `bun:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at" json:"updatedAt"`
}
