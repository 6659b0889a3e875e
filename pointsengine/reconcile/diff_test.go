package reconcile

import (
	"testing"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
)

func baseTodo() *models.Todo {
	return &models.Todo{
		ID:           "t1",
		UserID:       "user-1",
		Status:       "active",
		Content:      "Write report",
		DueDate:      "2024-05-18",
		BountyPoints: intPtr(10),
		PillarID:     "pil-work",
	}
}

func TestTodoChanged(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*models.Todo)
		want   bool
	}{
		{name: "identical", mutate: func(*models.Todo) {}, want: false},
		{name: "status", mutate: func(t *models.Todo) { t.Status = "completed" }, want: true},
		{name: "content", mutate: func(t *models.Todo) { t.Content = "Write the report" }, want: true},
		{name: "due date", mutate: func(t *models.Todo) { t.DueDate = "2024-05-19" }, want: true},
		{name: "bounty points", mutate: func(t *models.Todo) { t.BountyPoints = intPtr(35) }, want: true},
		{name: "bounty pillar", mutate: func(t *models.Todo) { t.BountyPillarID = "pil-health" }, want: true},
		{name: "bounty list", mutate: func(t *models.Todo) {
			t.BountyAllocations = []models.Allocation{{PillarID: "pil-work", Points: 5}}
		}, want: true},
		{name: "user", mutate: func(t *models.Todo) { t.UserID = "user-2" }, want: true},
		{name: "updated timestamp only", mutate: func(t *models.Todo) { t.UpdatedAt = now }, want: false},
		{name: "paid-at mirror only", mutate: func(t *models.Todo) { t.BountyPaidAt = &now }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := baseTodo()
			after := baseTodo()
			tt.mutate(after)
			if got := TodoChanged(before, after); got != tt.want {
				t.Errorf("TodoChanged() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil handling", func(t *testing.T) {
		if TodoChanged(nil, nil) {
			t.Error("TodoChanged(nil, nil) = true, want false")
		}
		if !TodoChanged(nil, baseTodo()) {
			t.Error("TodoChanged(nil, todo) = false, want true")
		}
		if !TodoChanged(baseTodo(), nil) {
			t.Error("TodoChanged(todo, nil) = false, want true")
		}
	})
}

func baseHabitLog() *models.HabitLog {
	return &models.HabitLog{
		ID:      "hl1",
		HabitID: "h1",
		UserID:  "user-1",
		Status:  "pending",
		Date:    "2024-05-18",
	}
}

func TestHabitLogChanged(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.HabitLog)
		want   bool
	}{
		{name: "identical", mutate: func(*models.HabitLog) {}, want: false},
		{name: "status", mutate: func(l *models.HabitLog) { l.Status = "completed" }, want: true},
		{name: "legacy completed flag", mutate: func(l *models.HabitLog) { l.Completed = true }, want: true},
		{name: "date", mutate: func(l *models.HabitLog) { l.Date = "2024-05-19" }, want: true},
		{name: "habit id", mutate: func(l *models.HabitLog) { l.HabitID = "h2" }, want: true},
		{name: "timestamp only", mutate: func(l *models.HabitLog) { l.UpdatedAt = time.Now() }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := baseHabitLog()
			after := baseHabitLog()
			tt.mutate(after)
			if got := HabitLogChanged(before, after); got != tt.want {
				t.Errorf("HabitLogChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}

func baseAction() *models.Action {
	return &models.Action{
		ID:       "a1",
		UserID:   "user-1",
		Status:   "planned",
		Title:    "Stretch",
		Date:     "2024-05-18",
		Bounties: []models.Allocation{{PillarID: "pil-health", Points: 5}},
	}
}

func TestActionChanged(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*models.Action)
		want   bool
	}{
		{name: "identical", mutate: func(*models.Action) {}, want: false},
		{name: "status", mutate: func(a *models.Action) { a.Status = "completed" }, want: true},
		{name: "title", mutate: func(a *models.Action) { a.Title = "Stretch more" }, want: true},
		{name: "bounties", mutate: func(a *models.Action) {
			a.Bounties = []models.Allocation{{PillarID: "pil-health", Points: 8}}
		}, want: true},
		{name: "archived", mutate: func(a *models.Action) { a.ArchivedAt = &now }, want: true},
		{name: "notes only", mutate: func(a *models.Action) { a.Notes = "left hamstring" }, want: false},
		{name: "timestamp only", mutate: func(a *models.Action) { a.UpdatedAt = now }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := baseAction()
			after := baseAction()
			tt.mutate(after)
			if got := ActionChanged(before, after); got != tt.want {
				t.Errorf("ActionChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}
