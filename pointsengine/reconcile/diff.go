package reconcile

import (
	"strconv"
	"strings"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
)

// The differ projects each entity onto the fixed set of fields that can
// influence ledger state, so writes that only touch presentation fields
// never reach the store. Absent-vs-present always counts as changed;
// both-absent never does.

type todoProjection struct {
	userID  string
	status  string
	content string
	dueDate string
	bounty  string
}

// TodoChanged reports whether any payability-relevant todo field differs
// between the two snapshots.
func TodoChanged(before, after *models.Todo) bool {
	if before == nil && after == nil {
		return false
	}
	if before == nil || after == nil {
		return true
	}
	return projectTodo(before) != projectTodo(after)
}

func projectTodo(t *models.Todo) todoProjection {
	return todoProjection{
		userID:  t.UserID,
		status:  t.Status,
		content: t.Content,
		dueDate: t.DueDate,
		bounty:  bountyKey(TodoBounty(t)),
	}
}

type habitLogProjection struct {
	userID    string
	habitID   string
	status    string
	completed bool
	date      string
}

// HabitLogChanged reports whether any payability-relevant habit-log field
// differs between the two snapshots.
func HabitLogChanged(before, after *models.HabitLog) bool {
	if before == nil && after == nil {
		return false
	}
	if before == nil || after == nil {
		return true
	}
	return projectHabitLog(before) != projectHabitLog(after)
}

func projectHabitLog(l *models.HabitLog) habitLogProjection {
	return habitLogProjection{
		userID:    l.UserID,
		habitID:   l.HabitID,
		status:    l.Status,
		completed: l.Completed,
		date:      l.Date,
	}
}

type actionProjection struct {
	userID   string
	status   string
	title    string
	date     string
	bounty   string
	archived bool
}

// ActionChanged reports whether any payability-relevant action field
// differs between the two snapshots.
func ActionChanged(before, after *models.Action) bool {
	if before == nil && after == nil {
		return false
	}
	if before == nil || after == nil {
		return true
	}
	return projectAction(before) != projectAction(after)
}

func projectAction(a *models.Action) actionProjection {
	return actionProjection{
		userID:   a.UserID,
		status:   a.Status,
		title:    a.Title,
		date:     a.Date,
		bounty:   bountyKey(ActionBounty(a)),
		archived: a.ArchivedAt != nil,
	}
}

// bountyKey flattens a bounty configuration into a comparable string so
// projections stay plain comparable structs.
func bountyKey(spec BountySpec) string {
	var b strings.Builder
	for _, alloc := range spec.Allocations {
		b.WriteString(alloc.PillarID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(alloc.Points))
		b.WriteByte(';')
	}
	if spec.Points != nil {
		b.WriteString("single:")
		b.WriteString(strconv.Itoa(*spec.Points))
		b.WriteByte(':')
		b.WriteString(spec.PillarID)
		b.WriteByte(':')
		b.WriteString(spec.FallbackPillarID)
	}
	return b.String()
}
