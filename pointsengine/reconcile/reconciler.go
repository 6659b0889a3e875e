package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
)

// Result tags what a reconciliation did to the ledger.
type Result string

const (
	ResultPaid   Result = "paid"
	ResultVoided Result = "voided"
	ResultNoop   Result = "noop"
)

// Outcome is returned to the trigger adapter for observability. Reason is
// a short machine-readable code; the human-readable detail goes to the log.
type Outcome struct {
	Result Result
	Reason string
}

const (
	ReasonDeleted       = "entity_deleted"
	ReasonNoChange      = "no_relevant_change"
	ReasonMissingUser   = "missing_user_id"
	ReasonNotPayable    = "not_payable"
	ReasonNoPayout      = "no_payout"
	ReasonInvalidBounty = "invalid_bounty"
	ReasonHabitNotFound = "habit_not_found"
	ReasonHabitForeign  = "habit_owner_mismatch"
	ReasonPaid          = "paid"
	ReasonUnchanged     = "unchanged"
)

// Deterministic ledger keys. A todo or action pays out once; a habit pays
// out once per calendar day, so its key includes the log date.

func TodoEventKey(todoID string) string {
	return "pe_todo_" + todoID
}

func ActionEventKey(actionID string) string {
	return "pe_action_" + actionID
}

func HabitEventKey(habitID, date string) string {
	return "pe_habit_" + habitID + "_" + date
}

// HabitReader resolves the parent habit during habit-log reconciliation.
type HabitReader interface {
	GetByID(ctx context.Context, id string) (*models.Habit, error)
}

// TodoSideWriter mirrors the payout outcome onto the todo's
// bounty_paid_at field.
type TodoSideWriter interface {
	SetBountyPaidAt(ctx context.Context, id string, paidAt time.Time) error
	ClearBountyPaidAt(ctx context.Context, id string) error
}

// ActionClassifier is asked, fire-and-forget, to propose bounties for a
// freshly created action that has none. It must never return an error:
// classification failures have no bearing on reconciliation.
type ActionClassifier interface {
	RequestBounties(ctx context.Context, action *models.Action)
}

// Reconciler derives ledger state from entity state. It holds no mutable
// state of its own; every method is a pure function of (before, after)
// plus the stores, so concurrent invocations for different entities are
// safe and redelivered invocations converge.
type Reconciler struct {
	Ledger     *Ledger
	Resolver   *Resolver
	Habits     HabitReader
	Todos      TodoSideWriter
	Classifier ActionClassifier
	Now        func() time.Time
}

func NewReconciler(events EventStore, pillars PillarReader, habits HabitReader, todos TodoSideWriter, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		Ledger:   NewLedger(events, now),
		Resolver: NewResolver(pillars, now),
		Habits:   habits,
		Todos:    todos,
		Now:      now,
	}
}

// ReconcileTodo aligns the todo's ledger entry with its current state.
func (r *Reconciler) ReconcileTodo(ctx context.Context, before, after *models.Todo) (Outcome, error) {
	if after == nil {
		if before == nil {
			return Outcome{ResultNoop, ReasonNoChange}, nil
		}
		return r.voidOutcome(ctx, TodoEventKey(before.ID), before.UserID, ReasonDeleted)
	}

	if !TodoChanged(before, after) {
		return Outcome{ResultNoop, ReasonNoChange}, nil
	}

	if after.UserID == "" {
		slog.Warn("todo has no user id, skipping reconciliation",
			slog.String("todo_id", after.ID))
		return Outcome{ResultNoop, ReasonMissingUser}, nil
	}

	key := TodoEventKey(after.ID)

	if after.Status != string(models.TodoStatusCompleted) {
		outcome, err := r.voidOutcome(ctx, key, after.UserID, ReasonNotPayable)
		if err != nil {
			return Outcome{}, err
		}
		if err := r.clearTodoPaidAt(ctx, after); err != nil {
			return Outcome{}, err
		}
		return outcome, nil
	}

	payout, diag, err := r.Resolver.Resolve(ctx, after.UserID, TodoBounty(after), after.Content, after.DueDate)
	if err != nil {
		return Outcome{}, err
	}
	if payout == nil {
		reason := ReasonNoPayout
		if diag != "" {
			reason = ReasonInvalidBounty
			slog.Warn("todo bounty cannot pay out",
				slog.String("todo_id", after.ID),
				slog.String("user_id", after.UserID),
				slog.String("diagnostic", diag))
		}
		outcome, err := r.voidOutcome(ctx, key, after.UserID, reason)
		if err != nil {
			return Outcome{}, err
		}
		if err := r.clearTodoPaidAt(ctx, after); err != nil {
			return Outcome{}, err
		}
		return outcome, nil
	}

	wrote, err := r.Ledger.Upsert(ctx, key, after.UserID, Ref{Type: models.RefTypeTodo, ID: after.ID}, payout)
	if err != nil {
		return Outcome{}, err
	}

	// First payment time is preserved: only stamp when the snapshot has
	// no paid-at yet. The store-level guard keeps redeliveries from
	// moving it.
	if after.BountyPaidAt == nil {
		if err := r.Todos.SetBountyPaidAt(ctx, after.ID, r.Now()); err != nil {
			return Outcome{}, err
		}
	}

	if !wrote {
		return Outcome{ResultNoop, ReasonUnchanged}, nil
	}
	return Outcome{ResultPaid, ReasonPaid}, nil
}

// ReconcileHabitLog aligns the per-day habit ledger entry with the log's
// completion state. The payout always comes from the parent habit's
// bounty configuration; the log only says whether the day counts.
func (r *Reconciler) ReconcileHabitLog(ctx context.Context, before, after *models.HabitLog) (Outcome, error) {
	if after == nil {
		if before == nil {
			return Outcome{ResultNoop, ReasonNoChange}, nil
		}
		return r.voidOutcome(ctx, HabitEventKey(before.HabitID, before.Date), before.UserID, ReasonDeleted)
	}

	if !HabitLogChanged(before, after) {
		return Outcome{ResultNoop, ReasonNoChange}, nil
	}

	if after.UserID == "" {
		slog.Warn("habit log has no user id, skipping reconciliation",
			slog.String("habit_log_id", after.ID))
		return Outcome{ResultNoop, ReasonMissingUser}, nil
	}

	key := HabitEventKey(after.HabitID, after.Date)

	if !habitLogPayable(after) {
		return r.voidOutcome(ctx, key, after.UserID, ReasonNotPayable)
	}

	habit, err := r.Habits.GetByID(ctx, after.HabitID)
	if err != nil {
		return Outcome{}, err
	}
	if habit == nil {
		slog.Warn("habit log references a missing habit",
			slog.String("habit_log_id", after.ID),
			slog.String("habit_id", after.HabitID))
		return r.voidOutcome(ctx, key, after.UserID, ReasonHabitNotFound)
	}
	if habit.UserID != after.UserID {
		slog.Warn("habit log user does not own the habit",
			slog.String("habit_log_id", after.ID),
			slog.String("habit_id", after.HabitID),
			slog.String("habit_user", habit.UserID),
			slog.String("log_user", after.UserID))
		return r.voidOutcome(ctx, key, after.UserID, ReasonHabitForeign)
	}

	payout, diag, err := r.Resolver.Resolve(ctx, after.UserID, HabitBounty(habit), habit.Name, after.Date)
	if err != nil {
		return Outcome{}, err
	}
	if payout == nil {
		reason := ReasonNoPayout
		if diag != "" {
			reason = ReasonInvalidBounty
			slog.Warn("habit bounty cannot pay out",
				slog.String("habit_id", habit.ID),
				slog.String("user_id", after.UserID),
				slog.String("diagnostic", diag))
		}
		return r.voidOutcome(ctx, key, after.UserID, reason)
	}

	wrote, err := r.Ledger.Upsert(ctx, key, after.UserID, Ref{Type: models.RefTypeHabit, ID: after.HabitID}, payout)
	if err != nil {
		return Outcome{}, err
	}
	if !wrote {
		return Outcome{ResultNoop, ReasonUnchanged}, nil
	}
	return Outcome{ResultPaid, ReasonPaid}, nil
}

// ReconcileAction aligns the action's ledger entry with its current
// state, and on creation may ask the external classifier to propose
// bounties for it.
func (r *Reconciler) ReconcileAction(ctx context.Context, before, after *models.Action) (Outcome, error) {
	if after == nil {
		if before == nil {
			return Outcome{ResultNoop, ReasonNoChange}, nil
		}
		return r.voidOutcome(ctx, ActionEventKey(before.ID), before.UserID, ReasonDeleted)
	}

	if before == nil {
		r.maybeClassify(ctx, after)
	}

	if !ActionChanged(before, after) {
		return Outcome{ResultNoop, ReasonNoChange}, nil
	}

	if after.UserID == "" {
		slog.Warn("action has no user id, skipping reconciliation",
			slog.String("action_id", after.ID))
		return Outcome{ResultNoop, ReasonMissingUser}, nil
	}

	key := ActionEventKey(after.ID)

	if after.Status != models.ActionStatusCompleted {
		return r.voidOutcome(ctx, key, after.UserID, ReasonNotPayable)
	}

	payout, diag, err := r.Resolver.Resolve(ctx, after.UserID, ActionBounty(after), after.Title, after.Date)
	if err != nil {
		return Outcome{}, err
	}
	if payout == nil {
		reason := ReasonNoPayout
		if diag != "" {
			reason = ReasonInvalidBounty
			slog.Warn("action bounty cannot pay out",
				slog.String("action_id", after.ID),
				slog.String("user_id", after.UserID),
				slog.String("diagnostic", diag))
		}
		return r.voidOutcome(ctx, key, after.UserID, reason)
	}

	wrote, err := r.Ledger.Upsert(ctx, key, after.UserID, Ref{Type: models.RefTypeAction, ID: after.ID}, payout)
	if err != nil {
		return Outcome{}, err
	}
	if !wrote {
		return Outcome{ResultNoop, ReasonUnchanged}, nil
	}
	return Outcome{ResultPaid, ReasonPaid}, nil
}

// maybeClassify asks the classifier for bounty proposals on a freshly
// created action. Creation only, never archived or template-derived, and
// never when the action already carries a valid bounty.
func (r *Reconciler) maybeClassify(ctx context.Context, action *models.Action) {
	if r.Classifier == nil {
		return
	}
	if action.Title == "" && action.Notes == "" {
		return
	}
	if action.ArchivedAt != nil || action.TemplateID != "" {
		return
	}
	if allocations, diag := NormalizeBounty(ActionBounty(action)); len(allocations) > 0 && diag == "" {
		return
	}
	r.Classifier.RequestBounties(ctx, action)
}

func habitLogPayable(log *models.HabitLog) bool {
	switch models.HabitLogStatus(log.Status) {
	case models.HabitLogStatusCompleted:
		return true
	case models.HabitLogStatusPending, models.HabitLogStatusSkipped:
		// An explicit non-completed status wins over the legacy flag.
		return false
	}
	return log.Status == "" && log.Completed
}

func (r *Reconciler) voidOutcome(ctx context.Context, key, userID, reason string) (Outcome, error) {
	voided, err := r.Ledger.Void(ctx, key, userID)
	if err != nil {
		return Outcome{}, err
	}
	if !voided {
		return Outcome{ResultNoop, reason}, nil
	}
	return Outcome{ResultVoided, reason}, nil
}

func (r *Reconciler) clearTodoPaidAt(ctx context.Context, todo *models.Todo) error {
	if todo.BountyPaidAt == nil {
		return nil
	}
	return r.Todos.ClearBountyPaidAt(ctx, todo.ID)
}
