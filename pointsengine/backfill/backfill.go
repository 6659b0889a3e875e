package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/pillarday/pointsengine/pointsengine/database/repositories"
	"github.com/pillarday/pointsengine/pointsengine/reconcile"
)

const defaultPageSize = 200

// Kinds selects which entity scans a run performs.
const (
	KindTodos     = "todos"
	KindHabitLogs = "habit_logs"
	KindActions   = "actions"
)

// Summary counts what a backfill run did, or would have done in dry-run.
type Summary struct {
	Paid    int
	Voided  int
	Noop    int
	Skipped int
	Errors  int
}

func (s Summary) String() string {
	return fmt.Sprintf("paid=%d voided=%d noop=%d skipped=%d errors=%d",
		s.Paid, s.Voided, s.Noop, s.Skipped, s.Errors)
}

func (s *Summary) add(other Summary) {
	s.Paid += other.Paid
	s.Voided += other.Voided
	s.Noop += other.Noop
	s.Skipped += other.Skipped
	s.Errors += other.Errors
}

// Deps are the stores a backfill run reads from and writes to.
type Deps struct {
	Events    reconcile.EventStore
	Pillars   reconcile.PillarReader
	Habits    reconcile.HabitReader
	Todos     repositories.TodoRepository
	Actions   repositories.ActionRepository
	HabitLogs repositories.HabitLogRepository
}

// Runner replays existing completed entities through the reconcilers,
// converging the ledger with current entity state. Replays use a nil
// before snapshot, so every entity passes the change filter and the
// idempotent ledger decides whether anything actually needs writing.
type Runner struct {
	deps       Deps
	reconciler *reconcile.Reconciler
	pageSize   int
	dryRun     bool
}

func NewRunner(deps Deps, dryRun bool, pageSize int) *Runner {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	events := deps.Events
	var todos reconcile.TodoSideWriter = deps.Todos
	if dryRun {
		events = &dryRunEventStore{inner: deps.Events}
		todos = noopTodoWriter{}
	}

	return &Runner{
		deps:       deps,
		reconciler: reconcile.NewReconciler(events, deps.Pillars, deps.Habits, todos, time.Now),
		pageSize:   pageSize,
		dryRun:     dryRun,
	}
}

// Run scans the requested kinds and returns the combined summary. Kinds
// not listed are skipped; an empty list means all of them. Per-entity
// failures are counted and logged, never fatal, so one broken row cannot
// stall the rest of the scan.
func (r *Runner) Run(ctx context.Context, kinds []string) (Summary, error) {
	selected := map[string]bool{}
	for _, k := range kinds {
		selected[k] = true
	}
	all := len(selected) == 0

	var total Summary

	if all || selected[KindTodos] {
		s, err := r.runTodos(ctx)
		total.add(s)
		if err != nil {
			return total, err
		}
	}
	if all || selected[KindHabitLogs] {
		s, err := r.runHabitLogs(ctx)
		total.add(s)
		if err != nil {
			return total, err
		}
	}
	if all || selected[KindActions] {
		s, err := r.runActions(ctx)
		total.add(s)
		if err != nil {
			return total, err
		}
	}

	slog.Info("backfill finished",
		slog.Bool("dry_run", r.dryRun),
		slog.Int("paid", total.Paid),
		slog.Int("voided", total.Voided),
		slog.Int("noop", total.Noop),
		slog.Int("skipped", total.Skipped),
		slog.Int("errors", total.Errors))

	return total, nil
}

func (r *Runner) runTodos(ctx context.Context) (Summary, error) {
	var summary Summary
	afterID := ""

	for {
		todos, err := r.deps.Todos.ListCompleted(ctx, afterID, r.pageSize)
		if err != nil {
			return summary, fmt.Errorf("todo scan failed: %w", err)
		}
		if len(todos) == 0 {
			return summary, nil
		}

		for _, todo := range todos {
			outcome, err := r.reconciler.ReconcileTodo(ctx, nil, todo)
			if err != nil {
				summary.Errors++
				slog.Error("todo backfill failed",
					slog.String("todo_id", todo.ID),
					slog.Any("error", err))
				continue
			}
			summary.record(outcome)
		}
		afterID = todos[len(todos)-1].ID
	}
}

func (r *Runner) runHabitLogs(ctx context.Context) (Summary, error) {
	var summary Summary
	afterID := ""

	for {
		logs, err := r.deps.HabitLogs.ListCompleted(ctx, afterID, r.pageSize)
		if err != nil {
			return summary, fmt.Errorf("habit log scan failed: %w", err)
		}
		if len(logs) == 0 {
			return summary, nil
		}

		for _, log := range logs {
			outcome, err := r.reconciler.ReconcileHabitLog(ctx, nil, log)
			if err != nil {
				summary.Errors++
				slog.Error("habit log backfill failed",
					slog.String("habit_log_id", log.ID),
					slog.Any("error", err))
				continue
			}
			summary.record(outcome)
		}
		afterID = logs[len(logs)-1].ID
	}
}

func (r *Runner) runActions(ctx context.Context) (Summary, error) {
	var summary Summary
	afterID := ""

	for {
		actions, err := r.deps.Actions.ListCompleted(ctx, afterID, r.pageSize)
		if err != nil {
			return summary, fmt.Errorf("action scan failed: %w", err)
		}
		if len(actions) == 0 {
			return summary, nil
		}

		for _, action := range actions {
			outcome, err := r.reconciler.ReconcileAction(ctx, nil, action)
			if err != nil {
				summary.Errors++
				slog.Error("action backfill failed",
					slog.String("action_id", action.ID),
					slog.Any("error", err))
				continue
			}
			summary.record(outcome)
		}
		afterID = actions[len(actions)-1].ID
	}
}

func (s *Summary) record(outcome reconcile.Outcome) {
	switch outcome.Result {
	case reconcile.ResultPaid:
		s.Paid++
	case reconcile.ResultVoided:
		s.Voided++
	default:
		if outcome.Reason == reconcile.ReasonMissingUser {
			s.Skipped++
		} else {
			s.Noop++
		}
	}
}

// dryRunEventStore reads through to the real store but swallows writes,
// so the reconcilers decide exactly what an apply run would decide while
// the ledger stays untouched.
type dryRunEventStore struct {
	inner reconcile.EventStore
}

func (s *dryRunEventStore) GetByID(ctx context.Context, id string) (*models.PointEvent, error) {
	return s.inner.GetByID(ctx, id)
}

func (s *dryRunEventStore) Save(_ context.Context, _ *models.PointEvent) error {
	return nil
}

type noopTodoWriter struct{}

func (noopTodoWriter) SetBountyPaidAt(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (noopTodoWriter) ClearBountyPaidAt(_ context.Context, _ string) error {
	return nil
}
