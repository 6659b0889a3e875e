package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/pillarday/pointsengine/pointsengine/reconcile/mock"
	"go.uber.org/mock/gomock"
)

type todoWriterSpy struct {
	set     []string
	cleared []string
}

func (w *todoWriterSpy) SetBountyPaidAt(_ context.Context, id string, _ time.Time) error {
	w.set = append(w.set, id)
	return nil
}

func (w *todoWriterSpy) ClearBountyPaidAt(_ context.Context, id string) error {
	w.cleared = append(w.cleared, id)
	return nil
}

type classifierSpy struct {
	requested []string
}

func (c *classifierSpy) RequestBounties(_ context.Context, action *models.Action) {
	c.requested = append(c.requested, action.ID)
}

type reconcilerHarness struct {
	reconciler *Reconciler
	store      *memEventStore
	todos      *todoWriterSpy
	habits     *mock.MockHabitReader
	classifier *classifierSpy
}

func newHarness(t *testing.T) *reconcilerHarness {
	store := newMemEventStore()
	todos := &todoWriterSpy{}
	habits := mock.NewMockHabitReader(gomock.NewController(t))
	classifier := &classifierSpy{}

	r := NewReconciler(store, pillarMock(t), habits, todos, fixedNow)
	r.Classifier = classifier

	return &reconcilerHarness{
		reconciler: r,
		store:      store,
		todos:      todos,
		habits:     habits,
		classifier: classifier,
	}
}

func completedTodo() *models.Todo {
	t := baseTodo()
	t.Status = string(models.TodoStatusCompleted)
	t.BountyPoints = intPtr(10)
	t.BountyPillarID = "pil-health"
	return t
}

func TestReconcileTodo_CompletionPays(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	before := baseTodo()
	after := completedTodo()

	outcome, err := h.reconciler.ReconcileTodo(ctx, before, after)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultPaid {
		t.Fatalf("outcome = %+v, want paid", outcome)
	}

	event := h.store.events[TodoEventKey("t1")]
	if event == nil {
		t.Fatal("no ledger entry written")
	}
	if event.TotalPoints != 10 || event.RefType != models.RefTypeTodo || event.RefID != "t1" {
		t.Errorf("event = %+v", event)
	}
	if event.Reason != "Write report" {
		t.Errorf("reason = %q, want todo content", event.Reason)
	}
	if len(h.todos.set) != 1 || h.todos.set[0] != "t1" {
		t.Errorf("bounty_paid_at writes = %v, want [t1]", h.todos.set)
	}
}

func TestReconcileTodo_RedeliveryIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	before := baseTodo()
	after := completedTodo()
	if _, err := h.reconciler.ReconcileTodo(ctx, before, after); err != nil {
		t.Fatal(err)
	}

	// Same transition delivered again: the differ sees no change.
	outcome, err := h.reconciler.ReconcileTodo(ctx, after, after)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonNoChange {
		t.Errorf("outcome = %+v, want noop/no_relevant_change", outcome)
	}
	if h.store.saves != 1 {
		t.Errorf("saves = %d, want 1", h.store.saves)
	}
}

func TestReconcileTodo_ReplayConverges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	after := completedTodo()
	if _, err := h.reconciler.ReconcileTodo(ctx, baseTodo(), after); err != nil {
		t.Fatal(err)
	}

	// Backfill-style replay with no before snapshot and the paid-at
	// mirror already set: the ledger shape matches, nothing is written.
	paidAt := fixedNow()
	replayed := completedTodo()
	replayed.BountyPaidAt = &paidAt

	outcome, err := h.reconciler.ReconcileTodo(ctx, nil, replayed)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonUnchanged {
		t.Errorf("outcome = %+v, want noop/unchanged", outcome)
	}
	if h.store.saves != 1 {
		t.Errorf("saves = %d, want 1", h.store.saves)
	}
	if len(h.todos.set) != 1 {
		t.Errorf("paid-at writes = %v, want just the original", h.todos.set)
	}
}

func TestReconcileTodo_UncompletionVoids(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	completed := completedTodo()
	if _, err := h.reconciler.ReconcileTodo(ctx, baseTodo(), completed); err != nil {
		t.Fatal(err)
	}

	paidAt := fixedNow()
	reverted := completedTodo()
	reverted.Status = string(models.TodoStatusActive)
	reverted.BountyPaidAt = &paidAt

	outcome, err := h.reconciler.ReconcileTodo(ctx, completed, reverted)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultVoided || outcome.Reason != ReasonNotPayable {
		t.Errorf("outcome = %+v, want voided/not_payable", outcome)
	}
	if !h.store.events[TodoEventKey("t1")].Voided() {
		t.Error("ledger entry not voided")
	}
	if len(h.todos.cleared) != 1 || h.todos.cleared[0] != "t1" {
		t.Errorf("paid-at clears = %v, want [t1]", h.todos.cleared)
	}
}

func TestReconcileTodo_PointsEditRewritesEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := completedTodo()
	if _, err := h.reconciler.ReconcileTodo(ctx, baseTodo(), first); err != nil {
		t.Fatal(err)
	}

	paidAt := fixedNow()
	edited := completedTodo()
	edited.BountyPoints = intPtr(35)
	edited.BountyPaidAt = &paidAt

	outcome, err := h.reconciler.ReconcileTodo(ctx, first, edited)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultPaid {
		t.Fatalf("outcome = %+v, want paid", outcome)
	}

	event := h.store.events[TodoEventKey("t1")]
	if event.TotalPoints != 35 {
		t.Errorf("TotalPoints = %d, want 35", event.TotalPoints)
	}
	if len(h.todos.set) != 1 {
		t.Errorf("paid-at writes = %v, first payment time must not move", h.todos.set)
	}
}

func TestReconcileTodo_DeletionVoids(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	completed := completedTodo()
	if _, err := h.reconciler.ReconcileTodo(ctx, baseTodo(), completed); err != nil {
		t.Fatal(err)
	}

	outcome, err := h.reconciler.ReconcileTodo(ctx, completed, nil)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultVoided || outcome.Reason != ReasonDeleted {
		t.Errorf("outcome = %+v, want voided/entity_deleted", outcome)
	}
	if !h.store.events[TodoEventKey("t1")].Voided() {
		t.Error("ledger entry not voided after deletion")
	}
}

func TestReconcileTodo_MissingUserSkips(t *testing.T) {
	h := newHarness(t)

	after := completedTodo()
	after.UserID = ""

	outcome, err := h.reconciler.ReconcileTodo(context.Background(), baseTodo(), after)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonMissingUser {
		t.Errorf("outcome = %+v, want noop/missing_user_id", outcome)
	}
	if h.store.saves != 0 {
		t.Error("skipped todo wrote to the ledger")
	}
}

func TestReconcileTodo_UnknownPillarPaysNothing(t *testing.T) {
	h := newHarness(t)

	after := completedTodo()
	after.BountyPillarID = "pil-ghost"

	outcome, err := h.reconciler.ReconcileTodo(context.Background(), baseTodo(), after)
	if err != nil {
		t.Fatalf("ReconcileTodo() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonInvalidBounty {
		t.Errorf("outcome = %+v, want noop/invalid_bounty", outcome)
	}
	if h.store.saves != 0 {
		t.Error("invalid bounty wrote to the ledger")
	}
}

func splitHabit() *models.Habit {
	return &models.Habit{
		ID:     "h1",
		UserID: "user-1",
		Name:   "Morning routine",
		BountyAllocations: []models.Allocation{
			{PillarID: "pil-health", Points: 7},
			{PillarID: "pil-work", Points: 3},
		},
	}
}

func TestReconcileHabitLog_CompletionPaysSplit(t *testing.T) {
	h := newHarness(t)
	h.habits.EXPECT().GetByID(gomock.Any(), "h1").Return(splitHabit(), nil)

	before := baseHabitLog()
	after := baseHabitLog()
	after.Status = string(models.HabitLogStatusCompleted)

	outcome, err := h.reconciler.ReconcileHabitLog(context.Background(), before, after)
	if err != nil {
		t.Fatalf("ReconcileHabitLog() error = %v", err)
	}
	if outcome.Result != ResultPaid {
		t.Fatalf("outcome = %+v, want paid", outcome)
	}

	event := h.store.events[HabitEventKey("h1", "2024-05-18")]
	if event == nil {
		t.Fatal("no ledger entry written")
	}
	if event.TotalPoints != 10 || len(event.Allocations) != 2 {
		t.Errorf("event = %+v, want split totalling 10", event)
	}
	if event.RefType != models.RefTypeHabit || event.RefID != "h1" {
		t.Errorf("ref = %s/%s, want habit/h1", event.RefType, event.RefID)
	}
	if event.Date != "2024-05-18" {
		t.Errorf("date = %s, want the log date", event.Date)
	}
}

func TestReconcileHabitLog_LegacyCompletedFlagPays(t *testing.T) {
	h := newHarness(t)
	h.habits.EXPECT().GetByID(gomock.Any(), "h1").Return(splitHabit(), nil)

	after := baseHabitLog()
	after.Status = ""
	after.Completed = true

	outcome, err := h.reconciler.ReconcileHabitLog(context.Background(), baseHabitLog(), after)
	if err != nil {
		t.Fatalf("ReconcileHabitLog() error = %v", err)
	}
	if outcome.Result != ResultPaid {
		t.Errorf("outcome = %+v, want paid", outcome)
	}
}

func TestReconcileHabitLog_SkippedNeverPays(t *testing.T) {
	h := newHarness(t)

	after := baseHabitLog()
	after.Status = string(models.HabitLogStatusSkipped)
	after.Completed = true // stale flag must not override the status

	outcome, err := h.reconciler.ReconcileHabitLog(context.Background(), baseHabitLog(), after)
	if err != nil {
		t.Fatalf("ReconcileHabitLog() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonNotPayable {
		t.Errorf("outcome = %+v, want noop/not_payable", outcome)
	}
	if h.store.saves != 0 {
		t.Error("skipped log wrote to the ledger")
	}
}

func TestReconcileHabitLog_UncheckVoidsTheDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.habits.EXPECT().GetByID(gomock.Any(), "h1").Return(splitHabit(), nil)

	completed := baseHabitLog()
	completed.Status = string(models.HabitLogStatusCompleted)
	if _, err := h.reconciler.ReconcileHabitLog(ctx, baseHabitLog(), completed); err != nil {
		t.Fatal(err)
	}

	unchecked := baseHabitLog()
	unchecked.Status = string(models.HabitLogStatusPending)

	outcome, err := h.reconciler.ReconcileHabitLog(ctx, completed, unchecked)
	if err != nil {
		t.Fatalf("ReconcileHabitLog() error = %v", err)
	}
	if outcome.Result != ResultVoided || outcome.Reason != ReasonNotPayable {
		t.Errorf("outcome = %+v, want voided/not_payable", outcome)
	}
	if !h.store.events[HabitEventKey("h1", "2024-05-18")].Voided() {
		t.Error("day entry not voided")
	}
}

func TestReconcileHabitLog_MissingHabit(t *testing.T) {
	h := newHarness(t)
	h.habits.EXPECT().GetByID(gomock.Any(), "h1").Return(nil, nil)

	after := baseHabitLog()
	after.Status = string(models.HabitLogStatusCompleted)

	outcome, err := h.reconciler.ReconcileHabitLog(context.Background(), baseHabitLog(), after)
	if err != nil {
		t.Fatalf("ReconcileHabitLog() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonHabitNotFound {
		t.Errorf("outcome = %+v, want noop/habit_not_found", outcome)
	}
}

func TestReconcileHabitLog_ForeignHabit(t *testing.T) {
	h := newHarness(t)
	foreign := splitHabit()
	foreign.UserID = "user-2"
	h.habits.EXPECT().GetByID(gomock.Any(), "h1").Return(foreign, nil)

	after := baseHabitLog()
	after.Status = string(models.HabitLogStatusCompleted)

	outcome, err := h.reconciler.ReconcileHabitLog(context.Background(), baseHabitLog(), after)
	if err != nil {
		t.Fatalf("ReconcileHabitLog() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonHabitForeign {
		t.Errorf("outcome = %+v, want noop/habit_owner_mismatch", outcome)
	}
	if h.store.saves != 0 {
		t.Error("foreign habit paid out")
	}
}

func TestReconcileAction_CompletionPays(t *testing.T) {
	h := newHarness(t)

	before := baseAction()
	after := baseAction()
	after.Status = models.ActionStatusCompleted

	outcome, err := h.reconciler.ReconcileAction(context.Background(), before, after)
	if err != nil {
		t.Fatalf("ReconcileAction() error = %v", err)
	}
	if outcome.Result != ResultPaid {
		t.Fatalf("outcome = %+v, want paid", outcome)
	}

	event := h.store.events[ActionEventKey("a1")]
	if event == nil {
		t.Fatal("no ledger entry written")
	}
	if event.TotalPoints != 5 || event.Reason != "Stretch" {
		t.Errorf("event = %+v", event)
	}
	if len(h.classifier.requested) != 0 {
		t.Errorf("classifier called on update: %v", h.classifier.requested)
	}
}

func TestReconcileAction_ArchiveVoids(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	completed := baseAction()
	completed.Status = models.ActionStatusCompleted
	if _, err := h.reconciler.ReconcileAction(ctx, baseAction(), completed); err != nil {
		t.Fatal(err)
	}

	now := fixedNow()
	archived := baseAction()
	archived.Status = models.ActionStatusCompleted
	archived.ArchivedAt = &now

	// Archiving changes the projection but not payability: the entry
	// stays in whatever shape the completed state produced.
	outcome, err := h.reconciler.ReconcileAction(ctx, completed, archived)
	if err != nil {
		t.Fatalf("ReconcileAction() error = %v", err)
	}
	if outcome.Result != ResultNoop || outcome.Reason != ReasonUnchanged {
		t.Errorf("outcome = %+v, want noop/unchanged", outcome)
	}
}

func TestReconcileAction_ClassifierOnCreation(t *testing.T) {
	tests := []struct {
		name   string
		action func() *models.Action
		want   int
	}{
		{
			name: "new action without bounty",
			action: func() *models.Action {
				a := baseAction()
				a.Bounties = nil
				return a
			},
			want: 1,
		},
		{
			name:   "new action with valid bounty",
			action: baseAction,
			want:   0,
		},
		{
			name: "archived action",
			action: func() *models.Action {
				now := fixedNow()
				a := baseAction()
				a.Bounties = nil
				a.ArchivedAt = &now
				return a
			},
			want: 0,
		},
		{
			name: "template-derived action",
			action: func() *models.Action {
				a := baseAction()
				a.Bounties = nil
				a.TemplateID = "tmpl-1"
				return a
			},
			want: 0,
		},
		{
			name: "no text to classify",
			action: func() *models.Action {
				a := baseAction()
				a.Bounties = nil
				a.Title = ""
				a.Notes = ""
				return a
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if _, err := h.reconciler.ReconcileAction(context.Background(), nil, tt.action()); err != nil {
				t.Fatalf("ReconcileAction() error = %v", err)
			}
			if len(h.classifier.requested) != tt.want {
				t.Errorf("classifier calls = %d, want %d", len(h.classifier.requested), tt.want)
			}
		})
	}
}
