package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
	"github.com/pillarday/pointsengine/pointsengine/reconcile"
)

// ErrMalformed marks change messages that can never be processed. The
// consumer drops these instead of requeueing them.
var ErrMalformed = errors.New("malformed change message")

// ChangeMessage is the delivery envelope published by the CRUD layer for
// every entity write. A null before means creation, a null after means
// deletion, both present means update.
type ChangeMessage struct {
	EntityID string          `json:"entityId"`
	Before   json.RawMessage `json:"before,omitempty"`
	After    json.RawMessage `json:"after,omitempty"`
}

// Handler reconciles one decoded change message.
type Handler func(ctx context.Context, change ChangeMessage) (reconcile.Outcome, error)

// The adapters below carry no business logic: they only turn the
// delivery envelope into the reconciler's typed before/after contract.

func TodoHandler(r *reconcile.Reconciler) Handler {
	return func(ctx context.Context, change ChangeMessage) (reconcile.Outcome, error) {
		before, err := decodeSnapshot[models.Todo](change.Before)
		if err != nil {
			return reconcile.Outcome{}, fmt.Errorf("%w: todo %s before snapshot: %v", ErrMalformed, change.EntityID, err)
		}
		after, err := decodeSnapshot[models.Todo](change.After)
		if err != nil {
			return reconcile.Outcome{}, fmt.Errorf("%w: todo %s after snapshot: %v", ErrMalformed, change.EntityID, err)
		}
		return r.ReconcileTodo(ctx, before, after)
	}
}

func HabitLogHandler(r *reconcile.Reconciler) Handler {
	return func(ctx context.Context, change ChangeMessage) (reconcile.Outcome, error) {
		before, err := decodeSnapshot[models.HabitLog](change.Before)
		if err != nil {
			return reconcile.Outcome{}, fmt.Errorf("%w: habit log %s before snapshot: %v", ErrMalformed, change.EntityID, err)
		}
		after, err := decodeSnapshot[models.HabitLog](change.After)
		if err != nil {
			return reconcile.Outcome{}, fmt.Errorf("%w: habit log %s after snapshot: %v", ErrMalformed, change.EntityID, err)
		}
		return r.ReconcileHabitLog(ctx, before, after)
	}
}

func ActionHandler(r *reconcile.Reconciler) Handler {
	return func(ctx context.Context, change ChangeMessage) (reconcile.Outcome, error) {
		before, err := decodeSnapshot[models.Action](change.Before)
		if err != nil {
			return reconcile.Outcome{}, fmt.Errorf("%w: action %s before snapshot: %v", ErrMalformed, change.EntityID, err)
		}
		after, err := decodeSnapshot[models.Action](change.After)
		if err != nil {
			return reconcile.Outcome{}, fmt.Errorf("%w: action %s after snapshot: %v", ErrMalformed, change.EntityID, err)
		}
		return r.ReconcileAction(ctx, before, after)
	}
}

// decodeSnapshot parses one side of the envelope. Absent and JSON null
// both mean "no snapshot", so the reconciler sees a typed nil.
func decodeSnapshot[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}
