package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
)

// EventStore is the slice of the point-event repository the ledger needs.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*models.PointEvent, error)
	Save(ctx context.Context, event *models.PointEvent) error
}

// Ref points a ledger entry back at its originating entity.
type Ref struct {
	Type string
	ID   string
}

// Ledger applies resolved payouts to the point_events store. Both
// operations compare against current state before writing, so they are
// safe to call on every delivery of a change event, duplicates included.
type Ledger struct {
	Store EventStore
	Now   func() time.Time
}

func NewLedger(store EventStore, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{Store: store, Now: now}
}

// Upsert writes the ledger entry for key so it matches the payout.
// Returns false without writing when the entry already has the expected
// shape, or when the existing entry belongs to a different user —
// ownership is never silently transferred. The original created_at
// survives rewrites.
func (l *Ledger) Upsert(ctx context.Context, key, userID string, ref Ref, payout *Payout) (bool, error) {
	existing, err := l.Store.GetByID(ctx, key)
	if err != nil {
		return false, err
	}

	if existing != nil && existing.UserID != "" && existing.UserID != userID {
		slog.Warn("refusing to upsert point event owned by another user",
			slog.String("type", "db"),
			slog.String("event_id", key),
			slog.String("owner", existing.UserID),
			slog.String("caller", userID))
		return false, nil
	}

	expected := &models.PointEvent{
		ID:          key,
		UserID:      userID,
		Date:        payout.Date,
		Reason:      payout.Reason,
		Source:      models.PointEventSource,
		RefType:     ref.Type,
		RefID:       ref.ID,
		Allocations: payout.Allocations,
		PillarIDs:   payout.PillarIDs,
		TotalPoints: payout.TotalPoints,
	}

	if existing != nil && sameShape(existing, expected) {
		return false, nil
	}

	now := l.Now()
	expected.CreatedAt = now
	if existing != nil {
		expected.CreatedAt = existing.CreatedAt
	}
	expected.UpdatedAt = now

	if err := l.Store.Save(ctx, expected); err != nil {
		return false, err
	}
	return true, nil
}

// Void marks the entry for key as no longer in effect. Missing entries,
// foreign-owned entries and already-void entries are all no-ops; the
// entry itself is never deleted, so the award stays auditable.
func (l *Ledger) Void(ctx context.Context, key, userID string) (bool, error) {
	existing, err := l.Store.GetByID(ctx, key)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if existing.UserID != "" && existing.UserID != userID {
		slog.Warn("refusing to void point event owned by another user",
			slog.String("type", "db"),
			slog.String("event_id", key),
			slog.String("owner", existing.UserID),
			slog.String("caller", userID))
		return false, nil
	}

	if existing.Voided() {
		return false, nil
	}

	now := l.Now()
	existing.VoidedAt = &now
	existing.UpdatedAt = now

	if err := l.Store.Save(ctx, existing); err != nil {
		return false, err
	}
	return true, nil
}

// sameShape compares everything the upsert is allowed to rewrite. An
// equal shape means the delivery is a duplicate and no write is needed.
func sameShape(existing, expected *models.PointEvent) bool {
	if existing.UserID != expected.UserID ||
		existing.Date != expected.Date ||
		existing.Reason != expected.Reason ||
		existing.Source != expected.Source ||
		existing.RefType != expected.RefType ||
		existing.RefID != expected.RefID ||
		existing.TotalPoints != expected.TotalPoints ||
		existing.Voided() {
		return false
	}
	if !allocationsEqual(existing.Allocations, expected.Allocations) {
		return false
	}
	return stringSlicesEqual(existing.PillarIDs, expected.PillarIDs)
}

func allocationsEqual(a, b []models.Allocation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
