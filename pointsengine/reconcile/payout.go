package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
)

// MaxReasonLength bounds the human-readable reason on a ledger entry.
const MaxReasonLength = 300

// defaultReason labels entries whose source entity has no usable text.
const defaultReason = "Points earned"

// ledgerDateLayout is the ISO calendar date carried on entities and events.
const ledgerDateLayout = "2006-01-02"

// PillarReader is the read-through dependency used to validate that every
// allocation references a pillar owned by the acting user.
type PillarReader interface {
	GetByID(ctx context.Context, id string) (*models.Pillar, error)
}

// Payout is a validated, resolved set of allocations ready to be written
// to the ledger.
type Payout struct {
	Allocations []models.Allocation
	PillarIDs   []string
	TotalPoints int
	Reason      string
	Date        string
}

// Resolver turns a bounty configuration into a Payout, or into a
// diagnostic explaining why no payout is possible.
type Resolver struct {
	Pillars PillarReader
	Now     func() time.Time
}

func NewResolver(pillars PillarReader, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{Pillars: pillars, Now: now}
}

// Resolve normalizes the bounty and confirms pillar ownership. Returns
// (nil, "", nil) when the entity simply carries no bounty, (nil, diag,
// nil) when the bounty cannot pay out, and a non-nil error only for
// infrastructure failures, which the caller must treat as retryable.
// Repeated pillar lookups within one resolution hit a local cache; the
// cache never outlives the call.
func (r *Resolver) Resolve(ctx context.Context, userID string, spec BountySpec, reasonText, entityDate string) (*Payout, string, error) {
	allocations, diag := NormalizeBounty(spec)
	if diag != "" {
		return nil, diag, nil
	}
	if len(allocations) == 0 {
		return nil, "", nil
	}

	cache := make(map[string]*models.Pillar, len(allocations))
	total := 0
	pillarIDs := make([]string, 0, len(allocations))

	for _, alloc := range allocations {
		pillar, ok := cache[alloc.PillarID]
		if !ok {
			var err error
			pillar, err = r.Pillars.GetByID(ctx, alloc.PillarID)
			if err != nil {
				return nil, "", fmt.Errorf("pillar lookup failed for %s: %w", alloc.PillarID, err)
			}
			cache[alloc.PillarID] = pillar
		}

		// An invalid pillar fails the whole payout. Dropping just the bad
		// allocation would silently change what the user configured.
		if pillar == nil {
			return nil, fmt.Sprintf("pillar %s does not exist", alloc.PillarID), nil
		}
		if pillar.UserID != userID {
			return nil, fmt.Sprintf("pillar %s is not owned by user %s", alloc.PillarID, userID), nil
		}

		total += alloc.Points
		pillarIDs = appendUnique(pillarIDs, alloc.PillarID)
	}

	return &Payout{
		Allocations: allocations,
		PillarIDs:   pillarIDs,
		TotalPoints: total,
		Reason:      buildReason(reasonText),
		Date:        r.ledgerDate(entityDate),
	}, "", nil
}

func (r *Resolver) ledgerDate(entityDate string) string {
	if entityDate != "" {
		if _, err := time.Parse(ledgerDateLayout, entityDate); err == nil {
			return entityDate
		}
	}
	return r.Now().UTC().Format(ledgerDateLayout)
}

func buildReason(text string) string {
	if text == "" {
		return defaultReason
	}
	runes := []rune(text)
	if len(runes) > MaxReasonLength {
		return string(runes[:MaxReasonLength])
	}
	return text
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
