package reconcile

import (
	"fmt"

	"github.com/pillarday/pointsengine/pointsengine/database/models"
)

const (
	// MaxAllocations caps how many pillars one bounty may be split across.
	MaxAllocations = 3
	// MaxAllocationPoints caps a single entry in the list form.
	MaxAllocationPoints = 100
	// MaxTotalPoints caps the sum of an event's allocations.
	MaxTotalPoints = 150
)

// BountySpec carries an entity's raw bounty fields into the normalizer.
// Either Allocations (list form) or Points (single form) is set; the
// fallback pillar id covers entities that only carry a generic pillar
// field instead of a bounty-specific one.
type BountySpec struct {
	Allocations      []models.Allocation
	Points           *int
	PillarID         string
	FallbackPillarID string
}

// TodoBounty extracts the bounty configuration of a todo.
func TodoBounty(t *models.Todo) BountySpec {
	return BountySpec{
		Allocations:      t.BountyAllocations,
		Points:           t.BountyPoints,
		PillarID:         t.BountyPillarID,
		FallbackPillarID: t.PillarID,
	}
}

// HabitBounty extracts the bounty configuration of a habit. Habit logs
// carry no bounty of their own; payouts always come from the parent.
func HabitBounty(h *models.Habit) BountySpec {
	return BountySpec{
		Allocations:      h.BountyAllocations,
		Points:           h.BountyPoints,
		PillarID:         h.BountyPillarID,
		FallbackPillarID: h.PillarID,
	}
}

// ActionBounty extracts the bounty list of an action.
func ActionBounty(a *models.Action) BountySpec {
	return BountySpec{Allocations: a.Bounties}
}

// NormalizeBounty parses a bounty configuration into a canonical
// allocation list. It returns (nil, "") when no bounty is configured and
// (nil, diagnostic) when the configuration is malformed. Diagnostics are
// data for the caller to log, never errors: a broken bounty must not make
// the triggering write retryable.
func NormalizeBounty(spec BountySpec) ([]models.Allocation, string) {
	if len(spec.Allocations) > 0 {
		return normalizeList(spec.Allocations)
	}
	if spec.Points != nil {
		return normalizeSingle(*spec.Points, spec.PillarID, spec.FallbackPillarID)
	}
	return nil, ""
}

func normalizeList(allocations []models.Allocation) ([]models.Allocation, string) {
	if len(allocations) > MaxAllocations {
		return nil, fmt.Sprintf("bounty has %d allocations, at most %d are allowed", len(allocations), MaxAllocations)
	}

	normalized := make([]models.Allocation, 0, len(allocations))
	seen := make(map[string]bool, len(allocations))
	total := 0

	for i, alloc := range allocations {
		if alloc.PillarID == "" {
			return nil, fmt.Sprintf("allocation %d has an empty pillar id", i)
		}
		if seen[alloc.PillarID] {
			return nil, fmt.Sprintf("allocation %d repeats pillar %s", i, alloc.PillarID)
		}
		if alloc.Points < 1 || alloc.Points > MaxAllocationPoints {
			return nil, fmt.Sprintf("allocation %d for pillar %s has %d points, must be between 1 and %d",
				i, alloc.PillarID, alloc.Points, MaxAllocationPoints)
		}

		// Checked incrementally so the first offending entry is named.
		total += alloc.Points
		if total > MaxTotalPoints {
			return nil, fmt.Sprintf("allocation %d for pillar %s pushes the total to %d, cap is %d",
				i, alloc.PillarID, total, MaxTotalPoints)
		}

		seen[alloc.PillarID] = true
		normalized = append(normalized, alloc)
	}

	return normalized, ""
}

func normalizeSingle(points int, pillarID, fallbackPillarID string) ([]models.Allocation, string) {
	if points < 1 || points > MaxTotalPoints {
		return nil, fmt.Sprintf("bounty points %d out of range, must be between 1 and %d", points, MaxTotalPoints)
	}

	id := pillarID
	if id == "" {
		id = fallbackPillarID
	}
	if id == "" {
		return nil, fmt.Sprintf("bounty of %d points has no pillar id", points)
	}

	return []models.Allocation{{PillarID: id, Points: points}}, ""
}
