// Package retention implements generational snapshot rotation: it partitions
// time into tier buckets walking back from a reference instant and keeps at
// most one snapshot per bucket.
package retention

import (
	"slices"
	"time"

	"github.com/raoulx24/hcloud-snap-rotate/internal/period"
	"github.com/raoulx24/hcloud-snap-rotate/internal/snapshot"
)

// LatestLabel is the period type of snapshots kept by recency alone.
const LatestLabel = "latest"

// Policy configures a rotation.
type Policy struct {
	// Counts holds the number of periods to retain per tier, indexed by tier.
	// A zero count skips the tier.
	Counts [period.Count]uint

	// Sliding selects buckets of fixed length ending at the reference
	// instant instead of calendar aligned buckets.
	Sliding bool

	// Latest is the number of unclaimed snapshots kept by recency. When no
	// tier is configured and Latest is zero, every snapshot is kept. NewPlan
	// counts its anchor towards Latest.
	Latest uint
}

// Configured reports whether any tier has a positive count.
func (p Policy) Configured() bool {
	return slices.ContainsFunc(p.Counts[:], func(c uint) bool { return c > 0 })
}

// Slot is the place a snapshot occupies after a rotation.
type Slot struct {
	Tier period.Tier
	// Latest marks the recency pseudo-tier; Tier is meaningless then.
	Latest   bool
	Position int
}

// Label is the period type used when naming a snapshot in this slot.
func (s Slot) Label() string {
	if s.Latest {
		return LatestLabel
	}
	return s.Tier.ConfigKey()
}

// Assignment maps each kept snapshot to its slot.
type Assignment map[*snapshot.Snapshot]Slot

// Rotate assigns candidates to tier buckets walking back from ref.
//
// Tiers are visited finest first. The first configured tier snaps ref to the
// start of its current period; every position then covers the half-open
// interval [PreviousPeriod(end), end) and claims the oldest candidate in it.
// An empty bucket still uses up its position. Candidates no tier claims are
// ranked newest first into the latest pseudo-tier, bounded by Policy.Latest.
//
// The candidates slice is not modified. The second result holds the
// candidates left without a slot, newest first.
func Rotate(p Policy, candidates []*snapshot.Snapshot, ref time.Time) (Assignment, []*snapshot.Snapshot) {
	return rotate(p, candidates, ref, p.latestLimit())
}

// latestLimit is the bound on the latest pseudo-tier, negative for none.
func (p Policy) latestLimit() int {
	if !p.Configured() && p.Latest == 0 {
		return -1
	}
	return int(p.Latest)
}

// rotate is Rotate with an explicit bound on the latest pseudo-tier. A
// negative limit keeps every leftover.
func rotate(p Policy, candidates []*snapshot.Snapshot, ref time.Time, limit int) (Assignment, []*snapshot.Snapshot) {
	pool := slices.DeleteFunc(slices.Clone(candidates), func(s *snapshot.Snapshot) bool { return s == nil })
	assigned := make(Assignment, len(pool))

	end := ref
	snapped := false

	for _, tier := range period.Tiers {
		count := p.Counts[tier]
		if count == 0 {
			continue
		}
		if !snapped {
			end = period.StartOfPeriod(tier, end)
			snapped = true
		}

		position := 0
		for start := range period.PreviousPeriods(tier, end, int(count), p.Sliding) {
			position++
			if i := oldestIn(pool, start, end); i >= 0 {
				assigned[pool[i]] = Slot{Tier: tier, Position: position}
				pool = slices.Delete(pool, i, i+1)
			}
			end = start
		}
	}

	snapshot.SortNewestFirst(pool)

	keep := len(pool)
	if limit >= 0 {
		keep = min(keep, limit)
	}
	for i, s := range pool[:keep] {
		assigned[s] = Slot{Latest: true, Position: i + 1}
	}

	return assigned, pool[keep:]
}

// oldestIn returns the index of the oldest snapshot created in [start, end),
// or -1. Equal creation times prefer the lower ID.
func oldestIn(pool []*snapshot.Snapshot, start, end time.Time) int {
	found := -1
	for i, s := range pool {
		if s.Created.Before(start) || !s.Created.Before(end) {
			continue
		}
		if found < 0 {
			found = i
			continue
		}
		best := pool[found]
		if s.Created.Before(best.Created) || (s.Created.Equal(best.Created) && s.ID < best.ID) {
			found = i
		}
	}
	return found
}
