package retention

import (
	"cmp"
	"slices"
	"time"

	"github.com/raoulx24/hcloud-snap-rotate/internal/snapshot"
)

// Rename is a kept snapshot whose description no longer matches its slot.
type Rename struct {
	Snapshot    *snapshot.Snapshot
	Slot        Slot
	Description string
}

// Plan is the outcome of a rotation for one server.
type Plan struct {
	Keep   Assignment
	Rename []Rename
	// Delete lists discarded snapshots, oldest first.
	Delete []*snapshot.Snapshot
	// Protected lists discarded snapshots that are delete-protected. They are
	// neither deleted nor renamed.
	Protected []*snapshot.Snapshot
}

// NewPlan rotates all snapshots of one server.
//
// The anchor is fresh, the snapshot taken by the current run, or the newest
// snapshot when fresh is nil. It is held out of the rotation, kept as the
// first latest snapshot and its creation time is the rotation reference.
// It counts towards Policy.Latest but is kept even when Latest is zero. ref
// is only used when there are no snapshots at all.
//
// fresh is never renamed: its creator named it for the first latest slot.
func NewPlan(p Policy, all []*snapshot.Snapshot, fresh *snapshot.Snapshot, ref time.Time, namer snapshot.Namer) Plan {
	candidates := slices.DeleteFunc(slices.Clone(all), func(s *snapshot.Snapshot) bool {
		return s == nil || s == fresh
	})

	anchor := fresh
	if anchor == nil && len(candidates) > 0 {
		newest := slices.Clone(candidates)
		snapshot.SortNewestFirst(newest)
		anchor = newest[0]
		candidates = slices.DeleteFunc(candidates, func(s *snapshot.Snapshot) bool { return s == anchor })
	}

	limit := p.latestLimit()
	if anchor != nil {
		ref = anchor.Created
		if limit > 0 {
			limit--
		}
	}

	keep, _ := rotate(p, candidates, ref, limit)

	if anchor != nil {
		for s, slot := range keep {
			if slot.Latest {
				slot.Position++
				keep[s] = slot
			}
		}
		keep[anchor] = Slot{Latest: true, Position: 1}
	}

	plan := Plan{Keep: keep}

	for s, slot := range keep {
		if s == fresh {
			continue
		}
		desc := namer.Name(s.ServerName, s.Created, slot.Label(), slot.Position)
		if desc != s.Description {
			plan.Rename = append(plan.Rename, Rename{Snapshot: s, Slot: slot, Description: desc})
		}
	}
	slices.SortFunc(plan.Rename, func(a, b Rename) int {
		return compareSlots(a.Slot, b.Slot)
	})

	for _, s := range candidates {
		if _, ok := keep[s]; ok {
			continue
		}
		if s.Protected {
			plan.Protected = append(plan.Protected, s)
		} else {
			plan.Delete = append(plan.Delete, s)
		}
	}
	oldestFirst := func(a, b *snapshot.Snapshot) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
	slices.SortFunc(plan.Delete, oldestFirst)
	slices.SortFunc(plan.Protected, oldestFirst)

	return plan
}

// compareSlots orders latest slots first, then tiers finest first, then
// positions.
func compareSlots(a, b Slot) int {
	if a.Latest != b.Latest {
		if a.Latest {
			return -1
		}
		return 1
	}
	if !a.Latest {
		if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Position, b.Position)
}
