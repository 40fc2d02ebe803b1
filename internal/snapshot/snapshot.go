// Package snapshot holds the server snapshot model shared by the API client,
// the rotation engine and the rotator.
package snapshot

import (
	"cmp"
	"slices"
	"time"
)

// Snapshot is a point-in-time image of a server.
type Snapshot struct {
	ID          int64
	Description string
	Created     time.Time
	// Protected snapshots are never deleted by a rotation.
	Protected  bool
	ServerID   int64
	ServerName string
}

// SortNewestFirst orders snapshots by creation time, newest first. Equal
// creation times fall back to descending ID so the order is stable across runs.
func SortNewestFirst(s []*Snapshot) {
	slices.SortFunc(s, func(a, b *Snapshot) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
