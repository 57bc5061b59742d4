// Package cache holds raw source snapshots between refreshes. The cache has
// no TTL of its own: entries live until the next forced refresh overwrites
// them, and a miss always falls back to a fresh fetch.
package cache

import (
	"context"
	"time"
)

// Snapshot is one source's raw payload as fetched, before normalization.
type Snapshot struct {
	Source    string    `json:"source"`
	CycleID   string    `json:"cycle_id"`
	FetchedAt time.Time `json:"fetched_at"`
	Payload   []byte    `json:"payload"`
}

// Store persists snapshots per source. Implementations return
// sentinel.ErrCacheMiss when no snapshot exists.
type Store interface {
	Get(ctx context.Context, src string) (*Snapshot, error)
	Put(ctx context.Context, snap *Snapshot) error
}
