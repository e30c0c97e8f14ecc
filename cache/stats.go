package cache

import (
	"sync/atomic"
)

// TierStats tracks per-tier cache counters. All methods are safe for
// concurrent use.
type TierStats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	errors    atomic.Int64
}

func (s *TierStats) hit()      { s.hits.Add(1) }
func (s *TierStats) miss()     { s.misses.Add(1) }
func (s *TierStats) set()      { s.sets.Add(1) }
func (s *TierStats) eviction() { s.evictions.Add(1) }
func (s *TierStats) failure()  { s.errors.Add(1) }

// Snapshot is a point-in-time view of one tier's counters.
type Snapshot struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Evictions int64   `json:"evictions"`
	Errors    int64   `json:"errors"`
	HitRatio  float64 `json:"hitRatio"`
}

// Snapshot returns the current counter values.
func (s *TierStats) Snapshot() Snapshot {
	hits := s.hits.Load()
	misses := s.misses.Load()
	snap := Snapshot{
		Hits:      hits,
		Misses:    misses,
		Sets:      s.sets.Load(),
		Evictions: s.evictions.Load(),
		Errors:    s.errors.Load(),
	}
	if total := hits + misses; total > 0 {
		snap.HitRatio = float64(hits) / float64(total)
	}
	return snap
}

// Stats aggregates the three tiers' snapshots.
type Stats struct {
	L1     Snapshot `json:"l1"`
	L2     Snapshot `json:"l2"`
	L3     Snapshot `json:"l3"`
	L1Size int      `json:"l1Size"`
}
