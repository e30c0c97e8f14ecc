// Package cache implements the three-tier translation cache: a bounded
// in-process LRU (tier 1), a shared NATS JetStream KV bucket (tier 2), and a
// durable SQLite store (tier 3). Lookups short-circuit L1→L2→L3 and report
// which tier served the hit; lower-tier hits are promoted upward. Writes are
// confidence-gated so unreliable translations never pollute the hot or
// durable tiers.
package cache

import (
	"time"

	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// Tier identifies which cache level served a lookup.
type Tier string

const (
	// TierL1 is the in-process LRU.
	TierL1 Tier = "l1"
	// TierL2 is the shared distributed KV tier.
	TierL2 Tier = "l2"
	// TierL3 is the durable store.
	TierL3 Tier = "l3"
	// TierMiss means no tier had the key.
	TierMiss Tier = "miss"
)

// Confidence gates. Entries below MinL1Confidence never enter the hot
// cache; entries below MinL3Confidence are never treated as durable truth.
const (
	MinL1Confidence = 0.7
	MinL3Confidence = 0.9
)

// EntryMetadata describes a cache entry's lifecycle.
type EntryMetadata struct {
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	HitCount       int64     `json:"hitCount"`
	Direction      string    `json:"direction"`
	Action         string    `json:"action,omitempty"`
	SizeBytes      int       `json:"sizeBytes"`
}

// Entry is a cached translation result. Entries are immutable once written
// except for the LastAccessedAt/HitCount touch on L1 reads.
type Entry struct {
	Data       *message.ProtocolMessage `json:"data"`
	Confidence intent.Confidence        `json:"confidence"`
	Metadata   EntryMetadata            `json:"metadata"`
}

// NewEntry builds an entry for a translated message.
func NewEntry(data *message.ProtocolMessage, confidence intent.Confidence, direction message.Direction) *Entry {
	now := time.Now().UTC()
	return &Entry{
		Data:       data,
		Confidence: confidence,
		Metadata: EntryMetadata{
			CreatedAt:      now,
			LastAccessedAt: now,
			Direction:      direction.String(),
			SizeBytes:      data.SizeBytes(),
		},
	}
}

// touch updates access metadata on an L1 hit.
func (e *Entry) touch() {
	e.Metadata.LastAccessedAt = time.Now().UTC()
	e.Metadata.HitCount++
}
