package engine

import (
	"sync"
	"time"

	"github.com/c360/agentbridge/cache"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// Config controls engine behavior. Zero values take the documented
// defaults.
type Config struct {
	MinConfidence    float64       // Reject translations scoring below this (default 0.5)
	MaxRetries       int           // Retries after the initial attempt (default 2)
	RetryBackoff     time.Duration // First retry delay, doubled per attempt (default 100ms)
	RetryBackoffMax  time.Duration // Backoff ceiling (default 2s)
	DisableFallbacks bool          // Leave capability gaps unresolved instead of applying fallbacks
}

func (c *Config) normalize() {
	if c.MinConfidence <= 0 || c.MinConfidence > 1 {
		c.MinConfidence = 0.5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.RetryBackoffMax <= 0 {
		c.RetryBackoffMax = 2 * time.Second
	}
}

// Result is the structured outcome of one Translate call. Expected failure
// modes set Success=false and Err; they are never raised as Go errors past
// the public boundary.
type Result struct {
	Success    bool                     `json:"success"`
	Message    *message.ProtocolMessage `json:"message,omitempty"`
	Confidence intent.Confidence        `json:"confidence"`
	CacheHit   bool                     `json:"cacheHit"`
	CacheTier  cache.Tier               `json:"cacheTier,omitempty"`
	Fallbacks  []string                 `json:"fallbacksUsed,omitempty"`
	Attempts   int                      `json:"attempts"`
	Duration   time.Duration            `json:"duration"`
	Err        error                    `json:"-"`
	ErrorType  errors.Type              `json:"errorType,omitempty"`
}

// Metrics is a snapshot of engine-level rolling statistics. Average latency
// covers non-cache-hit calls only.
type Metrics struct {
	Translations  int64         `json:"translations"`
	Successes     int64         `json:"successes"`
	Failures      int64         `json:"failures"`
	CacheHits     int64         `json:"cacheHits"`
	AvgConfidence float64       `json:"avgConfidence"`
	AvgLatency    time.Duration `json:"avgLatency"`
}

// rollingMetrics accumulates the running averages behind Metrics.
type rollingMetrics struct {
	mu            sync.Mutex
	translations  int64
	successes     int64
	failures      int64
	cacheHits     int64
	confidenceSum float64
	latencySum    time.Duration
	latencyCount  int64
}

func (m *rollingMetrics) recordSuccess(confidence float64, latency time.Duration, cacheHit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations++
	m.successes++
	m.confidenceSum += confidence
	if cacheHit {
		m.cacheHits++
	} else {
		m.latencySum += latency
		m.latencyCount++
	}
}

func (m *rollingMetrics) recordFailure(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations++
	m.failures++
	m.latencySum += latency
	m.latencyCount++
}

func (m *rollingMetrics) snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Metrics{
		Translations: m.translations,
		Successes:    m.successes,
		Failures:     m.failures,
		CacheHits:    m.cacheHits,
	}
	if m.successes > 0 {
		out.AvgConfidence = m.confidenceSum / float64(m.successes)
	}
	if m.latencyCount > 0 {
		out.AvgLatency = m.latencySum / time.Duration(m.latencyCount)
	}
	return out
}
