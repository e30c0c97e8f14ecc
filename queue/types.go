// Package queue implements the prioritized translation work queue: batch
// accumulation with a critical-priority bypass, admission control with
// backpressure, a bounded worker pool partitioned by translation direction,
// exponential-backoff retry, and a dead-letter store with replay.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/c360/agentbridge/message"
)

// Priority orders queue entries. Higher values drain first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String renders the priority for logs and metrics labels.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// Valid reports whether p is one of the four levels.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// State tracks an entry through its lifecycle. Terminal states are
// StateSuccess and StateDeadLetter.
type State string

const (
	StatePending        State = "pending"
	StateProcessing     State = "processing"
	StateSuccess        State = "success"
	StateRetryScheduled State = "retry-scheduled"
	StateDeadLetter     State = "dead-letter"
)

// Processor handles one queued message and returns the translated result.
// Processors are registered per direction.
type Processor func(ctx *ProcessContext) (*message.ProtocolMessage, error)

// ProcessContext carries the entry being processed.
type ProcessContext struct {
	Message   *message.ProtocolMessage
	Direction message.Direction
	Priority  Priority
	Attempt   int
	SessionID string
	Metadata  map[string]any
}

// Result is delivered to the caller awaiting an enqueued entry.
type Result struct {
	ID       string
	Message  *message.ProtocolMessage
	Err      error
	Attempts int
	Duration time.Duration
}

// Entry is one unit of queued work. The done channel is buffered so the
// resolving worker never blocks on a departed caller. SessionID is taken
// from the message; MaxRetries, when non-zero, overrides the queue-wide
// retry budget for this entry alone.
type Entry struct {
	ID         string
	Message    *message.ProtocolMessage
	Direction  message.Direction
	Priority   Priority
	SessionID  string
	Attempts   int
	MaxRetries int
	Metadata   map[string]any
	State      State
	EnqueuedAt time.Time

	done chan *Result
}

func newEntry(msg *message.ProtocolMessage, direction message.Direction, priority Priority) *Entry {
	entry := &Entry{
		ID:         uuid.New().String(),
		Message:    msg,
		Direction:  direction,
		Priority:   priority,
		State:      StatePending,
		EnqueuedAt: time.Now(),
		done:       make(chan *Result, 1),
	}
	if msg != nil {
		entry.SessionID = msg.SessionID
	}
	return entry
}

// retryBudget resolves the entry's effective retry budget against the
// queue-wide default. Negative overrides disable retries outright.
func (e *Entry) retryBudget(queueMax int) int {
	switch {
	case e.MaxRetries < 0:
		return 0
	case e.MaxRetries > 0:
		return e.MaxRetries
	}
	return queueMax
}

// EnqueueOption adjusts a single enqueued entry.
type EnqueueOption func(*Entry)

// WithMaxRetries overrides the queue-wide retry budget for one entry.
// Negative values disable retries for it entirely.
func WithMaxRetries(n int) EnqueueOption {
	return func(e *Entry) { e.MaxRetries = n }
}

// WithEntryMetadata attaches caller metadata to the entry. It travels with
// the entry into the dead-letter store and is visible to the processor.
func WithEntryMetadata(md map[string]any) EnqueueOption {
	return func(e *Entry) { e.Metadata = md }
}

// resolve delivers the terminal result exactly once.
func (e *Entry) resolve(r *Result) {
	select {
	case e.done <- r:
	default:
	}
}

// BatchEntry is one element of an EnqueueBatch call.
type BatchEntry struct {
	Message    *message.ProtocolMessage
	Direction  message.Direction
	Priority   Priority
	MaxRetries int
	Metadata   map[string]any
}

// BatchResult aggregates the per-entry outcomes of a batch enqueue.
type BatchResult struct {
	Results   []*Result
	Succeeded int
	Failed    int
}

// Config controls queue behavior. Zero values take the documented defaults.
type Config struct {
	MaxQueueSize          int           // Admission bound (default 1000)
	BackpressureThreshold float64       // Reject above this fraction of MaxQueueSize (default 0.8)
	BatchSize             int           // Flush the accumulation buffer at this size (default 10)
	BatchTimeout          time.Duration // Flush the buffer after this long regardless of size (default 50ms)
	Concurrency           int           // Worker count (default 10)
	DirectionConcurrency  map[string]int // Optional per-direction caps, keyed by Direction.String()
	MaxRetries            int           // Retries after the initial attempt (default 3)
	RetryBase             time.Duration // First backoff delay (default 100ms)
	RetryMax              time.Duration // Backoff ceiling (default 5s)
}

func (c *Config) normalize() {
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 1000
	}
	if c.BackpressureThreshold <= 0 || c.BackpressureThreshold > 1 {
		c.BackpressureThreshold = 0.8
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 50 * time.Millisecond
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 100 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5 * time.Second
	}
}
