package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/event"
	"github.com/c360/agentbridge/message"
	"github.com/c360/agentbridge/pkg/retry"
)

// Queue is the prioritized translation work queue. Construct with New,
// call Start before enqueueing, and Close to tear down.
type Queue struct {
	cfg    Config
	logger *slog.Logger
	bus    *event.Bus

	depthGauge        *prometheus.GaugeVec
	deadLetterCounter *prometheus.CounterVec

	procMu     sync.RWMutex
	processors map[string]Processor

	dispatch chan *Entry

	batchMu    sync.Mutex
	batch      []*Entry
	batchTimer *time.Timer

	pauseMu  sync.Mutex
	paused   bool
	resumeCh chan struct{}

	dirSem map[string]chan struct{}

	stats  counters
	window rollingWindow
	dead   *deadLetterStore

	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// WithBus wires the observability event bus.
func WithBus(bus *event.Bus) Option {
	return func(q *Queue) { q.bus = bus }
}

// WithDepthGauge wires the per-direction queue depth gauge (label: direction).
func WithDepthGauge(g *prometheus.GaugeVec) Option {
	return func(q *Queue) { q.depthGauge = g }
}

// WithDeadLetterCounter wires the per-direction dead-letter counter
// (label: direction).
func WithDeadLetterCounter(c *prometheus.CounterVec) Option {
	return func(q *Queue) { q.deadLetterCounter = c }
}

// New builds a queue with the given configuration.
func New(cfg Config, opts ...Option) *Queue {
	cfg.normalize()

	q := &Queue{
		cfg:        cfg,
		logger:     slog.Default(),
		processors: make(map[string]Processor),
		dispatch:   make(chan *Entry, cfg.MaxQueueSize),
		dead:       newDeadLetterStore(),
	}
	for _, opt := range opts {
		opt(q)
	}

	if len(cfg.DirectionConcurrency) > 0 {
		q.dirSem = make(map[string]chan struct{}, len(cfg.DirectionConcurrency))
		for direction, limit := range cfg.DirectionConcurrency {
			if limit > 0 {
				q.dirSem[direction] = make(chan struct{}, limit)
			}
		}
	}
	return q
}

// Start launches the worker pool and the throughput sampler.
func (q *Queue) Start(ctx context.Context) error {
	if !q.started.CompareAndSwap(false, true) {
		return errors.New(errors.TypeUnknown, "queue", "Start", "queue already started")
	}

	q.runCtx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Concurrency; i++ {
		q.wg.Add(1)
		go q.worker(q.runCtx)
	}
	q.wg.Add(1)
	go q.throughputSampler(q.runCtx)

	q.logger.Info("queue started",
		"concurrency", q.cfg.Concurrency,
		"maxQueueSize", q.cfg.MaxQueueSize,
		"batchSize", q.cfg.BatchSize)
	return nil
}

// RegisterProcessor installs the handler for one translation direction,
// replacing any previous registration.
func (q *Queue) RegisterProcessor(direction message.Direction, fn Processor) {
	q.procMu.Lock()
	defer q.procMu.Unlock()
	q.processors[direction.String()] = fn
}

func (q *Queue) processor(direction string) (Processor, bool) {
	q.procMu.RLock()
	defer q.procMu.RUnlock()
	fn, ok := q.processors[direction]
	return fn, ok
}

// Enqueue admits a message for translation and awaits its terminal result.
// Critical-priority entries skip batch accumulation and dispatch
// immediately; all others accumulate until the batch fills or its timeout
// elapses. The returned Result carries the processing error for failed
// entries; the error return covers admission rejection and caller
// cancellation only.
func (q *Queue) Enqueue(ctx context.Context, msg *message.ProtocolMessage, direction message.Direction, priority Priority, opts ...EnqueueOption) (*Result, error) {
	entry, err := q.admit(msg, direction, priority, opts...)
	if err != nil {
		return nil, err
	}

	if priority == PriorityCritical {
		if err := q.submit(ctx, entry); err != nil {
			return nil, err
		}
	} else {
		q.accumulate(entry)
	}

	select {
	case result := <-entry.done:
		return result, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "queue", "Enqueue", "await entry "+entry.ID)
	}
}

// EnqueueBatch admits several entries and awaits all of them.
func (q *Queue) EnqueueBatch(ctx context.Context, entries []BatchEntry) (*BatchResult, error) {
	results := make([]*Result, len(entries))
	var wg sync.WaitGroup
	for i, be := range entries {
		wg.Add(1)
		go func(i int, be BatchEntry) {
			defer wg.Done()
			var opts []EnqueueOption
			if be.MaxRetries != 0 {
				opts = append(opts, WithMaxRetries(be.MaxRetries))
			}
			if be.Metadata != nil {
				opts = append(opts, WithEntryMetadata(be.Metadata))
			}
			result, err := q.Enqueue(ctx, be.Message, be.Direction, be.Priority, opts...)
			if err != nil {
				result = &Result{Err: err}
			}
			results[i] = result
		}(i, be)
	}
	wg.Wait()

	batch := &BatchResult{Results: results}
	for _, r := range results {
		if r.Err != nil {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}
	return batch, nil
}

// admit applies lifecycle and backpressure checks and reserves queue space.
func (q *Queue) admit(msg *message.ProtocolMessage, direction message.Direction, priority Priority, opts ...EnqueueOption) (*Entry, error) {
	if q.closed.Load() {
		return nil, errors.Wrap(errors.ErrQueueShutDown, "queue", "Enqueue", "admit")
	}
	if !priority.Valid() {
		priority = PriorityNormal
	}

	threshold := int64(float64(q.cfg.MaxQueueSize) * q.cfg.BackpressureThreshold)
	if q.stats.pending.Add(1) > threshold {
		q.stats.pending.Add(-1)
		q.publish(event.QueueBackpressure, map[string]any{
			"direction": direction.String(),
			"limit":     threshold,
		})
		return nil, errors.Wrap(errors.ErrBackpressure, "queue", "Enqueue",
			"admit "+direction.String())
	}

	entry := newEntry(msg, direction, priority)
	for _, opt := range opts {
		opt(entry)
	}
	if q.depthGauge != nil {
		q.depthGauge.WithLabelValues(direction.String()).Inc()
	}
	return entry, nil
}

func (q *Queue) submit(ctx context.Context, entry *Entry) error {
	select {
	case q.dispatch <- entry:
		return nil
	case <-ctx.Done():
		q.release(entry)
		return errors.Wrap(ctx.Err(), "queue", "Enqueue", "dispatch entry "+entry.ID)
	}
}

// accumulate buffers a non-critical entry, flushing when the batch fills.
func (q *Queue) accumulate(entry *Entry) {
	q.batchMu.Lock()
	q.batch = append(q.batch, entry)
	if len(q.batch) >= q.cfg.BatchSize {
		batch := q.takeBatchLocked()
		q.batchMu.Unlock()
		q.flush(batch)
		return
	}
	if q.batchTimer == nil {
		q.batchTimer = time.AfterFunc(q.cfg.BatchTimeout, q.flushOnTimeout)
	}
	q.batchMu.Unlock()
}

func (q *Queue) flushOnTimeout() {
	q.batchMu.Lock()
	batch := q.takeBatchLocked()
	q.batchMu.Unlock()
	q.flush(batch)
}

// takeBatchLocked detaches the accumulation buffer. Caller holds batchMu.
func (q *Queue) takeBatchLocked() []*Entry {
	batch := q.batch
	q.batch = nil
	if q.batchTimer != nil {
		q.batchTimer.Stop()
		q.batchTimer = nil
	}
	return batch
}

// flush stable-sorts a batch by priority and hands it to the workers.
// Stability preserves FIFO order within each priority level because the
// buffer is already in enqueue order.
func (q *Queue) flush(batch []*Entry) {
	if len(batch) == 0 {
		return
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Priority > batch[j].Priority
	})
	for _, entry := range batch {
		select {
		case q.dispatch <- entry:
		default:
			// Admission control bounds pending entries below the channel
			// capacity, so this only trips when the queue is torn down
			// mid-flush.
			q.finalize(entry, &Result{ID: entry.ID, Err: errors.ErrQueueShutDown, Attempts: entry.Attempts})
		}
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-q.dispatch:
			if err := q.waitResumed(ctx); err != nil {
				q.finalize(entry, &Result{ID: entry.ID, Err: errors.ErrQueueShutDown, Attempts: entry.Attempts})
				return
			}
			q.process(ctx, entry)
		}
	}
}

// waitResumed blocks while the queue is paused.
func (q *Queue) waitResumed(ctx context.Context) error {
	for {
		q.pauseMu.Lock()
		if !q.paused {
			q.pauseMu.Unlock()
			return nil
		}
		resume := q.resumeCh
		q.pauseMu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resume:
		}
	}
}

func (q *Queue) process(ctx context.Context, entry *Entry) {
	fn, ok := q.processor(entry.Direction.String())
	if !ok {
		q.stats.failed.Add(1)
		q.finalize(entry, &Result{
			ID:       entry.ID,
			Err:      errors.Wrap(errors.ErrNoProcessor, "queue", "process", entry.Direction.String()),
			Attempts: entry.Attempts,
		})
		return
	}

	if sem, ok := q.dirSem[entry.Direction.String()]; ok {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			q.finalize(entry, &Result{ID: entry.ID, Err: errors.ErrQueueShutDown, Attempts: entry.Attempts})
			return
		}
	}

	entry.State = StateProcessing
	if q.stats.active.Add(1) == 1 {
		q.publish(event.QueueActive, nil)
	}

	start := time.Now()
	out, err := fn(&ProcessContext{
		Message:   entry.Message,
		Direction: entry.Direction,
		Priority:  entry.Priority,
		Attempt:   entry.Attempts,
		SessionID: entry.SessionID,
		Metadata:  entry.Metadata,
	})
	duration := time.Since(start)
	q.window.record(duration)

	if q.stats.active.Add(-1) == 0 && q.stats.pending.Load() == 0 {
		q.publish(event.QueueIdle, nil)
	}

	if err == nil {
		entry.State = StateSuccess
		q.stats.processed.Add(1)
		q.finalize(entry, &Result{
			ID:       entry.ID,
			Message:  out,
			Attempts: entry.Attempts,
			Duration: duration,
		})
		return
	}

	q.stats.failed.Add(1)
	if entry.Attempts < entry.retryBudget(q.cfg.MaxRetries) && !retry.IsNonRetryable(err) {
		q.reschedule(entry, err)
		return
	}
	q.deadLetter(entry, err, duration)
}

// reschedule re-queues a failed entry after exponential backoff, preserving
// its priority.
func (q *Queue) reschedule(entry *Entry, cause error) {
	delay := retry.Backoff(q.cfg.RetryBase, 2, entry.Attempts, q.cfg.RetryMax)
	entry.Attempts++
	entry.State = StateRetryScheduled

	q.logger.Debug("entry retry scheduled",
		"entry", entry.ID,
		"direction", entry.Direction.String(),
		"attempt", entry.Attempts,
		"delay", delay,
		"error", cause)

	time.AfterFunc(delay, func() {
		entry.State = StatePending
		select {
		case q.dispatch <- entry:
		case <-q.runCtx.Done():
			q.finalize(entry, &Result{ID: entry.ID, Err: errors.ErrQueueShutDown, Attempts: entry.Attempts})
		}
	})
}

// deadLetter moves an exhausted entry into the dead-letter store and
// resolves its waiter with a retries-exhausted failure.
func (q *Queue) deadLetter(entry *Entry, cause error, duration time.Duration) {
	entry.State = StateDeadLetter
	q.dead.add(entry)
	q.stats.deadLetter.Add(1)
	if q.deadLetterCounter != nil {
		q.deadLetterCounter.WithLabelValues(entry.Direction.String()).Inc()
	}

	q.logger.Warn("entry dead-lettered",
		"entry", entry.ID,
		"direction", entry.Direction.String(),
		"attempts", entry.Attempts,
		"error", cause)

	q.release(entry)
	entry.resolve(&Result{
		ID:       entry.ID,
		Err:      errors.Wrap(errors.ErrRetriesExhausted, "queue", "process", "entry "+entry.ID),
		Attempts: entry.Attempts,
		Duration: duration,
	})
}

// finalize resolves an entry's waiter and releases its queue slot.
func (q *Queue) finalize(entry *Entry, result *Result) {
	q.release(entry)
	entry.resolve(result)
}

// release frees the admission slot held by entry.
func (q *Queue) release(entry *Entry) {
	q.stats.pending.Add(-1)
	if q.depthGauge != nil {
		q.depthGauge.WithLabelValues(entry.Direction.String()).Dec()
	}
}

// Pause stops workers from picking up new entries. In-flight entries run to
// completion; enqueues are still admitted.
func (q *Queue) Pause() {
	q.pauseMu.Lock()
	defer q.pauseMu.Unlock()
	if q.paused {
		return
	}
	q.paused = true
	q.resumeCh = make(chan struct{})
	q.publish(event.QueuePaused, nil)
}

// Resume releases paused workers.
func (q *Queue) Resume() {
	q.pauseMu.Lock()
	defer q.pauseMu.Unlock()
	if !q.paused {
		return
	}
	q.paused = false
	close(q.resumeCh)
	q.publish(event.QueueResumed, nil)
}

// Clear drops all pending entries, resolving their waiters with a shutdown
// error. In-flight entries and the dead-letter store are untouched.
func (q *Queue) Clear() int {
	q.batchMu.Lock()
	batch := q.takeBatchLocked()
	q.batchMu.Unlock()

	cleared := 0
	for _, entry := range batch {
		q.finalize(entry, &Result{ID: entry.ID, Err: errors.ErrQueueShutDown, Attempts: entry.Attempts})
		cleared++
	}

	for {
		select {
		case entry := <-q.dispatch:
			q.finalize(entry, &Result{ID: entry.ID, Err: errors.ErrQueueShutDown, Attempts: entry.Attempts})
			cleared++
		default:
			q.publish(event.QueueCleared, map[string]any{"cleared": cleared})
			return cleared
		}
	}
}

// DeadLetters returns a snapshot of dead-lettered entries for a direction.
func (q *Queue) DeadLetters(direction message.Direction) []*Entry {
	return q.dead.list(direction.String())
}

// ReprocessDeadLetter resets and re-enqueues dead-lettered entries for a
// direction at their original priority. With no ids, the whole group is
// replayed. Returns the number of entries re-enqueued; naming an id with no
// dead-lettered entry fails after the found ones are replayed.
func (q *Queue) ReprocessDeadLetter(ctx context.Context, direction message.Direction, ids ...string) (int, error) {
	if q.closed.Load() {
		return 0, errors.Wrap(errors.ErrQueueShutDown, "queue", "ReprocessDeadLetter", "admit")
	}

	entries := q.dead.take(direction.String(), ids...)
	requeued := 0
	for _, entry := range entries {
		entry.Attempts = 0
		entry.State = StatePending
		entry.done = make(chan *Result, 1)

		q.stats.pending.Add(1)
		if q.depthGauge != nil {
			q.depthGauge.WithLabelValues(entry.Direction.String()).Inc()
		}
		if err := q.submit(ctx, entry); err != nil {
			return requeued, err
		}
		requeued++
	}

	if len(ids) > 0 && len(entries) < len(ids) {
		return requeued, errors.Wrap(errors.ErrEntryNotFound, "queue", "ReprocessDeadLetter",
			direction.String())
	}

	q.logger.Info("dead-letter replay",
		"direction", direction.String(),
		"requeued", requeued)
	return requeued, nil
}

// Metrics returns a point-in-time view of queue health. Pending excludes
// entries currently being processed; DeadLetter reflects the store's
// current population, not the cumulative count.
func (q *Queue) Metrics() Metrics {
	active := q.stats.active.Load()
	pending := q.stats.pending.Load() - active
	if pending < 0 {
		pending = 0
	}
	return Metrics{
		Pending:           pending,
		Active:            active,
		Processed:         q.stats.processed.Load(),
		Failed:            q.stats.failed.Load(),
		DeadLetter:        int64(q.dead.size()),
		AvgProcessingTime: q.window.average(),
		ThroughputPerSec:  q.stats.throughput.Load(),
	}
}

// throughputSampler updates the 1-second processed-counter delta.
func (q *Queue) throughputSampler(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	last := q.stats.processed.Load()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := q.stats.processed.Load()
			q.stats.throughput.Store(current - last)
			last = current
		}
	}
}

// Close stops admission, releases workers, and resolves any still-queued
// entries with a shutdown error. Safe to call more than once.
func (q *Queue) Close() {
	if !q.closed.CompareAndSwap(false, true) {
		return
	}
	q.Resume()
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	q.Clear()
	q.logger.Info("queue closed")
}

func (q *Queue) publish(t event.Type, fields map[string]any) {
	if q.bus != nil {
		q.bus.Publish(t, fields)
	}
}
