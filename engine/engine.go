// Package engine orchestrates translations: cache lookup, adapter
// resolution, intent extraction, capability-gap fallbacks, reconstruction,
// confidence scoring, retry, and cache write-through.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/agentbridge/adapter"
	"github.com/c360/agentbridge/cache"
	"github.com/c360/agentbridge/capability"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/event"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
	"github.com/c360/agentbridge/metric"
	"github.com/c360/agentbridge/pkg/retry"
)

// Engine is the public translation surface. Construct with New, register
// adapters, then call Translate from any number of goroutines.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	bus    *event.Bus

	mapper     *intent.Mapper
	negotiator *capability.Negotiator
	cache      *cache.Manager
	core       *metric.Core

	adapterMu sync.RWMutex
	adapters  map[message.Paradigm]adapter.ProtocolAdapter

	contexts *contextStore
	rolling  rollingMetrics

	closed atomic.Bool
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBus wires the observability event bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithCache wires the three-tier cache manager. Without it every call is a
// full translation.
func WithCache(m *cache.Manager) Option {
	return func(e *Engine) { e.cache = m }
}

// WithCoreMetrics wires the Prometheus core metric set.
func WithCoreMetrics(core *metric.Core) Option {
	return func(e *Engine) { e.core = core }
}

// New builds an engine.
func New(cfg Config, opts ...Option) *Engine {
	cfg.normalize()

	e := &Engine{
		cfg:      cfg,
		logger:   slog.Default(),
		adapters: make(map[message.Paradigm]adapter.ProtocolAdapter),
		contexts: newContextStore(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mapper = intent.NewMapper(e.logger)
	e.negotiator = capability.NewNegotiator(e.logger)
	return e
}

// RegisterAdapter installs an adapter for the paradigm its manifest
// declares, replacing any previous registration.
func (e *Engine) RegisterAdapter(a adapter.ProtocolAdapter) error {
	manifest := a.Manifest()
	if !manifest.Paradigm.Valid() {
		return errors.Wrap(errors.ErrUnknownParadigm, "engine", "RegisterAdapter", "manifest paradigm")
	}

	e.adapterMu.Lock()
	e.adapters[manifest.Paradigm] = a
	e.adapterMu.Unlock()

	e.publish(event.AdapterRegistered, map[string]any{
		"paradigm": string(manifest.Paradigm),
		"version":  manifest.Version,
	})
	e.logger.Info("adapter registered", "paradigm", string(manifest.Paradigm), "version", manifest.Version)
	return nil
}

func (e *Engine) adapterFor(p message.Paradigm) (adapter.ProtocolAdapter, bool) {
	e.adapterMu.RLock()
	defer e.adapterMu.RUnlock()
	a, ok := e.adapters[p]
	return a, ok
}

// Translate converts msg into the target paradigm. Expected failure modes
// return a Result with Success=false; the error return is reserved for
// programmer errors: unregistered adapters, invalid paradigms, and calls
// after Shutdown.
func (e *Engine) Translate(ctx context.Context, msg *message.ProtocolMessage, target message.Paradigm, sessionID string) (*Result, error) {
	if e.closed.Load() {
		return nil, errors.Wrap(errors.ErrEngineShutDown, "engine", "Translate", "engine closed")
	}
	if msg == nil {
		return nil, errors.Wrap(errors.ErrInvalidPayload, "engine", "Translate", "nil message")
	}
	if !target.Valid() {
		return nil, errors.Wrap(errors.ErrUnknownParadigm, "engine", "Translate", "target paradigm")
	}

	direction := message.Direction{Source: msg.Paradigm, Target: target}
	tctx := e.contexts.resolve(sessionID, direction)
	start := time.Now()

	key := cache.GenerateKey(msg, direction, sessionID, tctx.StateSize())
	if e.cache != nil {
		if entry, tier := e.cache.Get(ctx, key); tier != cache.TierMiss {
			return e.finishCacheHit(tctx, direction, msg, entry, tier, start), nil
		}
	}

	source, ok := e.adapterFor(msg.Paradigm)
	if !ok {
		return nil, errors.WrapMismatch(errors.ErrAdapterNotRegistered, "engine", "Translate",
			"source "+string(msg.Paradigm))
	}
	tgt, ok := e.adapterFor(target)
	if !ok {
		return nil, errors.WrapMismatch(errors.ErrAdapterNotRegistered, "engine", "Translate",
			"target "+string(target))
	}

	negotiation := e.negotiator.Negotiate(source.Manifest(), tgt.Manifest())

	var (
		lastErr        error
		lastAction     intent.Action
		lowConfRetried bool
		attempts       int
	)
	for attempt := 0; ; attempt++ {
		out, action, conf, fallbacks, err := e.attempt(source, tgt, msg, negotiation.Gaps, tctx)
		attempts = attempt + 1
		lastAction = action
		if err == nil {
			return e.finishSuccess(ctx, tctx, direction, key, msg, out, action, conf, fallbacks, attempts, start), nil
		}
		lastErr = err

		if errors.TypeOf(err) == errors.TypeLowConfidence {
			// Low confidence gets a single bounded retry regardless of the
			// remaining budget.
			if lowConfRetried {
				break
			}
			lowConfRetried = true
		} else if !errors.IsRecoverable(err) || attempt >= e.cfg.MaxRetries {
			break
		}

		e.publish(event.TranslationRetry, map[string]any{
			"direction": direction.String(),
			"attempt":   attempt + 1,
			"error":     err.Error(),
		})

		backoff := retry.Backoff(e.cfg.RetryBackoff, 2, attempt, e.cfg.RetryBackoffMax)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = errors.WrapTimeout(ctx.Err(), "engine", "Translate", "cancelled during backoff")
			return e.finishFailure(tctx, direction, msg, lastAction, lastErr, attempts, start), nil
		case <-timer.C:
		}
	}

	return e.finishFailure(tctx, direction, msg, lastAction, lastErr, attempts, start), nil
}

// attempt performs one extract→fallback→reconstruct→score pass. The
// extracted action is returned on every path so the caller can record it in
// the context history.
func (e *Engine) attempt(
	source, tgt adapter.ProtocolAdapter,
	msg *message.ProtocolMessage,
	gaps []capability.Gap,
	tctx *TranslationContext,
) (*message.ProtocolMessage, intent.Action, intent.Confidence, []string, error) {
	in, err := source.ExtractIntent(msg)
	if err != nil {
		// Extraction failures are absorbed: translate a generic error intent
		// instead of propagating to the transport.
		e.logger.Warn("intent extraction failed, substituting error intent",
			"message_id", msg.ID, "error", err)
		in = intent.ErrorIntent(err.Error())
		in.SourceParadigm = msg.Paradigm
	}

	applied, unresolved := e.applyFallbacks(in, gaps, tctx)

	out, err := tgt.ReconstructMessage(in)
	if err != nil {
		return nil, in.Action, intent.Zero(), nil, errors.WrapMapping(err, "engine", "Translate", "reconstruct")
	}
	out.SessionID = msg.SessionID
	out.CorrelationID = msg.CorrelationID

	conf := e.mapper.Score(msg, out, unresolved)
	if conf.Score < e.cfg.MinConfidence {
		return nil, in.Action, intent.Zero(), nil, errors.WrapTyped(errors.TypeLowConfidence, errors.ErrLowConfidence,
			"engine", "Translate", "score below minimum")
	}
	return out, in.Action, conf, applied, nil
}

// applyFallbacks mutates the intent per each gap's preferred strategy and
// returns the applied strategy names plus the count of unresolved gaps.
func (e *Engine) applyFallbacks(in *intent.SemanticIntent, gaps []capability.Gap, tctx *TranslationContext) ([]string, int) {
	if e.cfg.DisableFallbacks {
		return nil, len(gaps)
	}

	var applied []string
	unresolved := 0
	for _, gap := range gaps {
		strategy, ok := selectStrategy(gap)
		if !ok {
			unresolved++
			continue
		}
		e.applyStrategy(in, strategy, tctx)
		applied = append(applied, strategy.Name)
		if e.core != nil {
			e.core.FallbacksApplied.WithLabelValues(strategy.Name).Inc()
		}
	}
	return applied, unresolved
}

// selectStrategy picks the first non-rejection fallback for a gap.
func selectStrategy(gap capability.Gap) (capability.FallbackStrategy, bool) {
	for _, s := range gap.Fallbacks {
		if s.Type != capability.FallbackRejection {
			return s, true
		}
	}
	return capability.FallbackStrategy{}, false
}

// applyStrategy marks the intent with the chosen fallback. Stateful
// synthesis additionally snapshots the intent parameters into the
// translation context's shadow state so later calls on the session can
// replay them.
func (e *Engine) applyStrategy(in *intent.SemanticIntent, strategy capability.FallbackStrategy, tctx *TranslationContext) {
	if strategy.Type == capability.FallbackSynthesis && strategy.Feature == capability.FeatureStateful && tctx != nil {
		stateKey := in.Target.Identifier
		if stateKey == "" {
			stateKey = string(in.Action)
		}
		tctx.PutState(stateKey, in.Parameters)
	}

	if in.Parameters == nil {
		in.Parameters = make(map[string]any)
	}
	in.Parameters["_fallback_"+string(strategy.Feature)] = strategy.Name
}

func (e *Engine) finishCacheHit(tctx *TranslationContext, direction message.Direction, msg *message.ProtocolMessage, entry *cache.Entry, tier cache.Tier, start time.Time) *Result {
	duration := time.Since(start)
	tctx.appendHistory(HistoryEntry{
		MessageID:  msg.ID,
		Timestamp:  time.Now(),
		Direction:  direction,
		Action:     intent.Action(entry.Metadata.Action),
		Confidence: entry.Confidence.Score,
		CacheHit:   true,
		Duration:   duration,
	})

	e.rolling.recordSuccess(entry.Confidence.Score, duration, true)
	if e.core != nil {
		e.core.TranslationsTotal.WithLabelValues(direction.String(), "success").Inc()
		e.core.ConfidenceScore.WithLabelValues(direction.String()).Observe(entry.Confidence.Score)
	}
	e.publish(event.TranslationSuccess, map[string]any{
		"direction": direction.String(),
		"cacheHit":  true,
		"tier":      string(tier),
	})

	return &Result{
		Success:    true,
		Message:    entry.Data,
		Confidence: entry.Confidence,
		CacheHit:   true,
		CacheTier:  tier,
		Duration:   duration,
	}
}

func (e *Engine) finishSuccess(
	ctx context.Context,
	tctx *TranslationContext,
	direction message.Direction,
	key string,
	msg, out *message.ProtocolMessage,
	action intent.Action,
	conf intent.Confidence,
	fallbacks []string,
	attempts int,
	start time.Time,
) *Result {
	duration := time.Since(start)
	tctx.appendHistory(HistoryEntry{
		MessageID:  msg.ID,
		Timestamp:  time.Now(),
		Direction:  direction,
		Action:     action,
		Confidence: conf.Score,
		Fallbacks:  fallbacks,
		Duration:   duration,
	})

	if e.cache != nil {
		entry := cache.NewEntry(out, conf, direction)
		entry.Metadata.Action = string(action)
		if err := e.cache.Set(ctx, key, entry); err != nil {
			// Cache failures never fail the translation.
			e.logger.Warn("cache write-through failed", "key", key, "error", err)
		}
	}

	e.rolling.recordSuccess(conf.Score, duration, false)
	if e.core != nil {
		e.core.TranslationsTotal.WithLabelValues(direction.String(), "success").Inc()
		e.core.TranslationDuration.WithLabelValues(direction.String()).Observe(duration.Seconds())
		e.core.ConfidenceScore.WithLabelValues(direction.String()).Observe(conf.Score)
	}
	e.publish(event.TranslationSuccess, map[string]any{
		"direction":  direction.String(),
		"confidence": conf.Score,
		"attempts":   attempts,
	})

	return &Result{
		Success:    true,
		Message:    out,
		Confidence: conf,
		Fallbacks:  fallbacks,
		Attempts:   attempts,
		Duration:   duration,
	}
}

func (e *Engine) finishFailure(tctx *TranslationContext, direction message.Direction, msg *message.ProtocolMessage, action intent.Action, cause error, attempts int, start time.Time) *Result {
	duration := time.Since(start)
	tctx.appendHistory(HistoryEntry{
		MessageID: msg.ID,
		Timestamp: time.Now(),
		Direction: direction,
		Action:    action,
		Duration:  duration,
	})

	e.rolling.recordFailure(duration)
	if e.core != nil {
		e.core.TranslationsTotal.WithLabelValues(direction.String(), "failure").Inc()
		e.core.TranslationDuration.WithLabelValues(direction.String()).Observe(duration.Seconds())
	}
	e.publish(event.TranslationFailed, map[string]any{
		"direction": direction.String(),
		"attempts":  attempts,
		"error":     cause.Error(),
	})
	e.logger.Warn("translation failed",
		"direction", direction.String(),
		"attempts", attempts,
		"error", cause)

	return &Result{
		Success:    false,
		Confidence: intent.Zero(),
		Attempts:   attempts,
		Duration:   duration,
		Err:        cause,
		ErrorType:  errors.TypeOf(cause),
	}
}

// NegotiateCapabilities compares the manifests of two registered paradigms.
func (e *Engine) NegotiateCapabilities(source, target message.Paradigm) (*capability.NegotiationResult, error) {
	src, ok := e.adapterFor(source)
	if !ok {
		return nil, errors.WrapMismatch(errors.ErrAdapterNotRegistered, "engine", "NegotiateCapabilities",
			"source "+string(source))
	}
	tgt, ok := e.adapterFor(target)
	if !ok {
		return nil, errors.WrapMismatch(errors.ErrAdapterNotRegistered, "engine", "NegotiateCapabilities",
			"target "+string(target))
	}
	return e.negotiator.Negotiate(src.Manifest(), tgt.Manifest()), nil
}

// Context returns the translation context for a session and direction.
// Sessions that never translated in that direction have no context.
func (e *Engine) Context(sessionID string, direction message.Direction) (*TranslationContext, error) {
	tc, ok := e.contexts.get(sessionID, direction)
	if !ok {
		return nil, errors.Wrap(errors.ErrContextNotFound, "engine", "Context",
			sessionID+" "+direction.String())
	}
	return tc, nil
}

// Metrics returns the engine's rolling statistics.
func (e *Engine) Metrics() Metrics {
	return e.rolling.snapshot()
}

// Clear drops all translation contexts, the negotiation cache, and the hot
// cache tier.
func (e *Engine) Clear() {
	cleared := e.contexts.clear()
	e.negotiator.ClearCache()
	if e.cache != nil {
		e.cache.Clear()
	}
	e.logger.Info("engine state cleared", "contexts", cleared)
}

// Shutdown stops accepting translations and releases the cache. Safe to
// call more than once.
func (e *Engine) Shutdown() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.contexts.clear()
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			return errors.Wrap(err, "engine", "Shutdown", "close cache")
		}
	}
	e.logger.Info("engine shut down")
	return nil
}

func (e *Engine) publish(t event.Type, fields map[string]any) {
	if e.bus != nil {
		e.bus.Publish(t, fields)
	}
}
