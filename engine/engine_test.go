package engine

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/agentbridge/adapter"
	"github.com/c360/agentbridge/cache"
	"github.com/c360/agentbridge/capability"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e := New(cfg, opts...)
	require.NoError(t, e.RegisterAdapter(adapter.NewToolCentric(nil)))
	require.NoError(t, e.RegisterAdapter(adapter.NewTaskCentric(nil)))
	require.NoError(t, e.RegisterAdapter(adapter.NewFunctionCalling(nil)))
	require.NoError(t, e.RegisterAdapter(adapter.NewFramework("generic", nil)))
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func toolRequest(query string) *message.ProtocolMessage {
	return message.New(message.TypeRequest, message.ParadigmToolCentric,
		message.StructuredPayload(map[string]any{
			"toolName":  "search_files",
			"arguments": map[string]any{"query": query},
		}))
}

func TestTranslate_RoundTripPreservesArguments(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	forward, err := e.Translate(ctx, toolRequest("todo"), message.ParadigmTaskCentric, "sess-rt")
	require.NoError(t, err)
	require.True(t, forward.Success)
	require.NotNil(t, forward.Message)

	task, ok := forward.Message.Payload.MapField("task")
	require.True(t, ok)
	input, _ := task["input"].(map[string]any)
	require.Equal(t, "todo", input["query"])

	back, err := e.Translate(ctx, forward.Message, message.ParadigmToolCentric, "sess-rt")
	require.NoError(t, err)
	require.True(t, back.Success)

	args, ok := back.Message.Payload.MapField("arguments")
	require.True(t, ok)
	assert.Equal(t, "todo", args["query"])

	name, _ := back.Message.Payload.StringField("toolName")
	assert.Equal(t, "search_files", name)
}

func TestTranslate_StreamingTaskToToolIsLossy(t *testing.T) {
	e := newTestEngine(t, Config{})

	msg := message.New(message.TypeRequest, message.ParadigmTaskCentric,
		message.StructuredPayload(map[string]any{
			"task": map[string]any{
				"id":          "watch_logs",
				"description": "watch logs",
				"input":       map[string]any{"path": "/var/log"},
				"config":      map[string]any{"streaming": true},
			},
		}))

	result, err := e.Translate(context.Background(), msg, message.ParadigmToolCentric, "sess-stream")
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.True(t, result.Confidence.LossyTranslation)
	found := false
	for _, w := range result.Confidence.Warnings {
		if w == "streaming progress is not representable in tool-centric responses" {
			found = true
		}
	}
	assert.True(t, found, "expected a streaming-loss warning, got %v", result.Confidence.Warnings)

	// The stateful gap's synthesis fallback fired and shadow state exists.
	assert.Contains(t, result.Fallbacks, "shadow-state-synthesis")
	tctx, err := e.Context("sess-stream", message.Direction{
		Source: message.ParadigmTaskCentric,
		Target: message.ParadigmToolCentric,
	})
	require.NoError(t, err)
	assert.Positive(t, tctx.StateSize())
}

func TestTranslate_CacheHitOnRepeat(t *testing.T) {
	mgr := cache.NewManager(nil, cache.WithL1Capacity(16))
	e := newTestEngine(t, Config{}, WithCache(mgr))
	ctx := context.Background()

	first, err := e.Translate(ctx, toolRequest("cached"), message.ParadigmTaskCentric, "sess-c")
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.False(t, first.CacheHit)

	second, err := e.Translate(ctx, toolRequest("cached"), message.ParadigmTaskCentric, "sess-c")
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.True(t, second.CacheHit)
	assert.Equal(t, cache.TierL1, second.CacheTier)
	assert.Equal(t, first.Message.ID, second.Message.ID)

	m := e.Metrics()
	assert.EqualValues(t, 2, m.Translations)
	assert.EqualValues(t, 1, m.CacheHits)

	// The cached entry carries the extracted action, so the hit's history
	// entry records it without re-extracting.
	tctx, err := e.Context("sess-c", message.Direction{
		Source: message.ParadigmToolCentric,
		Target: message.ParadigmTaskCentric,
	})
	require.NoError(t, err)
	history := tctx.History()
	require.Len(t, history, 2)
	assert.True(t, history[1].CacheHit)
	assert.Equal(t, intent.ActionSearch, history[1].Action)
	assert.NotEmpty(t, history[1].MessageID)
}

func TestTranslate_UnregisteredAdapterIsProgrammerError(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.RegisterAdapter(adapter.NewToolCentric(nil)))
	t.Cleanup(func() { _ = e.Shutdown() })

	_, err := e.Translate(context.Background(), toolRequest("x"), message.ParadigmTaskCentric, "")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrAdapterNotRegistered))
	assert.Equal(t, errors.TypeParadigmMismatch, errors.TypeOf(err))
}

func TestTranslate_LowConfidenceRetriesOnceThenFails(t *testing.T) {
	e := newTestEngine(t, Config{
		MinConfidence: 0.99,
		RetryBackoff:  1,
	})

	result, err := e.Translate(context.Background(), message.New(
		message.TypeRequest, message.ParadigmTaskCentric,
		message.StructuredPayload(map[string]any{
			"task": map[string]any{
				"id":          "big_task",
				"description": "analyze everything",
				"input": map[string]any{
					"a": 1, "b": 2, "c": 3, "d": 4, "e": 5,
				},
			},
		})), message.ParadigmToolCentric, "sess-low")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts, "initial attempt plus one bounded retry")
	assert.Equal(t, errors.TypeLowConfidence, errors.TypeOf(result.Err))
	assert.Zero(t, result.Confidence.Score)

	m := e.Metrics()
	assert.EqualValues(t, 1, m.Failures)
}

func TestTranslate_ExtractionFailureIsAbsorbed(t *testing.T) {
	e := newTestEngine(t, Config{MinConfidence: 0.1})

	// Tool-centric paradigm without a toolName fails extraction; the engine
	// substitutes an error intent rather than failing the call.
	msg := message.New(message.TypeRequest, message.ParadigmToolCentric,
		message.StructuredPayload(map[string]any{"arguments": map[string]any{"q": "x"}}))

	result, err := e.Translate(context.Background(), msg, message.ParadigmTaskCentric, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Less(t, result.Confidence.Score, 1.0)
}

func TestTranslate_SessionContextSurvivesOnTarget(t *testing.T) {
	e := newTestEngine(t, Config{})

	msg := message.New(message.TypeRequest, message.ParadigmToolCentric,
		message.StructuredPayload(map[string]any{"toolName": "read_file"}),
		message.WithSession("sess-keep"), message.WithCorrelation("corr-1"))

	result, err := e.Translate(context.Background(), msg, message.ParadigmTaskCentric, "sess-keep")
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "sess-keep", result.Message.SessionID)
	assert.Equal(t, "corr-1", result.Message.CorrelationID)
	assert.InDelta(t, 1.0, result.Confidence.Factors.ContextRetention, 1e-9)
}

func TestTranslate_HistoryAppendsPerCall(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()
	dir := message.Direction{Source: message.ParadigmToolCentric, Target: message.ParadigmTaskCentric}

	var ids []string
	for i := 0; i < 3; i++ {
		msg := toolRequest("h")
		ids = append(ids, msg.ID)
		_, err := e.Translate(ctx, msg, message.ParadigmTaskCentric, "sess-h")
		require.NoError(t, err)
	}

	tctx, err := e.Context("sess-h", dir)
	require.NoError(t, err)
	history := tctx.History()
	require.Len(t, history, 3)

	// Each entry identifies the message it translated and the action
	// extracted from it ("search_files" leads with a search verb).
	for i, h := range history {
		assert.Equal(t, ids[i], h.MessageID)
		assert.Equal(t, intent.ActionSearch, h.Action)
		assert.Equal(t, dir, h.Direction)
		assert.Positive(t, h.Confidence)
	}
}

func TestNegotiateCapabilities_StatefulGapIsHigh(t *testing.T) {
	e := newTestEngine(t, Config{})

	result, err := e.NegotiateCapabilities(message.ParadigmTaskCentric, message.ParadigmToolCentric)
	require.NoError(t, err)

	var statefulGap *capability.Gap
	for i := range result.Gaps {
		if result.Gaps[i].Feature == capability.FeatureStateful {
			statefulGap = &result.Gaps[i]
		}
	}
	require.NotNil(t, statefulGap)
	assert.Equal(t, capability.SeverityHigh, statefulGap.Severity)
	assert.NotEmpty(t, statefulGap.Fallbacks)
}

func TestEngine_ClearAndShutdown(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	_, err := e.Translate(ctx, toolRequest("x"), message.ParadigmTaskCentric, "sess-clr")
	require.NoError(t, err)

	e.Clear()
	_, err = e.Context("sess-clr", message.Direction{
		Source: message.ParadigmToolCentric,
		Target: message.ParadigmTaskCentric,
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrContextNotFound))

	require.NoError(t, e.Shutdown())
	_, err = e.Translate(ctx, toolRequest("x"), message.ParadigmTaskCentric, "")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEngineShutDown))
}

func TestTranslationContext_ShadowStateEviction(t *testing.T) {
	tc := newTranslationContext("s", message.Direction{
		Source: message.ParadigmTaskCentric,
		Target: message.ParadigmToolCentric,
	})

	tc.PutState("first", 1)
	for i := 0; i < shadowStateCap; i++ {
		tc.PutState(string(rune('a'+i%26))+string(rune('0'+i%10)), i)
	}

	assert.Equal(t, shadowStateCap, tc.StateSize())
	_, ok := tc.State("first")
	assert.False(t, ok, "oldest entry evicted at capacity")
}
