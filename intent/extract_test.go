package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/message"
)

func TestExtract_ToolCentric(t *testing.T) {
	m := NewMapper(nil)
	msg := message.New(message.TypeRequest, message.ParadigmToolCentric,
		message.StructuredPayload(map[string]any{
			"toolName":  "search_files",
			"arguments": map[string]any{"query": "todo"},
		}),
		message.WithSession("sess-1"),
	)

	in, err := m.Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, ActionSearch, in.Action)
	assert.Equal(t, "tool", in.Target.Type)
	assert.Equal(t, "search_files", in.Target.Identifier)
	assert.Equal(t, "todo", in.Parameters["query"])
	require.NotNil(t, in.Context)
	assert.Equal(t, "sess-1", in.Context.SessionID)
	assert.Equal(t, message.ParadigmToolCentric, in.SourceParadigm)
}

func TestExtract_ToolCentric_MissingToolName(t *testing.T) {
	m := NewMapper(nil)
	msg := message.New(message.TypeRequest, message.ParadigmToolCentric,
		message.StructuredPayload(map[string]any{"arguments": map[string]any{}}))

	_, err := m.Extract(msg)
	require.Error(t, err)
	assert.Equal(t, errors.TypeSemanticMapping, errors.TypeOf(err))

	// Fail-closed recovery path: callers substitute an error intent.
	in := ErrorIntent(err.Error())
	assert.Equal(t, ActionOther, in.Action)
	assert.Equal(t, "error", in.Target.Type)
}

func TestExtract_TaskCentric(t *testing.T) {
	m := NewMapper(nil)
	msg := message.New(message.TypeRequest, message.ParadigmTaskCentric,
		message.StructuredPayload(map[string]any{
			"task": map[string]any{
				"id":          "task-42",
				"description": "analyze repository structure",
				"input":       map[string]any{"path": "/src"},
				"config":      map[string]any{"streaming": true},
			},
		}))

	in, err := m.Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, ActionAnalyze, in.Action)
	assert.Equal(t, "task", in.Target.Type)
	assert.Equal(t, "task-42", in.Target.Identifier)
	assert.Equal(t, "/src", in.Parameters["path"])
	assert.Equal(t, true, in.Parameters["_streaming"])
}

func TestExtract_TaskCentric_MissingTask(t *testing.T) {
	m := NewMapper(nil)
	msg := message.New(message.TypeRequest, message.ParadigmTaskCentric,
		message.StructuredPayload(map[string]any{"other": 1}))

	_, err := m.Extract(msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingTask)
}

func TestExtract_FunctionCalling(t *testing.T) {
	m := NewMapper(nil)

	t.Run("nested descriptor", func(t *testing.T) {
		msg := message.New(message.TypeRequest, message.ParadigmFunctionCalling,
			message.StructuredPayload(map[string]any{
				"function": map[string]any{
					"name":      "get_weather",
					"arguments": map[string]any{"city": "Oslo"},
				},
			}))
		in, err := m.Extract(msg)
		require.NoError(t, err)
		assert.Equal(t, ActionRead, in.Action)
		assert.Equal(t, "get_weather", in.Target.Identifier)
		assert.Equal(t, "Oslo", in.Parameters["city"])
	})

	t.Run("flat descriptor", func(t *testing.T) {
		msg := message.New(message.TypeRequest, message.ParadigmFunctionCalling,
			message.StructuredPayload(map[string]any{
				"name":      "delete_record",
				"arguments": map[string]any{"id": "7"},
			}))
		in, err := m.Extract(msg)
		require.NoError(t, err)
		assert.Equal(t, ActionDelete, in.Action)
	})

	t.Run("missing descriptor", func(t *testing.T) {
		msg := message.New(message.TypeRequest, message.ParadigmFunctionCalling,
			message.StructuredPayload(map[string]any{"arguments": map[string]any{}}))
		_, err := m.Extract(msg)
		assert.ErrorIs(t, err, errors.ErrMissingFunction)
	})
}

func TestExtract_GenericFallback(t *testing.T) {
	m := NewMapper(nil)

	msg := message.New(message.TypeRequest, message.ParadigmFrameworkSpecific,
		message.StructuredPayload(map[string]any{"action": "run_job", "target": "job-1"}))
	in, err := m.Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, ActionExecute, in.Action)
	assert.Equal(t, "job-1", in.Target.Identifier)

	text := message.New(message.TypeRequest, message.ParadigmFrameworkSpecific,
		message.TextPayload("hello"))
	in, err = m.Extract(text)
	require.NoError(t, err)
	assert.Equal(t, "hello", in.Parameters["text"])
}

func TestExtract_InfersParadigmWhenUnknown(t *testing.T) {
	m := NewMapper(nil)
	msg := message.New(message.TypeRequest, message.Paradigm(""),
		message.StructuredPayload(map[string]any{
			"toolName":  "read_file",
			"arguments": map[string]any{"path": "x"},
		}))

	in, err := m.Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, message.ParadigmToolCentric, in.SourceParadigm)
	assert.Equal(t, "read_file", in.Target.Identifier)
}

func TestInferParadigm_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		payload message.Payload
		want    message.Paradigm
	}{
		{"tool name", message.StructuredPayload(map[string]any{"toolName": "x"}), message.ParadigmToolCentric},
		{"task object", message.StructuredPayload(map[string]any{"task": map[string]any{}}), message.ParadigmTaskCentric},
		{"function descriptor", message.StructuredPayload(map[string]any{"function": map[string]any{}}), message.ParadigmFunctionCalling},
		{"default", message.StructuredPayload(map[string]any{"anything": 1}), message.ParadigmFrameworkSpecific},
		{"text", message.TextPayload("hi"), message.ParadigmFrameworkSpecific},
		// Tool name wins when multiple shapes are present; documented precedence.
		{"ambiguous", message.StructuredPayload(map[string]any{
			"toolName": "x",
			"task":     map[string]any{},
			"function": map[string]any{},
		}), message.ParadigmToolCentric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferParadigm(tt.payload))
		})
	}
}

func TestInferAction(t *testing.T) {
	tests := []struct {
		name string
		want Action
	}{
		{"create_user", ActionCreate},
		{"get-status", ActionRead},
		{"update record", ActionUpdate},
		{"remove_entry", ActionDelete},
		{"analyze_code", ActionAnalyze},
		{"convert_format", ActionTransform},
		{"file_search", ActionSearch}, // verb buried mid-name
		{"run_tests", ActionExecute},
		{"watch_files", ActionMonitor},
		{"frobnicate", ActionOther},
		{"", ActionOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferAction(tt.name))
		})
	}
}
