package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

func TestToolCentric_ParseAndValidate(t *testing.T) {
	a := NewToolCentric(nil)

	t.Run("bare payload", func(t *testing.T) {
		msg, err := a.ParseMessage([]byte(`{"toolName":"search_files","arguments":{"query":"todo"}}`))
		require.NoError(t, err)
		assert.Equal(t, message.ParadigmToolCentric, msg.Paradigm)
		assert.Equal(t, message.TypeRequest, msg.Type)

		name, _ := msg.Payload.StringField("toolName")
		assert.Equal(t, "search_files", name)
	})

	t.Run("enveloped payload", func(t *testing.T) {
		raw := []byte(`{"id":"m-1","type":"request","sessionId":"s-1","payload":{"toolName":"read_file"}}`)
		msg, err := a.ParseMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, "m-1", msg.ID)
		assert.Equal(t, "s-1", msg.SessionID)
	})

	t.Run("missing tool name rejected", func(t *testing.T) {
		_, err := a.ParseMessage([]byte(`{"arguments":{"query":"todo"}}`))
		require.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := a.ParseMessage([]byte(`not json`))
		require.Error(t, err)
	})
}

func TestToolCentric_SerializeRoundTrip(t *testing.T) {
	a := NewToolCentric(nil)
	msg, err := a.ParseMessage([]byte(`{"toolName":"search_files","arguments":{"query":"todo"}}`))
	require.NoError(t, err)

	raw, err := a.SerializeMessage(msg)
	require.NoError(t, err)

	again, err := a.ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, again.ID)

	args, ok := again.Payload.MapField("arguments")
	require.True(t, ok)
	assert.Equal(t, "todo", args["query"])
}

func TestToolToTaskReconstruction(t *testing.T) {
	tool := NewToolCentric(nil)
	task := NewTaskCentric(nil)

	msg, err := tool.ParseMessage([]byte(`{"toolName":"search_files","arguments":{"query":"todo"}}`))
	require.NoError(t, err)

	in, err := tool.ExtractIntent(msg)
	require.NoError(t, err)
	assert.Equal(t, intent.ActionSearch, in.Action)
	assert.Equal(t, "search_files", in.Target.Identifier)

	out, err := task.ReconstructMessage(in)
	require.NoError(t, err)
	require.True(t, task.ValidateMessage(out))

	taskObj, ok := out.Payload.MapField("task")
	require.True(t, ok)
	assert.Equal(t, "search_files", taskObj["id"])
	input, _ := taskObj["input"].(map[string]any)
	assert.Equal(t, "todo", input["query"])
}

func TestTaskToToolReconstruction_StreamingDropped(t *testing.T) {
	task := NewTaskCentric(nil)
	tool := NewToolCentric(nil)

	raw := []byte(`{"task":{"id":"search_files","description":"search the tree",
		"input":{"query":"todo"},"config":{"streaming":true}}}`)
	msg, err := task.ParseMessage(raw)
	require.NoError(t, err)

	in, err := task.ExtractIntent(msg)
	require.NoError(t, err)
	assert.Equal(t, true, in.Parameters["_streaming"])

	out, err := tool.ReconstructMessage(in)
	require.NoError(t, err)
	require.True(t, tool.ValidateMessage(out))

	args, ok := out.Payload.MapField("arguments")
	require.True(t, ok)
	assert.Equal(t, "todo", args["query"])
	_, hasMarker := args["_streaming"]
	assert.False(t, hasMarker, "internal markers never reach the wire")
}

func TestTaskCentric_StreamingSurvivesTaskReconstruction(t *testing.T) {
	task := NewTaskCentric(nil)

	raw := []byte(`{"task":{"id":"watch_logs","description":"watch logs",
		"input":{"path":"/var/log"},"config":{"streaming":true}}}`)
	msg, err := task.ParseMessage(raw)
	require.NoError(t, err)

	in, err := task.ExtractIntent(msg)
	require.NoError(t, err)

	out, err := task.ReconstructMessage(in)
	require.NoError(t, err)

	taskObj, _ := out.Payload.MapField("task")
	cfg, _ := taskObj["config"].(map[string]any)
	require.NotNil(t, cfg)
	assert.Equal(t, true, cfg["streaming"])
}

func TestFunctionCalling_FlatAndNestedShapes(t *testing.T) {
	a := NewFunctionCalling(nil)

	t.Run("nested", func(t *testing.T) {
		msg, err := a.ParseMessage([]byte(`{"function":{"name":"get_weather","arguments":{"city":"Oslo"}}}`))
		require.NoError(t, err)

		in, err := a.ExtractIntent(msg)
		require.NoError(t, err)
		assert.Equal(t, "get_weather", in.Target.Identifier)
		assert.Equal(t, intent.ActionRead, in.Action)
	})

	t.Run("flat", func(t *testing.T) {
		msg, err := a.ParseMessage([]byte(`{"name":"get_weather","arguments":{"city":"Oslo"}}`))
		require.NoError(t, err)
		assert.True(t, a.ValidateMessage(msg))
	})

	t.Run("reconstruction is nested", func(t *testing.T) {
		out, err := a.ReconstructMessage(&intent.SemanticIntent{
			Action:     intent.ActionRead,
			Target:     intent.Target{Type: "function", Identifier: "get_weather"},
			Parameters: map[string]any{"city": "Oslo"},
		})
		require.NoError(t, err)

		fn, ok := out.Payload.MapField("function")
		require.True(t, ok)
		assert.Equal(t, "get_weather", fn["name"])
	})
}

func TestFramework_PassThrough(t *testing.T) {
	a := NewFramework("langchain", nil)

	msg, err := a.ParseMessage([]byte(`{"action":"run_chain","target":"qa","temperature":0.2}`))
	require.NoError(t, err)
	assert.True(t, a.ValidateMessage(msg))

	in, err := a.ExtractIntent(msg)
	require.NoError(t, err)
	assert.Equal(t, intent.ActionExecute, in.Action)

	out, err := a.ReconstructMessage(in)
	require.NoError(t, err)
	action, _ := out.Payload.StringField("action")
	assert.Equal(t, "execute", action)

	meta := a.GetMetadata()
	assert.Equal(t, "langchain", meta["framework"])
}

func TestManifests_DeclareParadigmAndConstraints(t *testing.T) {
	adapters := []ProtocolAdapter{
		NewToolCentric(nil),
		NewTaskCentric(nil),
		NewFunctionCalling(nil),
		NewFramework("generic", nil),
	}
	for _, a := range adapters {
		m := a.Manifest()
		assert.True(t, m.Paradigm.Valid())
		assert.NotEmpty(t, m.Version)
		assert.Positive(t, m.Constraints.MaxMessageSize)
	}
}
