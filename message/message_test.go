package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	m := New(TypeRequest, ParadigmToolCentric, StructuredPayload(map[string]any{
		"toolName":  "search_files",
		"arguments": map[string]any{"query": "todo"},
	}))

	require.NoError(t, m.Validate())
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.Timestamp.IsZero())
	assert.Equal(t, ParadigmToolCentric, m.Paradigm)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		msg  *ProtocolMessage
	}{
		{"unknown paradigm", New(TypeRequest, Paradigm("carrier-pigeon"), TextPayload("hi"))},
		{"unknown type", New(MessageType("ping"), ParadigmToolCentric, TextPayload("hi"))},
		{"kind mismatch", New(TypeRequest, ParadigmToolCentric, Payload{Kind: KindCode})},
		{"empty id", func() *ProtocolMessage {
			m := New(TypeRequest, ParadigmToolCentric, TextPayload("hi"))
			m.ID = ""
			return m
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.msg.Validate())
		})
	}
}

func TestHash_IgnoresEnvelopeMetadata(t *testing.T) {
	payload := StructuredPayload(map[string]any{"toolName": "read_file", "arguments": map[string]any{"path": "a.txt"}})

	m1 := New(TypeRequest, ParadigmToolCentric, payload, WithSession("s1"))
	m2 := New(TypeRequest, ParadigmToolCentric, payload, WithSession("s1"),
		WithID("fixed-id"), WithTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, m1.Hash(), m2.Hash(), "id and timestamp must not affect the hash")
}

func TestHash_DiffersOnContent(t *testing.T) {
	m1 := New(TypeRequest, ParadigmToolCentric, StructuredPayload(map[string]any{"toolName": "a"}))
	m2 := New(TypeRequest, ParadigmToolCentric, StructuredPayload(map[string]any{"toolName": "b"}))
	m3 := New(TypeRequest, ParadigmTaskCentric, StructuredPayload(map[string]any{"toolName": "a"}))

	assert.NotEqual(t, m1.Hash(), m2.Hash())
	assert.NotEqual(t, m1.Hash(), m3.Hash(), "paradigm is part of the content")
}

func TestClone_IsDeep(t *testing.T) {
	m := New(TypeRequest, ParadigmTaskCentric, StructuredPayload(map[string]any{
		"task": map[string]any{"id": "t1", "config": map[string]any{"streaming": true}},
	}), WithHeaders(map[string]string{"x": "1"}), WithMetadata(map[string]any{"k": "v"}))

	c := m.Clone()
	c.Payload.Structured["task"].(map[string]any)["id"] = "mutated"
	c.Headers["x"] = "2"
	c.Metadata["k"] = "mutated"

	assert.Equal(t, "t1", m.Payload.Structured["task"].(map[string]any)["id"])
	assert.Equal(t, "1", m.Headers["x"])
	assert.Equal(t, "v", m.Metadata["k"])
}

func TestPayload_FieldAccessors(t *testing.T) {
	p := StructuredPayload(map[string]any{
		"toolName":  "grep",
		"arguments": map[string]any{"pattern": "x"},
		"count":     3,
	})

	name, ok := p.StringField("toolName")
	assert.True(t, ok)
	assert.Equal(t, "grep", name)

	args, ok := p.MapField("arguments")
	assert.True(t, ok)
	assert.Equal(t, "x", args["pattern"])

	_, ok = p.StringField("count")
	assert.False(t, ok, "non-string field must not coerce")

	_, ok = TextPayload("hello").Field("toolName")
	assert.False(t, ok, "text payloads have no structured fields")
}

func TestDirection_String(t *testing.T) {
	d := Direction{Source: ParadigmToolCentric, Target: ParadigmTaskCentric}
	assert.Equal(t, "tool-centric->task-centric", d.String())
	assert.Equal(t, "task-centric->tool-centric", d.Reverse().String())
}

func TestPayload_SizeBytes(t *testing.T) {
	small := StructuredPayload(map[string]any{"a": 1})
	large := StructuredPayload(map[string]any{"a": 1, "b": "some much longer value", "c": []any{1, 2, 3}})
	assert.Greater(t, large.SizeBytes(), small.SizeBytes())
}
