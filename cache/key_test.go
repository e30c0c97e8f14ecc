package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/agentbridge/message"
)

func testDirection() message.Direction {
	return message.Direction{
		Source: message.ParadigmToolCentric,
		Target: message.ParadigmTaskCentric,
	}
}

func TestGenerateKey_Deterministic(t *testing.T) {
	payload := message.StructuredPayload(map[string]any{
		"toolName":  "search_files",
		"arguments": map[string]any{"query": "todo"},
	})
	dir := testDirection()

	a := message.New(message.TypeRequest, message.ParadigmToolCentric, payload)
	b := message.New(message.TypeRequest, message.ParadigmToolCentric, payload)

	keyA := GenerateKey(a, dir, "sess-1", 0)
	keyB := GenerateKey(b, dir, "sess-1", 0)

	assert.Equal(t, keyA, keyB, "distinct ids and timestamps must not change the key")
	assert.True(t, strings.HasPrefix(keyA, "tool-centric->task-centric:"))

	suffix := strings.TrimPrefix(keyA, "tool-centric->task-centric:")
	assert.Len(t, suffix, keyDigestLen)
}

func TestGenerateKey_VariesWithInputs(t *testing.T) {
	payload := message.StructuredPayload(map[string]any{"toolName": "search_files"})
	msg := message.New(message.TypeRequest, message.ParadigmToolCentric, payload)
	dir := testDirection()

	base := GenerateKey(msg, dir, "sess-1", 0)

	t.Run("different session", func(t *testing.T) {
		assert.NotEqual(t, base, GenerateKey(msg, dir, "sess-2", 0))
	})

	t.Run("different direction", func(t *testing.T) {
		assert.NotEqual(t, base, GenerateKey(msg, dir.Reverse(), "sess-1", 0))
	})

	t.Run("different payload", func(t *testing.T) {
		other := message.New(message.TypeRequest, message.ParadigmToolCentric,
			message.StructuredPayload(map[string]any{"toolName": "read_file"}))
		assert.NotEqual(t, base, GenerateKey(other, dir, "sess-1", 0))
	})

	t.Run("shadow state bucket boundary", func(t *testing.T) {
		assert.Equal(t, GenerateKey(msg, dir, "sess-1", 3), GenerateKey(msg, dir, "sess-1", 9),
			"sizes inside one bucket share a key")
		assert.NotEqual(t, GenerateKey(msg, dir, "sess-1", 3), GenerateKey(msg, dir, "sess-1", 40))
	})
}

func TestEncodeKVKey(t *testing.T) {
	encoded := encodeKVKey("tool-centric->task-centric:abcdef0123456789")
	assert.NotContains(t, encoded, ":")
	assert.NotContains(t, encoded, ">")
	assert.Equal(t, "tool-centric_task-centric.abcdef0123456789", encoded)
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		pattern string
		want    bool
	}{
		{"exact match", "a->b:123", "a->b:123", true},
		{"exact mismatch", "a->b:123", "a->b:124", false},
		{"prefix wildcard", "a->b:123", "a->b:*", true},
		{"prefix wildcard mismatch", "b->a:123", "a->b:*", false},
		{"match all", "anything", "*", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPattern(tt.key, tt.pattern))
		})
	}
}
