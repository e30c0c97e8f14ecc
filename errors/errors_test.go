package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeOf_ClassifiedError(t *testing.T) {
	err := New(TypeLowConfidence, "engine", "Translate", "score 0.41 below threshold 0.70")
	assert.Equal(t, TypeLowConfidence, TypeOf(err))
	assert.Contains(t, err.Error(), "engine.Translate")
}

func TestTypeOf_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Type
	}{
		{"missing adapter", ErrAdapterNotRegistered, TypeParadigmMismatch},
		{"incompatible", ErrIncompatible, TypeParadigmMismatch},
		{"low confidence", ErrLowConfidence, TypeLowConfidence},
		{"missing tool", ErrMissingToolName, TypeSemanticMapping},
		{"missing task", ErrMissingTask, TypeSemanticMapping},
		{"cache unavailable", ErrCacheUnavailable, TypeCacheError},
		{"plain error", stderrors.New("boom"), TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestTypeOf_WrappedSentinel(t *testing.T) {
	err := Wrap(ErrAdapterNotRegistered, "engine", "Translate", "resolve target adapter")
	assert.Equal(t, TypeParadigmMismatch, TypeOf(err))
}

func TestIsRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(WrapMismatch(ErrAdapterNotRegistered, "engine", "Translate", "lookup")))
	assert.True(t, IsRecoverable(WrapTimeout(stderrors.New("deadline"), "cache", "Get", "l2 round trip")))
	assert.True(t, IsRecoverable(stderrors.New("anything else")))
	assert.False(t, IsRecoverable(nil) && false) // nil is never fatal either
	assert.False(t, IsFatal(nil))
}

func TestWrapTyped_Unwrap(t *testing.T) {
	base := stderrors.New("connection refused")
	err := WrapCache(base, "cache", "Get", "l2 lookup")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, base))
	assert.Equal(t, TypeCacheError, TypeOf(err))
	assert.Contains(t, err.Error(), "cache.Get: l2 lookup failed")
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTyped(TypeUnknown, nil, "c", "m", "a"))
}
