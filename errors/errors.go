// Package errors provides standardized error handling for AgentBridge components.
// It defines the translation error taxonomy, classification helpers that drive
// retry decisions, and wrapping helpers for consistent error context across
// the system.
package errors

import (
	"errors"
	"fmt"
)

// Type classifies a translation failure for handling purposes. The type
// determines whether the engine retries, absorbs, or surfaces the failure.
type Type string

const (
	// TypeParadigmMismatch indicates a missing or fundamentally incompatible
	// adapter. Not recoverable; no retry is attempted.
	TypeParadigmMismatch Type = "paradigm_mismatch"

	// TypeLowConfidence indicates a translation scored below the configured
	// minimum. Recoverable with a single bounded retry.
	TypeLowConfidence Type = "low_confidence"

	// TypeSemanticMapping indicates intent extraction failed. Recovered
	// locally by substituting a generic error intent.
	TypeSemanticMapping Type = "semantic_mapping"

	// TypeFeatureGap indicates a capability gap between paradigms. Reported
	// as a warning on an otherwise successful result.
	TypeFeatureGap Type = "feature_gap"

	// TypeContextLoss indicates session or correlation context was dropped.
	// Reported as a warning, never a failure.
	TypeContextLoss Type = "context_loss"

	// TypeTimeout indicates an operation exceeded its deadline. Recoverable,
	// subject to the retry budget.
	TypeTimeout Type = "timeout"

	// TypeCacheError indicates a cache tier failed. Always recovered locally
	// as a cache miss; never fails the translation.
	TypeCacheError Type = "cache_error"

	// TypeUnknown is the catch-all classification. Recoverable once, then
	// surfaced.
	TypeUnknown Type = "unknown"
)

// Standard error variables for common conditions.
var (
	// Adapter and paradigm errors
	ErrAdapterNotRegistered = errors.New("adapter not registered")
	ErrUnknownParadigm      = errors.New("unknown paradigm")
	ErrIncompatible         = errors.New("paradigms fundamentally incompatible")

	// Extraction and reconstruction errors
	ErrMissingToolName   = errors.New("tool-centric message has no tool identifier")
	ErrMissingTask       = errors.New("task-centric message has no task object")
	ErrMissingFunction   = errors.New("function-calling message has no function descriptor")
	ErrInvalidPayload    = errors.New("invalid payload shape")
	ErrExtractionFailed  = errors.New("intent extraction failed")
	ErrReconstructFailed = errors.New("message reconstruction failed")

	// Cache errors
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("cache tier unavailable")
	ErrInvalidCacheKey  = errors.New("invalid cache key")

	// Queue errors
	ErrBackpressure       = errors.New("queue backpressure limit reached")
	ErrQueueShutDown      = errors.New("queue has been shut down")
	ErrNoProcessor        = errors.New("no processor registered for direction")
	ErrEntryNotFound      = errors.New("queue entry not found")
	ErrRetriesExhausted   = errors.New("maximum retries exceeded")
	ErrLowConfidence      = errors.New("translation confidence below threshold")
	ErrEngineShutDown     = errors.New("engine has been shut down")
	ErrContextNotFound    = errors.New("translation context not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingConfig      = errors.New("missing required configuration")
	ErrStorageUnavailable = errors.New("durable storage unavailable")
)

// TranslationError wraps an error with its taxonomy type and origin. It is
// the single error shape that crosses package boundaries inside the system.
type TranslationError struct {
	Type      Type
	Err       error
	Component string
	Operation string
	Message   string
}

// Error implements the error interface.
func (te *TranslationError) Error() string {
	if te.Message != "" {
		return te.Message
	}
	return te.Err.Error()
}

// Unwrap returns the underlying error.
func (te *TranslationError) Unwrap() error {
	return te.Err
}

// TypeOf returns the taxonomy type of err, or TypeUnknown when err carries
// no classification.
func TypeOf(err error) Type {
	if err == nil {
		return TypeUnknown
	}
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Type
	}
	switch {
	case errors.Is(err, ErrAdapterNotRegistered), errors.Is(err, ErrIncompatible):
		return TypeParadigmMismatch
	case errors.Is(err, ErrLowConfidence):
		return TypeLowConfidence
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, ErrMissingToolName),
		errors.Is(err, ErrMissingTask), errors.Is(err, ErrMissingFunction):
		return TypeSemanticMapping
	case errors.Is(err, ErrCacheUnavailable), errors.Is(err, ErrCacheMiss):
		return TypeCacheError
	}
	return TypeUnknown
}

// IsRecoverable reports whether the engine may retry after err. Paradigm
// mismatches and programmer errors are final; everything else is subject to
// the retry budget.
func IsRecoverable(err error) bool {
	switch TypeOf(err) {
	case TypeParadigmMismatch:
		return false
	case TypeLowConfidence, TypeTimeout, TypeCacheError, TypeUnknown,
		TypeSemanticMapping, TypeFeatureGap, TypeContextLoss:
		return true
	default:
		return true
	}
}

// IsFatal reports whether err must terminate the translation without retry.
func IsFatal(err error) bool {
	return err != nil && !IsRecoverable(err)
}

// Wrap creates a standardized error with context following the pattern
// "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// New creates a TranslationError with the given type and context. The
// underlying error defaults to a new error built from message.
func New(t Type, component, operation, message string) *TranslationError {
	return &TranslationError{
		Type:      t,
		Err:       errors.New(message),
		Component: component,
		Operation: operation,
		Message:   fmt.Sprintf("%s.%s: %s", component, operation, message),
	}
}

// WrapTyped wraps err with a taxonomy type and component context.
func WrapTyped(t Type, err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, operation, action)
	return &TranslationError{
		Type:      t,
		Err:       wrapped,
		Component: component,
		Operation: operation,
		Message:   wrapped.Error(),
	}
}

// WrapMismatch wraps an error as a non-recoverable paradigm mismatch.
func WrapMismatch(err error, component, operation, action string) error {
	return WrapTyped(TypeParadigmMismatch, err, component, operation, action)
}

// WrapMapping wraps an error as a semantic mapping failure.
func WrapMapping(err error, component, operation, action string) error {
	return WrapTyped(TypeSemanticMapping, err, component, operation, action)
}

// WrapCache wraps an error as a cache failure. Callers convert these to
// cache misses; the type exists so telemetry can still see them.
func WrapCache(err error, component, operation, action string) error {
	return WrapTyped(TypeCacheError, err, component, operation, action)
}

// WrapTimeout wraps an error as a timeout.
func WrapTimeout(err error, component, operation, action string) error {
	return WrapTyped(TypeTimeout, err, component, operation, action)
}
