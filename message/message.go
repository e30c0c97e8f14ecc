// Package message defines the paradigm-tagged protocol message envelope and
// its payload variants. Messages are the unit of translation: adapters parse
// inbound data into a ProtocolMessage, the engine reconstructs an outbound
// one, and the envelope is immutable once handed to the semantic mapper.
package message

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/c360/agentbridge/errors"
)

// ProtocolMessage is the paradigm-tagged envelope exchanged with adapters.
type ProtocolMessage struct {
	ID            string            `json:"id"`
	Type          MessageType       `json:"type"`
	Paradigm      Paradigm          `json:"paradigm"`
	Timestamp     time.Time         `json:"timestamp"`
	Payload       Payload           `json:"payload"`
	CorrelationID string            `json:"correlationId,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

// Option configures message construction.
type Option func(*ProtocolMessage)

// WithSession attaches a session id.
func WithSession(sessionID string) Option {
	return func(m *ProtocolMessage) { m.SessionID = sessionID }
}

// WithCorrelation attaches a correlation id.
func WithCorrelation(correlationID string) Option {
	return func(m *ProtocolMessage) { m.CorrelationID = correlationID }
}

// WithHeaders attaches transport headers.
func WithHeaders(headers map[string]string) Option {
	return func(m *ProtocolMessage) { m.Headers = headers }
}

// WithMetadata attaches free-form metadata.
func WithMetadata(metadata map[string]any) Option {
	return func(m *ProtocolMessage) { m.Metadata = metadata }
}

// WithTime overrides the creation timestamp. Useful for replay and tests.
func WithTime(ts time.Time) Option {
	return func(m *ProtocolMessage) { m.Timestamp = ts }
}

// WithID overrides the generated id. Useful for correlating retries.
func WithID(id string) Option {
	return func(m *ProtocolMessage) { m.ID = id }
}

// New creates a ProtocolMessage with a generated UUID and current timestamp.
func New(t MessageType, paradigm Paradigm, payload Payload, opts ...Option) *ProtocolMessage {
	m := &ProtocolMessage{
		ID:        uuid.New().String(),
		Type:      t,
		Paradigm:  paradigm,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Validate performs envelope validation: known type, known paradigm, and a
// payload consistent with its declared kind.
func (m *ProtocolMessage) Validate() error {
	if m.ID == "" {
		return errors.Wrap(errors.ErrInvalidPayload, "message", "Validate", "empty message id")
	}
	if !m.Type.Valid() {
		return errors.Wrap(errors.ErrInvalidPayload, "message", "Validate", "unknown message type")
	}
	if !m.Paradigm.Valid() {
		return errors.Wrap(errors.ErrUnknownParadigm, "message", "Validate", "paradigm check")
	}
	return m.Payload.Validate()
}

// Clone returns a deep copy of the message.
func (m *ProtocolMessage) Clone() *ProtocolMessage {
	out := *m
	out.Payload = m.Payload.clone()
	if m.Headers != nil {
		out.Headers = make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			out.Headers[k] = v
		}
	}
	if m.Metadata != nil {
		out.Metadata = cloneMap(m.Metadata)
	}
	return &out
}

// Normalized returns a copy with the id and timestamp stripped, so that
// semantically identical requests hash identically regardless of envelope
// metadata.
func (m *ProtocolMessage) Normalized() *ProtocolMessage {
	out := m.Clone()
	out.ID = ""
	out.Timestamp = time.Time{}
	return out
}

// Hash returns the hex sha256 digest of the normalized message. Map keys are
// sorted by encoding/json, so the digest is deterministic for equal content.
func (m *ProtocolMessage) Hash() string {
	data, err := json.Marshal(m.Normalized())
	if err != nil {
		// Marshal of a ProtocolMessage cannot fail for JSON-shaped payloads;
		// hash the error text so the key is still deterministic.
		data = []byte(err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SizeBytes returns the JSON-serialized size of the full message.
func (m *ProtocolMessage) SizeBytes() int {
	data, err := json.Marshal(m)
	if err != nil {
		return 0
	}
	return len(data)
}
