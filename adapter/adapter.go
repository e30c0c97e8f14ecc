// Package adapter defines the protocol adapter contract and the four
// reference adapters, one per paradigm. Adapters translate between raw wire
// bytes, the shared protocol message envelope, and semantic intents.
package adapter

import (
	"encoding/json"

	"github.com/c360/agentbridge/capability"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// ProtocolAdapter is implemented once per supported paradigm and consumed
// by the translation engine.
type ProtocolAdapter interface {
	// Manifest publishes the paradigm's capability description.
	Manifest() capability.Manifest

	// ParseMessage decodes raw wire bytes into a protocol message.
	ParseMessage(raw []byte) (*message.ProtocolMessage, error)

	// SerializeMessage encodes a protocol message back to wire bytes.
	SerializeMessage(msg *message.ProtocolMessage) ([]byte, error)

	// ExtractIntent derives the paradigm-neutral intent from a message.
	ExtractIntent(msg *message.ProtocolMessage) (*intent.SemanticIntent, error)

	// ReconstructMessage builds a message of this adapter's paradigm that
	// expresses the intent.
	ReconstructMessage(in *intent.SemanticIntent) (*message.ProtocolMessage, error)

	// ValidateMessage reports whether the message is well formed for this
	// paradigm.
	ValidateMessage(msg *message.ProtocolMessage) bool

	// GetMetadata describes the adapter for diagnostics.
	GetMetadata() map[string]any
}

// wireEnvelope is the optional framing adapters accept around a bare
// payload. Raw bytes without a "payload" field are treated as the payload
// itself.
type wireEnvelope struct {
	ID            string         `json:"id,omitempty"`
	Type          string         `json:"type,omitempty"`
	SessionID     string         `json:"sessionId,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// base carries the machinery shared by the reference adapters.
type base struct {
	paradigm message.Paradigm
	name     string
	version  string
	mapper   *intent.Mapper
}

func newBase(paradigm message.Paradigm, name, version string, mapper *intent.Mapper) base {
	if mapper == nil {
		mapper = intent.NewMapper(nil)
	}
	return base{paradigm: paradigm, name: name, version: version, mapper: mapper}
}

// parse decodes wire bytes into a message tagged with this adapter's
// paradigm. Both enveloped and bare-payload framings are accepted.
func (b base) parse(raw []byte) (*message.ProtocolMessage, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.WrapMapping(err, b.name, "ParseMessage", "decode wire bytes")
	}

	payload := env.Payload
	if payload == nil {
		if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
			return nil, errors.WrapMapping(errors.ErrInvalidPayload, b.name, "ParseMessage", "bare payload decode")
		}
	}

	msgType := message.MessageType(env.Type)
	if !msgType.Valid() {
		msgType = message.TypeRequest
	}

	opts := []message.Option{}
	if env.ID != "" {
		opts = append(opts, message.WithID(env.ID))
	}
	if env.SessionID != "" {
		opts = append(opts, message.WithSession(env.SessionID))
	}
	if env.CorrelationID != "" {
		opts = append(opts, message.WithCorrelation(env.CorrelationID))
	}
	return message.New(msgType, b.paradigm, message.StructuredPayload(payload), opts...), nil
}

// serialize encodes a message as an enveloped JSON document.
func (b base) serialize(msg *message.ProtocolMessage) ([]byte, error) {
	if msg == nil {
		return nil, errors.WrapMapping(errors.ErrInvalidPayload, b.name, "SerializeMessage", "nil message")
	}
	env := wireEnvelope{
		ID:            msg.ID,
		Type:          string(msg.Type),
		SessionID:     msg.SessionID,
		CorrelationID: msg.CorrelationID,
		Payload:       msg.Payload.Structured,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.WrapMapping(err, b.name, "SerializeMessage", "encode wire bytes")
	}
	return data, nil
}

func (b base) metadata() map[string]any {
	return map[string]any{
		"name":     b.name,
		"version":  b.version,
		"paradigm": string(b.paradigm),
	}
}

// reconstructEnvelope applies intent context back onto a rebuilt message.
func reconstructEnvelope(msg *message.ProtocolMessage, in *intent.SemanticIntent) *message.ProtocolMessage {
	if in.Context != nil {
		msg.SessionID = in.Context.SessionID
		msg.CorrelationID = in.Context.ConversationID
	}
	return msg
}

// cleanParams strips internal underscore-prefixed markers from parameters.
func cleanParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		out[k] = v
	}
	return out
}
