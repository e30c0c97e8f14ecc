package adapter

import (
	"time"

	"github.com/c360/agentbridge/capability"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// ToolCentric adapts the stateless tool-invocation paradigm: discrete,
// synchronous calls of the form {toolName, arguments}.
type ToolCentric struct {
	base
}

// NewToolCentric builds the tool-centric reference adapter.
func NewToolCentric(mapper *intent.Mapper) *ToolCentric {
	return &ToolCentric{base: newBase(message.ParadigmToolCentric, "tool-centric", "1.0", mapper)}
}

func (a *ToolCentric) Manifest() capability.Manifest {
	return capability.Manifest{
		Paradigm: message.ParadigmToolCentric,
		Version:  a.version,
		Features: capability.Features{
			MultiModal: true,
			Discovery:  true,
		},
		Constraints: capability.Constraints{
			MaxMessageSize:   1 << 20,
			MaxExecutionTime: 30 * time.Second,
			RequiredFields:   []string{"toolName"},
		},
	}
}

func (a *ToolCentric) ParseMessage(raw []byte) (*message.ProtocolMessage, error) {
	msg, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	if !a.ValidateMessage(msg) {
		return nil, errors.WrapMapping(errors.ErrMissingToolName, a.name, "ParseMessage", "validate")
	}
	return msg, nil
}

func (a *ToolCentric) SerializeMessage(msg *message.ProtocolMessage) ([]byte, error) {
	return a.serialize(msg)
}

func (a *ToolCentric) ExtractIntent(msg *message.ProtocolMessage) (*intent.SemanticIntent, error) {
	return a.mapper.Extract(msg)
}

// ReconstructMessage renders the intent as a single synchronous tool call.
// Internal markers such as the streaming flag have no tool-centric
// representation and are dropped; the mapper flags the loss.
func (a *ToolCentric) ReconstructMessage(in *intent.SemanticIntent) (*message.ProtocolMessage, error) {
	if in == nil {
		return nil, errors.WrapMapping(errors.ErrReconstructFailed, a.name, "ReconstructMessage", "nil intent")
	}

	toolName := in.Target.Identifier
	if toolName == "" {
		toolName = string(in.Action)
	}

	payload := map[string]any{"toolName": toolName}
	if args := cleanParams(in.Parameters); len(args) > 0 {
		payload["arguments"] = args
	}

	msg := message.New(message.TypeRequest, message.ParadigmToolCentric,
		message.StructuredPayload(payload))
	return reconstructEnvelope(msg, in), nil
}

func (a *ToolCentric) ValidateMessage(msg *message.ProtocolMessage) bool {
	if msg == nil || msg.Paradigm != message.ParadigmToolCentric {
		return false
	}
	if msg.Validate() != nil {
		return false
	}
	name, ok := msg.Payload.StringField("toolName")
	return ok && name != ""
}

func (a *ToolCentric) GetMetadata() map[string]any {
	return a.metadata()
}
