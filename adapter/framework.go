package adapter

import (
	"time"

	"github.com/c360/agentbridge/capability"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// Framework adapts framework-proprietary formats that fit none of the
// other paradigms. Payloads pass through as structured data with
// best-effort action and target fields.
type Framework struct {
	base
	frameworkName string
}

// NewFramework builds a framework-specific adapter for the named framework.
func NewFramework(frameworkName string, mapper *intent.Mapper) *Framework {
	return &Framework{
		base:          newBase(message.ParadigmFrameworkSpecific, "framework-specific", "1.0", mapper),
		frameworkName: frameworkName,
	}
}

func (a *Framework) Manifest() capability.Manifest {
	return capability.Manifest{
		Paradigm: message.ParadigmFrameworkSpecific,
		Version:  a.version,
		Features: capability.Features{
			Async:    true,
			Batching: true,
		},
		Constraints: capability.Constraints{
			MaxMessageSize:   2 << 20,
			MaxExecutionTime: 2 * time.Minute,
		},
	}
}

func (a *Framework) ParseMessage(raw []byte) (*message.ProtocolMessage, error) {
	return a.parse(raw)
}

func (a *Framework) SerializeMessage(msg *message.ProtocolMessage) ([]byte, error) {
	return a.serialize(msg)
}

func (a *Framework) ExtractIntent(msg *message.ProtocolMessage) (*intent.SemanticIntent, error) {
	return a.mapper.Extract(msg)
}

func (a *Framework) ReconstructMessage(in *intent.SemanticIntent) (*message.ProtocolMessage, error) {
	if in == nil {
		return nil, errors.WrapMapping(errors.ErrReconstructFailed, a.name, "ReconstructMessage", "nil intent")
	}

	payload := cleanParams(in.Parameters)
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["action"] = string(in.Action)
	if in.Target.Identifier != "" {
		payload["target"] = in.Target.Identifier
	}

	msg := message.New(message.TypeRequest, message.ParadigmFrameworkSpecific,
		message.StructuredPayload(payload))
	return reconstructEnvelope(msg, in), nil
}

// ValidateMessage only checks envelope well-formedness; framework payloads
// have no required shape.
func (a *Framework) ValidateMessage(msg *message.ProtocolMessage) bool {
	if msg == nil || msg.Paradigm != message.ParadigmFrameworkSpecific {
		return false
	}
	return msg.Validate() == nil
}

func (a *Framework) GetMetadata() map[string]any {
	meta := a.metadata()
	meta["framework"] = a.frameworkName
	return meta
}
