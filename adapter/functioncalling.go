package adapter

import (
	"time"

	"github.com/c360/agentbridge/capability"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// FunctionCalling adapts the LLM function-calling paradigm: declared
// function descriptors invoked as {function: {name, arguments}}.
type FunctionCalling struct {
	base
}

// NewFunctionCalling builds the function-calling reference adapter.
func NewFunctionCalling(mapper *intent.Mapper) *FunctionCalling {
	return &FunctionCalling{base: newBase(message.ParadigmFunctionCalling, "function-calling", "1.0", mapper)}
}

func (a *FunctionCalling) Manifest() capability.Manifest {
	return capability.Manifest{
		Paradigm: message.ParadigmFunctionCalling,
		Version:  a.version,
		Features: capability.Features{
			Batching:  true,
			Discovery: true,
		},
		Constraints: capability.Constraints{
			MaxMessageSize:   512 << 10,
			MaxExecutionTime: 60 * time.Second,
			RequiredFields:   []string{"function"},
		},
	}
}

func (a *FunctionCalling) ParseMessage(raw []byte) (*message.ProtocolMessage, error) {
	msg, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	if !a.ValidateMessage(msg) {
		return nil, errors.WrapMapping(errors.ErrMissingFunction, a.name, "ParseMessage", "validate")
	}
	return msg, nil
}

func (a *FunctionCalling) SerializeMessage(msg *message.ProtocolMessage) ([]byte, error) {
	return a.serialize(msg)
}

func (a *FunctionCalling) ExtractIntent(msg *message.ProtocolMessage) (*intent.SemanticIntent, error) {
	return a.mapper.Extract(msg)
}

func (a *FunctionCalling) ReconstructMessage(in *intent.SemanticIntent) (*message.ProtocolMessage, error) {
	if in == nil {
		return nil, errors.WrapMapping(errors.ErrReconstructFailed, a.name, "ReconstructMessage", "nil intent")
	}

	name := in.Target.Identifier
	if name == "" {
		name = string(in.Action)
	}

	fn := map[string]any{"name": name}
	if args := cleanParams(in.Parameters); len(args) > 0 {
		fn["arguments"] = args
	}

	msg := message.New(message.TypeRequest, message.ParadigmFunctionCalling,
		message.StructuredPayload(map[string]any{"function": fn}))
	return reconstructEnvelope(msg, in), nil
}

// ValidateMessage accepts both the nested {function: {name}} shape and the
// flat {name, arguments} variant some frameworks emit.
func (a *FunctionCalling) ValidateMessage(msg *message.ProtocolMessage) bool {
	if msg == nil || msg.Paradigm != message.ParadigmFunctionCalling {
		return false
	}
	if msg.Validate() != nil {
		return false
	}
	if fn, ok := msg.Payload.MapField("function"); ok {
		name, _ := fn["name"].(string)
		return name != ""
	}
	name, ok := msg.Payload.StringField("name")
	return ok && name != ""
}

func (a *FunctionCalling) GetMetadata() map[string]any {
	return a.metadata()
}
