package adapter

import (
	"time"

	"github.com/c360/agentbridge/capability"
	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// TaskCentric adapts the stateful task paradigm: long-running tasks with
// streaming progress and conversation context, shaped {task: {...}}.
type TaskCentric struct {
	base
}

// NewTaskCentric builds the task-centric reference adapter.
func NewTaskCentric(mapper *intent.Mapper) *TaskCentric {
	return &TaskCentric{base: newBase(message.ParadigmTaskCentric, "task-centric", "1.0", mapper)}
}

func (a *TaskCentric) Manifest() capability.Manifest {
	return capability.Manifest{
		Paradigm: message.ParadigmTaskCentric,
		Version:  a.version,
		Features: capability.Features{
			Streaming:      true,
			Stateful:       true,
			MultiModal:     true,
			Async:          true,
			PartialResults: true,
		},
		Constraints: capability.Constraints{
			MaxMessageSize:   4 << 20,
			MaxExecutionTime: 10 * time.Minute,
			RequiredFields:   []string{"task"},
		},
	}
}

func (a *TaskCentric) ParseMessage(raw []byte) (*message.ProtocolMessage, error) {
	msg, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	if !a.ValidateMessage(msg) {
		return nil, errors.WrapMapping(errors.ErrMissingTask, a.name, "ParseMessage", "validate")
	}
	return msg, nil
}

func (a *TaskCentric) SerializeMessage(msg *message.ProtocolMessage) ([]byte, error) {
	return a.serialize(msg)
}

func (a *TaskCentric) ExtractIntent(msg *message.ProtocolMessage) (*intent.SemanticIntent, error) {
	return a.mapper.Extract(msg)
}

// ReconstructMessage renders the intent as a task object. The internal
// streaming marker becomes config.streaming; the tool or function name the
// intent targeted survives as the task id so a reverse translation can
// recover it.
func (a *TaskCentric) ReconstructMessage(in *intent.SemanticIntent) (*message.ProtocolMessage, error) {
	if in == nil {
		return nil, errors.WrapMapping(errors.ErrReconstructFailed, a.name, "ReconstructMessage", "nil intent")
	}

	task := map[string]any{}
	if in.Target.Identifier != "" {
		task["id"] = in.Target.Identifier
	}
	description := in.Target.Description
	if description == "" {
		description = string(in.Action) + " " + in.Target.Identifier
	}
	task["description"] = description

	if input := cleanParams(in.Parameters); len(input) > 0 {
		task["input"] = input
	}
	if streaming, ok := in.Parameters["_streaming"].(bool); ok && streaming {
		task["config"] = map[string]any{"streaming": true}
	}
	if in.ExpectedOutcome != "" {
		task["expectedOutcome"] = in.ExpectedOutcome
	}

	msg := message.New(message.TypeRequest, message.ParadigmTaskCentric,
		message.StructuredPayload(map[string]any{"task": task}))
	return reconstructEnvelope(msg, in), nil
}

func (a *TaskCentric) ValidateMessage(msg *message.ProtocolMessage) bool {
	if msg == nil || msg.Paradigm != message.ParadigmTaskCentric {
		return false
	}
	if msg.Validate() != nil {
		return false
	}
	_, ok := msg.Payload.MapField("task")
	return ok
}

func (a *TaskCentric) GetMetadata() map[string]any {
	return a.metadata()
}
