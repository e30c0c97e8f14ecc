package message

// Paradigm identifies a family of agent protocols sharing statefulness and
// synchrony assumptions. Paradigms are abstract categories, not bindings to
// a particular vendor wire format.
type Paradigm string

const (
	// ParadigmToolCentric is the stateless style: discrete, synchronous tool
	// invocations with no conversation state.
	ParadigmToolCentric Paradigm = "tool-centric"

	// ParadigmTaskCentric is the stateful style: long-running tasks with
	// progress, streaming, and conversation context.
	ParadigmTaskCentric Paradigm = "task-centric"

	// ParadigmFunctionCalling is the function-descriptor style used by LLM
	// function/tool calling APIs.
	ParadigmFunctionCalling Paradigm = "function-calling"

	// ParadigmFrameworkSpecific covers framework-proprietary formats that
	// fit none of the other categories.
	ParadigmFrameworkSpecific Paradigm = "framework-specific"
)

// Valid reports whether p is one of the known paradigms.
func (p Paradigm) Valid() bool {
	switch p {
	case ParadigmToolCentric, ParadigmTaskCentric, ParadigmFunctionCalling, ParadigmFrameworkSpecific:
		return true
	}
	return false
}

// Direction describes a source→target paradigm pair, used for cache keys,
// queue partitions, and metrics labels.
type Direction struct {
	Source Paradigm `json:"source"`
	Target Paradigm `json:"target"`
}

// String renders the direction as "source->target".
func (d Direction) String() string {
	return string(d.Source) + "->" + string(d.Target)
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	return Direction{Source: d.Target, Target: d.Source}
}

// MessageType classifies a protocol message envelope.
type MessageType string

const (
	// TypeRequest is an inbound request for work.
	TypeRequest MessageType = "request"
	// TypeResponse is a reply to a request.
	TypeResponse MessageType = "response"
	// TypeEvent is an unsolicited notification.
	TypeEvent MessageType = "event"
	// TypeError is a failure report.
	TypeError MessageType = "error"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case TypeRequest, TypeResponse, TypeEvent, TypeError:
		return true
	}
	return false
}
