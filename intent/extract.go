package intent

import (
	"log/slog"
	"strings"

	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/message"
)

// Mapper extracts semantic intents and scores translation confidence.
type Mapper struct {
	logger *slog.Logger
}

// NewMapper creates a mapper. A nil logger defaults to slog.Default().
func NewMapper(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{logger: logger}
}

// Extract derives the semantic intent from a protocol message, dispatching
// on the message paradigm. Messages with an absent or unrecognized paradigm
// fall back to shape inference (a warning is logged). Extraction fails
// closed: missing required fields produce a typed semantic-mapping error the
// caller converts into ErrorIntent rather than propagating.
func (m *Mapper) Extract(msg *message.ProtocolMessage) (*SemanticIntent, error) {
	paradigm := msg.Paradigm
	if !paradigm.Valid() {
		paradigm = InferParadigm(msg.Payload)
		m.logger.Warn("paradigm missing or unrecognized, inferred from payload shape",
			"message_id", msg.ID, "inferred", string(paradigm))
	}

	var (
		in  *SemanticIntent
		err error
	)
	switch paradigm {
	case message.ParadigmToolCentric:
		in, err = m.extractToolCentric(msg)
	case message.ParadigmTaskCentric:
		in, err = m.extractTaskCentric(msg)
	case message.ParadigmFunctionCalling:
		in, err = m.extractFunctionCalling(msg)
	default:
		in, err = m.extractGeneric(msg)
	}
	if err != nil {
		return nil, err
	}

	in.SourceParadigm = paradigm
	if msg.SessionID != "" || msg.CorrelationID != "" {
		if in.Context == nil {
			in.Context = &Context{}
		}
		in.Context.SessionID = msg.SessionID
		if in.Context.ConversationID == "" {
			in.Context.ConversationID = msg.CorrelationID
		}
	}
	return in, nil
}

// InferParadigm guesses the paradigm from payload shape with a fixed
// precedence order: tool-name presence, then task-object presence, then
// function-descriptor presence, then framework-specific. Several call sites
// rely on this exact order. A payload legitimately carrying more than one
// shape resolves to the earliest match, which may misclassify; callers that
// know the paradigm should set it explicitly.
func InferParadigm(p message.Payload) message.Paradigm {
	if _, ok := p.StringField("toolName"); ok {
		return message.ParadigmToolCentric
	}
	if _, ok := p.MapField("task"); ok {
		return message.ParadigmTaskCentric
	}
	if _, ok := p.MapField("function"); ok {
		return message.ParadigmFunctionCalling
	}
	return message.ParadigmFrameworkSpecific
}

func (m *Mapper) extractToolCentric(msg *message.ProtocolMessage) (*SemanticIntent, error) {
	toolName, ok := msg.Payload.StringField("toolName")
	if !ok || toolName == "" {
		return nil, errors.WrapMapping(errors.ErrMissingToolName, "mapper", "Extract", "tool-centric extraction")
	}

	params, _ := msg.Payload.MapField("arguments")
	return &SemanticIntent{
		Action:     inferAction(toolName),
		Target:     Target{Type: "tool", Identifier: toolName},
		Parameters: params,
	}, nil
}

func (m *Mapper) extractTaskCentric(msg *message.ProtocolMessage) (*SemanticIntent, error) {
	task, ok := msg.Payload.MapField("task")
	if !ok {
		return nil, errors.WrapMapping(errors.ErrMissingTask, "mapper", "Extract", "task-centric extraction")
	}

	id, _ := task["id"].(string)
	desc, _ := task["description"].(string)
	if desc == "" {
		desc, _ = task["name"].(string)
	}
	params, _ := task["input"].(map[string]any)
	if params == nil {
		params, _ = task["parameters"].(map[string]any)
	}

	in := &SemanticIntent{
		Action:     inferAction(desc),
		Target:     Target{Type: "task", Identifier: id, Description: desc},
		Parameters: params,
	}
	if outcome, ok := task["expectedOutcome"].(string); ok {
		in.ExpectedOutcome = outcome
	}
	if cfg, ok := task["config"].(map[string]any); ok {
		if streaming, _ := cfg["streaming"].(bool); streaming {
			if in.Parameters == nil {
				in.Parameters = make(map[string]any)
			}
			in.Parameters["_streaming"] = true
		}
	}
	return in, nil
}

func (m *Mapper) extractFunctionCalling(msg *message.ProtocolMessage) (*SemanticIntent, error) {
	fn, ok := msg.Payload.MapField("function")
	if !ok {
		// Flat variant: {"name": ..., "arguments": ...}
		name, nameOK := msg.Payload.StringField("name")
		if !nameOK || name == "" {
			return nil, errors.WrapMapping(errors.ErrMissingFunction, "mapper", "Extract", "function-calling extraction")
		}
		params, _ := msg.Payload.MapField("arguments")
		return &SemanticIntent{
			Action:     inferAction(name),
			Target:     Target{Type: "function", Identifier: name},
			Parameters: params,
		}, nil
	}

	name, _ := fn["name"].(string)
	if name == "" {
		return nil, errors.WrapMapping(errors.ErrMissingFunction, "mapper", "Extract", "function-calling extraction")
	}
	params, _ := fn["arguments"].(map[string]any)
	if params == nil {
		params, _ = fn["parameters"].(map[string]any)
	}
	return &SemanticIntent{
		Action:     inferAction(name),
		Target:     Target{Type: "function", Identifier: name},
		Parameters: params,
	}, nil
}

// extractGeneric is the best-effort extractor for framework-specific
// payloads: it treats the whole structured payload as parameters and leaves
// the action undetermined unless an "action" field is present.
func (m *Mapper) extractGeneric(msg *message.ProtocolMessage) (*SemanticIntent, error) {
	in := &SemanticIntent{
		Action: ActionOther,
		Target: Target{Type: "generic"},
	}
	switch msg.Payload.Kind {
	case message.KindStructured:
		in.Parameters = msg.Payload.Structured
		if action, ok := msg.Payload.StringField("action"); ok {
			in.Action = inferAction(action)
		}
		if target, ok := msg.Payload.StringField("target"); ok {
			in.Target.Identifier = target
		}
	case message.KindText:
		in.Parameters = map[string]any{"text": msg.Payload.Text}
	case message.KindCode:
		if msg.Payload.Code != nil {
			in.Action = ActionExecute
			in.Parameters = map[string]any{
				"language": msg.Payload.Code.Language,
				"source":   msg.Payload.Code.Source,
			}
		}
	case message.KindFile, message.KindImage:
		if msg.Payload.Media != nil {
			in.Action = ActionRead
			in.Parameters = map[string]any{
				"uri":      msg.Payload.Media.URI,
				"mimeType": msg.Payload.Media.MimeType,
			}
		}
	}
	return in, nil
}

// inferAction maps the leading verb of a name or description onto the action
// enumeration. Names use snake_case, kebab-case, or spaces.
func inferAction(name string) Action {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ActionOther
	}
	sep := func(r rune) bool { return r == '_' || r == '-' || r == ' ' || r == '.' }
	words := strings.FieldsFunc(name, sep)
	if len(words) == 0 {
		return ActionOther
	}
	if action, ok := actionVerbs[words[0]]; ok {
		return action
	}
	// Some names bury the verb ("file_search"); scan the rest.
	for _, w := range words[1:] {
		if action, ok := actionVerbs[w]; ok {
			return action
		}
	}
	return ActionOther
}
