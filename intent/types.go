// Package intent implements the semantic mapper: extraction of a
// paradigm-neutral semantic intent from protocol messages, and deterministic
// confidence scoring for source→target translations. The package is pure
// logic with no I/O and no shared state.
package intent

import (
	"time"

	"github.com/c360/agentbridge/message"
)

// Action is the fixed enumeration of things a message can ask for.
type Action string

const (
	ActionCreate    Action = "create"
	ActionRead      Action = "read"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionAnalyze   Action = "analyze"
	ActionTransform Action = "transform"
	ActionSearch    Action = "search"
	ActionExecute   Action = "execute"
	ActionMonitor   Action = "monitor"
	ActionOther     Action = "other"
)

// Target identifies what the action operates on.
type Target struct {
	Type        string `json:"type"`
	Identifier  string `json:"identifier,omitempty"`
	Description string `json:"description,omitempty"`
}

// Constraints carries optional execution constraints attached to an intent.
type Constraints struct {
	Timeout  time.Duration `json:"timeout,omitempty"`
	Priority string        `json:"priority,omitempty"`
	Quality  string        `json:"quality,omitempty"`
	Format   string        `json:"format,omitempty"`
}

// Context carries conversational context the intent was extracted within.
type Context struct {
	SessionID      string            `json:"sessionId,omitempty"`
	ConversationID string            `json:"conversationId,omitempty"`
	UserID         string            `json:"userId,omitempty"`
	Environment    map[string]string `json:"environment,omitempty"`
}

// SemanticIntent is the paradigm-neutral representation of what a message is
// asking for. Intents are produced transiently per translation and never
// persisted outside the cache entry that embeds them.
type SemanticIntent struct {
	Action          Action         `json:"action"`
	Target          Target         `json:"target"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Constraints     *Constraints   `json:"constraints,omitempty"`
	ExpectedOutcome string         `json:"expectedOutcome,omitempty"`
	Context         *Context       `json:"context,omitempty"`

	// SourceParadigm records where the intent came from so reconstruction
	// can decide which gap fallbacks apply.
	SourceParadigm message.Paradigm `json:"sourceParadigm,omitempty"`
}

// ErrorIntent is the minimal intent substituted when extraction fails
// closed. Callers use it instead of propagating extraction errors to the
// transport layer.
func ErrorIntent(reason string) *SemanticIntent {
	return &SemanticIntent{
		Action: ActionOther,
		Target: Target{Type: "error", Description: reason},
	}
}

// actionVerbs maps leading verbs of tool/function/task names onto actions.
var actionVerbs = map[string]Action{
	"create":    ActionCreate,
	"add":       ActionCreate,
	"new":       ActionCreate,
	"write":     ActionCreate,
	"get":       ActionRead,
	"read":      ActionRead,
	"fetch":     ActionRead,
	"list":      ActionRead,
	"show":      ActionRead,
	"update":    ActionUpdate,
	"set":       ActionUpdate,
	"modify":    ActionUpdate,
	"patch":     ActionUpdate,
	"delete":    ActionDelete,
	"remove":    ActionDelete,
	"drop":      ActionDelete,
	"analyze":   ActionAnalyze,
	"inspect":   ActionAnalyze,
	"review":    ActionAnalyze,
	"convert":   ActionTransform,
	"format":    ActionTransform,
	"translate": ActionTransform,
	"transform": ActionTransform,
	"search":    ActionSearch,
	"find":      ActionSearch,
	"query":     ActionSearch,
	"grep":      ActionSearch,
	"run":       ActionExecute,
	"execute":   ActionExecute,
	"invoke":    ActionExecute,
	"call":      ActionExecute,
	"watch":     ActionMonitor,
	"monitor":   ActionMonitor,
	"observe":   ActionMonitor,
}
