package engine

import (
	"sync"
	"time"

	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

// shadowStateCap bounds per-context synthesized state.
const shadowStateCap = 100

// HistoryEntry records one completed translation within a context. Entries
// are appended in call-completion order; concurrent translations on the
// same session may interleave.
type HistoryEntry struct {
	MessageID  string            `json:"messageId"`
	Timestamp  time.Time         `json:"timestamp"`
	Direction  message.Direction `json:"direction"`
	Action     intent.Action     `json:"action,omitempty"`
	Confidence float64           `json:"confidence"`
	CacheHit   bool              `json:"cacheHit"`
	Fallbacks  []string          `json:"fallbacks,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

type shadowEntry struct {
	value any
	at    time.Time
}

// TranslationContext holds per-(session, direction) conversational state:
// synthesized shadow state for stateless targets and an append-only
// translation history.
type TranslationContext struct {
	SessionID string
	Direction message.Direction
	CreatedAt time.Time

	mu      sync.Mutex
	shadow  map[string]shadowEntry
	history []HistoryEntry
}

func newTranslationContext(sessionID string, direction message.Direction) *TranslationContext {
	return &TranslationContext{
		SessionID: sessionID,
		Direction: direction,
		CreatedAt: time.Now(),
		shadow:    make(map[string]shadowEntry),
	}
}

// PutState stores a shadow-state value. At capacity the entry with the
// oldest timestamp is evicted first.
func (tc *TranslationContext) PutState(key string, value any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if _, exists := tc.shadow[key]; !exists && len(tc.shadow) >= shadowStateCap {
		var (
			oldestKey string
			oldestAt  time.Time
		)
		for k, entry := range tc.shadow {
			if oldestKey == "" || entry.at.Before(oldestAt) {
				oldestKey = k
				oldestAt = entry.at
			}
		}
		delete(tc.shadow, oldestKey)
	}
	tc.shadow[key] = shadowEntry{value: value, at: time.Now()}
}

// State returns a shadow-state value.
func (tc *TranslationContext) State(key string) (any, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	entry, ok := tc.shadow[key]
	return entry.value, ok
}

// StateSize returns the current shadow-state entry count. The cache key
// derivation uses it as a coarse signal.
func (tc *TranslationContext) StateSize() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.shadow)
}

func (tc *TranslationContext) appendHistory(entry HistoryEntry) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.history = append(tc.history, entry)
}

// History returns a copy of the context's translation history.
func (tc *TranslationContext) History() []HistoryEntry {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make([]HistoryEntry, len(tc.history))
	copy(out, tc.history)
	return out
}

// contextStore maps (session, direction) pairs to their contexts. Contexts
// are created on first use and live until Clear or engine shutdown.
type contextStore struct {
	mu       sync.Mutex
	contexts map[string]*TranslationContext
}

func newContextStore() *contextStore {
	return &contextStore{contexts: make(map[string]*TranslationContext)}
}

func contextKey(sessionID string, direction message.Direction) string {
	return sessionID + "|" + direction.String()
}

func (s *contextStore) resolve(sessionID string, direction message.Direction) *TranslationContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := contextKey(sessionID, direction)
	tc, ok := s.contexts[key]
	if !ok {
		tc = newTranslationContext(sessionID, direction)
		s.contexts[key] = tc
	}
	return tc
}

func (s *contextStore) get(sessionID string, direction message.Direction) (*TranslationContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.contexts[contextKey(sessionID, direction)]
	return tc, ok
}

func (s *contextStore) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.contexts)
	s.contexts = make(map[string]*TranslationContext)
	return n
}
