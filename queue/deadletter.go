package queue

import (
	"sync"
)

// deadLetterStore keeps exhausted entries grouped by direction, keyed by
// message id within each group.
type deadLetterStore struct {
	mu      sync.Mutex
	entries map[string]map[string]*Entry // direction -> entry id -> entry
}

func newDeadLetterStore() *deadLetterStore {
	return &deadLetterStore{entries: make(map[string]map[string]*Entry)}
}

func (s *deadLetterStore) add(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	direction := entry.Direction.String()
	group, ok := s.entries[direction]
	if !ok {
		group = make(map[string]*Entry)
		s.entries[direction] = group
	}
	group[entry.ID] = entry
}

// take removes and returns entries for a direction. With no ids, the whole
// group is taken; otherwise only the named ids that exist.
func (s *deadLetterStore) take(direction string, ids ...string) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.entries[direction]
	if !ok {
		return nil
	}

	var taken []*Entry
	if len(ids) == 0 {
		taken = make([]*Entry, 0, len(group))
		for _, entry := range group {
			taken = append(taken, entry)
		}
		delete(s.entries, direction)
		return taken
	}

	for _, id := range ids {
		if entry, ok := group[id]; ok {
			taken = append(taken, entry)
			delete(group, id)
		}
	}
	if len(group) == 0 {
		delete(s.entries, direction)
	}
	return taken
}

// list returns a snapshot of the entries for a direction.
func (s *deadLetterStore) list(direction string) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.entries[direction]
	out := make([]*Entry, 0, len(group))
	for _, entry := range group {
		out = append(out, entry)
	}
	return out
}

func (s *deadLetterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, group := range s.entries {
		total += len(group)
	}
	return total
}

func (s *deadLetterStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]map[string]*Entry)
}
