// Package history keeps a bounded conversation log per chat session.
package history

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultMaxTurns    = 50
	DefaultMaxSessions = 1000
)

// Roles used in Turn.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store holds the most recent turns of each session. Both the number of turns
// per session and the number of sessions are bounded; the least recently
// active session is dropped first.
type Store struct {
	mu       sync.Mutex
	maxTurns int
	sessions *lru.Cache[string, []Turn]
}

func NewStore(maxTurns, maxSessions int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	sessions, _ := lru.New[string, []Turn](maxSessions)
	return &Store{maxTurns: maxTurns, sessions: sessions}
}

// Append adds turns to the session, keeping only the newest maxTurns.
func (s *Store) Append(session string, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, _ := s.sessions.Get(session)
	all := make([]Turn, 0, len(cur)+len(turns))
	all = append(all, cur...)
	all = append(all, turns...)
	if over := len(all) - s.maxTurns; over > 0 {
		all = all[over:]
	}
	s.sessions.Add(session, all)
}

// Turns returns a copy of the session's turns, oldest first.
func (s *Store) Turns(session string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions.Get(session)
	if !ok {
		return nil
	}
	out := make([]Turn, len(cur))
	copy(out, cur)
	return out
}

// Clear forgets a session.
func (s *Store) Clear(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Remove(session)
}

// Sessions returns the number of tracked sessions.
func (s *Store) Sessions() int {
	return s.sessions.Len()
}

// Last returns at most n of the newest turns in turns.
func Last(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}
