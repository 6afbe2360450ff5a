// ABOUTME: In-memory conversation history keyed by conversation id
// ABOUTME: Each conversation has its own lock and a bounded number of turns
package conversation

import (
	"sync"

	"github.com/harper/docqa/internal/models"
)

// DefaultMaxTurns keeps the last 10 question/answer exchanges per conversation
const DefaultMaxTurns = 20

type conversation struct {
	mu    sync.Mutex
	turns []models.ConversationTurn
}

// Store maps conversation ids to ordered turn histories for the process lifetime
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxTurns      int
}

// New creates a store that keeps at most maxTurns turns per conversation.
// maxTurns <= 0 keeps everything.
func New(maxTurns int) *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		maxTurns:      maxTurns,
	}
}

func (s *Store) get(id string) *conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id]
}

func (s *Store) getOrCreate(id string) *conversation {
	if c := s.get(id); c != nil {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok {
		return c
	}
	c := &conversation{}
	s.conversations[id] = c
	return c
}

// Append adds turns to a conversation, creating it on first use
func (s *Store) Append(id string, turns ...models.ConversationTurn) {
	if len(turns) == 0 {
		return
	}
	c := s.getOrCreate(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turns...)
	if s.maxTurns > 0 && len(c.turns) > s.maxTurns {
		drop := len(c.turns) - s.maxTurns
		c.turns = append([]models.ConversationTurn(nil), c.turns[drop:]...)
	}
}

// History returns a copy of the conversation's turns, oldest first
func (s *Store) History(id string) []models.ConversationTurn {
	c := s.get(id)
	if c == nil {
		return []models.ConversationTurn{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of known conversations
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
