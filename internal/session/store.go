package session

import (
	"sort"
	"sync"
	"time"
)

// Agent describes one connected agent stream. The ID is a display label and
// may collide across sessions; the store keys entries by its own handle.
type Agent struct {
	ID             string    `json:"id"`
	RemoteAddr     string    `json:"remoteAddr"`
	ConnectedAt    time.Time `json:"connectedAt"`
	LastActivityAt time.Time `json:"lastActivityAt,omitempty"`
	LastEmotion    string    `json:"lastEmotion,omitempty"`
	LastScore      float64   `json:"lastScore"`
	Messages       int       `json:"messages"`
}

type Handle uint64

type Store struct {
	mu     sync.RWMutex
	agents map[Handle]*Agent
	next   Handle
}

func NewStore() *Store {
	return &Store{
		agents: make(map[Handle]*Agent),
	}
}

func (s *Store) Add(a Agent) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.agents[s.next] = &a
	return s.next
}

// Record notes one classified transcript for the agent behind h.
func (s *Store) Record(h Handle, emotion string, score float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[h]
	if !ok {
		return
	}
	a.LastEmotion = emotion
	a.LastScore = score
	a.LastActivityAt = at
	a.Messages++
}

func (s *Store) Get(h Handle) (*Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[h]
	if !ok {
		return nil, false
	}
	copy := *a
	return &copy, true
}

// GetAll returns copies of every agent, oldest connection first.
func (s *Store) GetAll() []*Agent {
	s.mu.RLock()
	result := make([]*Agent, 0, len(s.agents))
	for _, a := range s.agents {
		copy := *a
		result = append(result, &copy)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ConnectedAt.Before(result[j].ConnectedAt)
	})
	return result
}

func (s *Store) Remove(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, h)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}
