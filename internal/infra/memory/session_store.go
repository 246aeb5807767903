package memory

import (
	"context"
	"sync"

	"quizweb/internal/app"
)

// SessionSlot is an in-memory implementation of app.SessionSlot.
type SessionSlot struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewSessionSlot() *SessionSlot {
	return &SessionSlot{data: make(map[string][]byte)}
}

func (s *SessionSlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (s *SessionSlot) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.data[key] = stored
	return nil
}

func (s *SessionSlot) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// SessionStore is an in-memory implementation of app.SessionRegistry. Each
// GetOrCreate must be paired with a DeleteIfIdle.
type SessionStore struct {
	slot     app.SessionSlot
	mu       sync.RWMutex
	sessions map[string]*app.Session
	holders  map[string]int
}

func NewSessionStore(slot app.SessionSlot) *SessionStore {
	return &SessionStore{
		slot:     slot,
		sessions: make(map[string]*app.Session),
		holders:  make(map[string]int),
	}
}

func (s *SessionStore) GetOrCreate(key string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holders[key]++
	if session, ok := s.sessions[key]; ok {
		return session
	}
	session := app.NewSession(key, s.slot)
	s.sessions[key] = session
	return session
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

// DeleteIfIdle releases one holder and drops the live session once nobody
// holds or observes it. The next request rehydrates it from the slot.
func (s *SessionStore) DeleteIfIdle(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return
	}
	if s.holders[key] > 0 {
		s.holders[key]--
	}
	if s.holders[key] == 0 && session.IsIdle() {
		delete(s.sessions, key)
		delete(s.holders, key)
	}
}
