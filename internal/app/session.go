package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"quizweb/internal/config"
	"quizweb/internal/domain"
)

// Session is the live, observable authentication state of one browser.
// Reads go through Load/Snapshot/Subscribe; only AuthService mutates it.
type Session struct {
	key  string
	slot SessionSlot

	mu          sync.RWMutex
	loaded      bool
	version     uint64
	identity    *domain.Identity
	subscribers map[chan domain.Session]struct{}
}

// NewSession binds a session to a browser key and its durable slot.
func NewSession(key string, slot SessionSlot) *Session {
	return &Session{
		key:         key,
		slot:        slot,
		subscribers: make(map[chan domain.Session]struct{}),
	}
}

// Key returns the browser key the session is bound to.
func (s *Session) Key() string {
	return s.key
}

// Load rehydrates the session from the durable slot. It never fails: a
// missing, unreadable or corrupt entry yields an absent session, and a
// corrupt entry is removed from the slot.
func (s *Session) Load(ctx context.Context) domain.Session {
	s.mu.RLock()
	version := s.version
	s.mu.RUnlock()

	identity := s.read(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	// a concurrent set/clear wins over what we just read
	if s.version != version {
		s.loaded = true
		return s.snapshotLocked()
	}
	changed := !s.loaded || !sameIdentity(s.identity, identity)
	s.loaded = true
	s.identity = identity
	if changed {
		s.version++
		s.broadcastLocked()
	}
	return s.snapshotLocked()
}

func (s *Session) read(ctx context.Context) *domain.Identity {
	log := config.WithContext(ctx).WithField("session", s.key)

	raw, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		log.WithError(err).Warn("session slot unreadable, treating as signed out")
		return nil
	}
	if !ok {
		return nil
	}

	var identity domain.Identity
	if err := json.Unmarshal(raw, &identity); err != nil || identity.ID == 0 || identity.Email == "" {
		log.Warn("discarding corrupt session entry")
		if err := s.slot.Delete(ctx, s.key); err != nil {
			log.WithError(err).Warn("failed to delete corrupt session entry")
		}
		return nil
	}
	return &identity
}

// Snapshot returns the current value and whether the first Load has completed.
func (s *Session) Snapshot() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), s.loaded
}

// Subscribe returns a channel that receives every session change. If the
// session is already loaded the current value is delivered first.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Session, func()) {
	ch := make(chan domain.Session, 4)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	if s.loaded {
		ch <- s.snapshotLocked()
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// IsIdle reports whether nobody observes the session. Idle sessions can be
// dropped from memory since the slot holds the durable state.
func (s *Session) IsIdle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers) == 0
}

// set persists identity and then publishes it. A failed write leaves memory untouched.
func (s *Session) set(ctx context.Context, identity domain.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.slot.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.identity = &identity
	s.version++
	s.broadcastLocked()
	return nil
}

func (s *Session) clear(ctx context.Context) error {
	if err := s.slot.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.identity = nil
	s.version++
	s.broadcastLocked()
	return nil
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the stale value so slow observers still see the latest state
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.Session {
	if s.identity == nil {
		return domain.Session{}
	}
	identity := *s.identity
	return domain.Session{Identity: &identity}
}

func sameIdentity(a, b *domain.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
