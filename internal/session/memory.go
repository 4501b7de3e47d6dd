package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	turns     []Turn
	expiresAt time.Time
}

type MemoryStore struct {
	opts Options
	now  func() time.Time

	mu        sync.Mutex
	sessions  map[string]*memoryEntry
	nextSweep time.Time
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{opts: opts.withDefaults(), now: time.Now, sessions: map[string]*memoryEntry{}}
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, turns ...Turn) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	e := m.live(sessionID, now)
	if e == nil {
		e = &memoryEntry{}
		m.sessions[sessionID] = e
	}
	e.turns = append(e.turns, turns...)
	if over := len(e.turns) - m.opts.MaxTurns; over > 0 {
		e.turns = append([]Turn(nil), e.turns[over:]...)
	}
	e.expiresAt = now.Add(m.opts.TTL)
	return nil
}

func (m *MemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(sessionID, m.now())
	if e == nil {
		return nil, nil
	}
	return append([]Turn(nil), e.turns...), nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// live returns the entry for id, dropping it if expired. Caller holds mu.
func (m *MemoryStore) live(id string, now time.Time) *memoryEntry {
	e, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if !now.Before(e.expiresAt) {
		delete(m.sessions, id)
		return nil
	}
	return e
}

// sweep drops every expired session, at most once per TTL. Caller holds mu.
func (m *MemoryStore) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
	m.nextSweep = now.Add(m.opts.TTL)
}
