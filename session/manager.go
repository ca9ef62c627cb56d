package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks live sessions and reaps idle ones.
type Manager struct {
	opts Options
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewManager(opts Options, ttl time.Duration) *Manager {
	return &Manager{
		opts:     opts.withDefaults(),
		ttl:      ttl,
		sessions: make(map[string]*Controller),
	}
}

// Create starts a fresh session. Every page load gets a new one; nothing
// carries over from an earlier session.
func (m *Manager) Create() *Controller {
	c := NewController(uuid.New().String(), m.opts)

	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()

	log.Printf("Session %s created", c.ID())
	return c
}

// Get returns a live session and marks it active.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	c.Touch()
	return c, nil
}

// End closes and forgets a session.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	c.Close()
	log.Printf("Session %s ended", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap closes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Reap(now time.Time) int {
	var idle []*Controller

	m.mu.Lock()
	for id, c := range m.sessions {
		if now.Sub(c.LastSeen()) > m.ttl {
			idle = append(idle, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		log.Printf("Reaped %d idle sessions", len(idle))
	}
	return len(idle)
}

// Run reaps on a ticker until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Reap(now)
		}
	}
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}
