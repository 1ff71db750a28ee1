package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/wizard"
)

// DefaultTTL is how long an idle session keeps its wizard alive.
const DefaultTTL = 60 * time.Minute

// Factory builds a wizard for a visitor. visitorKey is a stable derived
// identifier safe to use in storage keys; the raw token never leaves the
// manager.
type Factory func(token, visitorKey string) *wizard.Wizard

type entry struct {
	wiz      *wizard.Wizard
	lastSeen time.Time
}

// Manager holds one wizard per bearer token, created lazily and evicted
// after the idle TTL. Eviction closes the wizard, which stops its poller.
type Manager struct {
	factory  Factory
	log      *logger.Logger
	sessions map[string]*entry
	stop     chan struct{}
	ttl      time.Duration
	mu       sync.Mutex
}

// NewManager creates a Manager and starts its eviction janitor.
func NewManager(factory Factory, ttl time.Duration, log *logger.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{
		factory:  factory,
		log:      log,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
		ttl:      ttl,
	}
	go m.janitor()
	return m
}

// VisitorKey derives a stable, non-reversible identifier from an opaque
// bearer token. Draft files and redis keys use this instead of the token.
func VisitorKey(token string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("lapida:visitor:"+token)).String()
}

// Get returns the wizard for the given token, creating it on first use.
func (m *Manager) Get(token string) *wizard.Wizard {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[token]; ok {
		e.lastSeen = time.Now()
		return e.wiz
	}

	key := VisitorKey(token)
	wiz := m.factory(token, key)
	m.sessions[token] = &entry{wiz: wiz, lastSeen: time.Now()}

	m.log.Debug("Session created", map[string]interface{}{
		"visitor":  key,
		"sessions": len(m.sessions),
	})
	return wiz
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the janitor and closes every session's wizard.
func (m *Manager) Close() {
	close(m.stop)

	m.mu.Lock()
	defer m.mu.Unlock()
	for token, e := range m.sessions {
		e.wiz.Close()
		delete(m.sessions, token)
	}
}

func (m *Manager) janitor() {
	interval := m.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	for token, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			e.wiz.Close()
			delete(m.sessions, token)
			m.log.Debug("Session evicted", map[string]interface{}{
				"sessions": len(m.sessions),
			})
		}
	}
}
