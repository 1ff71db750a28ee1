package draft

import (
	"context"
	"sync"
	"time"

	"github.com/rcabanilla/lapida/internal/logger"
	"github.com/rcabanilla/lapida/internal/models"
)

// KeyVersion is baked into every storage key so incompatible shape changes
// never attempt to restore old data.
const KeyVersion = "v2"

// DefaultDebounce matches the typing cadence the wizard was tuned for.
const DefaultDebounce = 450 * time.Millisecond

// Draft is the locally persisted snapshot of in-progress wizard input.
// It deliberately carries no server-assigned identifiers (plot id,
// reservation id); those live only in the wizard's runtime state so a
// restored draft can never resume into a stale plot or reservation.
type Draft struct {
	SavedAt       time.Time       `json:"saved_at"`
	Deceased      models.Deceased `json:"deceased"`
	Relationship  string          `json:"relationship,omitempty"`
	ContactNumber string          `json:"contact_number,omitempty"`
	Address       string          `json:"address,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	OnlyAvailable bool            `json:"only_available"`
}

// Store is a draft persistence backend. Restore returns nil, nil for a
// missing or corrupt draft; errors are reserved for I/O failures, and even
// those are swallowed by the Manager. Drafts are best-effort only.
type Store interface {
	Save(ctx context.Context, visitorKey string, d *Draft) error
	Restore(ctx context.Context, visitorKey string) (*Draft, error)
	Clear(ctx context.Context, visitorKey string) error
}

// Manager wraps a Store with debounced writes and the failure semantics the
// wizard expects: persistence problems degrade the feature silently and
// never block or surface to the visitor.
type Manager struct {
	store  Store
	log    *logger.Logger
	now    func() time.Time
	timers map[string]*time.Timer
	delay  time.Duration
	mu     sync.Mutex
}

// NewManager creates a Manager with the given debounce delay.
// A non-positive delay falls back to DefaultDebounce.
func NewManager(store Store, delay time.Duration, log *logger.Logger) *Manager {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Manager{
		store:  store,
		log:    log,
		now:    time.Now,
		timers: make(map[string]*time.Timer),
		delay:  delay,
	}
}

// Queue schedules a debounced save. Rapid successive calls for the same
// visitor collapse into one write of the latest draft.
func (m *Manager) Queue(visitorKey string, d *Draft) {
	snapshot := *d
	snapshot.SavedAt = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[visitorKey]; ok {
		t.Stop()
	}
	m.timers[visitorKey] = time.AfterFunc(m.delay, func() {
		m.write(visitorKey, &snapshot)
	})
}

// Flush performs any pending save for the visitor immediately.
func (m *Manager) Flush(visitorKey string) {
	m.mu.Lock()
	t, ok := m.timers[visitorKey]
	if ok {
		delete(m.timers, visitorKey)
	}
	m.mu.Unlock()

	if ok && t.Stop() {
		// The timer had not fired yet; its closure still holds the latest
		// snapshot, so let it run now.
		t.Reset(0)
	}
}

// Restore loads the visitor's draft. Any failure yields nil. Date fields
// that have drifted into the future since the draft was saved are dropped
// back to empty rather than re-validated against stale rules.
func (m *Manager) Restore(ctx context.Context, visitorKey string) *Draft {
	d, err := m.store.Restore(ctx, visitorKey)
	if err != nil {
		m.log.Debug("Draft restore failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if d == nil {
		return nil
	}

	today := m.now()
	d.Deceased.DateOfDeath = dropFutureDate(d.Deceased.DateOfDeath, today)
	d.Deceased.DateOfBurial = dropFutureDate(d.Deceased.DateOfBurial, today)
	return d
}

// Clear removes the persisted draft and cancels any pending save.
func (m *Manager) Clear(ctx context.Context, visitorKey string) {
	m.mu.Lock()
	if t, ok := m.timers[visitorKey]; ok {
		t.Stop()
		delete(m.timers, visitorKey)
	}
	m.mu.Unlock()

	if err := m.store.Clear(ctx, visitorKey); err != nil {
		m.log.Debug("Draft clear failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Close stops all pending timers without flushing.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, t := range m.timers {
		t.Stop()
		delete(m.timers, key)
	}
}

func (m *Manager) write(visitorKey string, d *Draft) {
	m.mu.Lock()
	delete(m.timers, visitorKey)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.store.Save(ctx, visitorKey, d); err != nil {
		m.log.Debug("Draft save failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// dropFutureDate empties a YYYY-MM-DD value that now lies after today.
// Unparseable values are kept; the wizard's validation will report them.
func dropFutureDate(value string, today time.Time) string {
	if value == "" {
		return ""
	}
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return value
	}
	if d.After(today) {
		return ""
	}
	return value
}
