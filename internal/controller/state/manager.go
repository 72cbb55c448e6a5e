package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultTTL is how long an untouched draft survives
const DefaultTTL = 30 * time.Minute

// Manager keeps one /novo draft per chat
type Manager struct {
	mu     sync.RWMutex
	drafts map[int64]*Draft // chatID -> draft
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a manager; ttl <= 0 keeps drafts until they finish or are cancelled
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		drafts: make(map[int64]*Draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) expired(d *Draft) bool {
	return m.ttl > 0 && m.now().Sub(d.UpdatedAt) > m.ttl
}

// live returns the chat's draft unless it expired. Callers hold the lock.
func (m *Manager) live(chatID int64) *Draft {
	d, ok := m.drafts[chatID]
	if !ok || m.expired(d) {
		return nil
	}
	return d
}

// Begin starts a fresh draft, dropping any previous one
func (m *Manager) Begin(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.drafts[chatID] = &Draft{Step: StepKind, StartedAt: now, UpdatedAt: now}
}

// Step returns the current step, StepNone when idle or expired
func (m *Manager) Step(chatID int64) Step {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if d := m.live(chatID); d != nil {
		return d.Step
	}
	return StepNone
}

// Draft returns a copy of the live draft
func (m *Manager) Draft(chatID int64) (Draft, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d := m.live(chatID)
	if d == nil {
		return Draft{}, false
	}
	return *d, true
}

// ChooseKind records the kind and moves to the amount step
func (m *Manager) ChooseKind(chatID int64, kind model.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid kind %q", kind)
	}
	return m.advance(chatID, StepKind, StepAmount, func(d *Draft) { d.Kind = kind })
}

// SetAmount records a positive amount and moves to the description step
func (m *Manager) SetAmount(chatID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", amount)
	}
	return m.advance(chatID, StepAmount, StepDescription, func(d *Draft) { d.Amount = amount })
}

func (m *Manager) advance(chatID int64, from, to Step, apply func(*Draft)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.live(chatID)
	if d == nil {
		return ErrNoDraft
	}
	if d.Step != from {
		return fmt.Errorf("%w: at %q, expected %q", ErrWrongStep, d.Step, from)
	}
	apply(d)
	d.Step = to
	d.UpdatedAt = m.now()
	return nil
}

// Finish removes the draft and returns it once kind and amount are known
func (m *Manager) Finish(chatID int64) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.live(chatID)
	if d == nil {
		return Draft{}, ErrNoDraft
	}
	if !d.ready() {
		return Draft{}, fmt.Errorf("%w: at %q", ErrWrongStep, d.Step)
	}
	delete(m.drafts, chatID)
	return *d, nil
}

// Cancel drops the chat's draft and reports whether a live one existed
func (m *Manager) Cancel(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed := m.live(chatID) != nil
	delete(m.drafts, chatID)
	return existed
}

// Sweep removes expired drafts and returns how many were dropped
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for chatID, d := range m.drafts {
		if m.expired(d) {
			delete(m.drafts, chatID)
			removed++
		}
	}
	return removed
}

// Active returns how many chats have a live draft
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, d := range m.drafts {
		if !m.expired(d) {
			n++
		}
	}
	return n
}
