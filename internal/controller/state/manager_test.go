package state

import (
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(ttl time.Duration) (*Manager, *clock) {
	c := &clock{t: time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC)}
	m := NewManager(ttl)
	m.now = c.now
	return m, c
}

func TestManager_DraftLifecycle(t *testing.T) {
	m, _ := newTestManager(DefaultTTL)
	const chat = int64(42)

	assert.Equal(t, StepNone, m.Step(chat))

	m.Begin(chat)
	assert.Equal(t, StepKind, m.Step(chat))

	require.NoError(t, m.ChooseKind(chat, model.KindExpense))
	assert.Equal(t, StepAmount, m.Step(chat))

	require.NoError(t, m.SetAmount(chat, decimal.RequireFromString("150.40")))
	assert.Equal(t, StepDescription, m.Step(chat))

	d, err := m.Finish(chat)
	require.NoError(t, err)
	assert.Equal(t, model.KindExpense, d.Kind)
	assert.True(t, d.Amount.Equal(decimal.RequireFromString("150.40")))

	assert.Equal(t, StepNone, m.Step(chat))
	assert.Zero(t, m.Active())
}

func TestManager_RejectsOutOfOrderAnswers(t *testing.T) {
	m, _ := newTestManager(DefaultTTL)

	assert.ErrorIs(t, m.ChooseKind(1, model.KindIncome), ErrNoDraft)

	m.Begin(1)
	assert.ErrorIs(t, m.SetAmount(1, decimal.NewFromInt(10)), ErrWrongStep)
	_, err := m.Finish(1)
	assert.ErrorIs(t, err, ErrWrongStep)

	assert.Error(t, m.ChooseKind(1, model.Kind("transfer")))
	require.NoError(t, m.ChooseKind(1, model.KindIncome))
	assert.ErrorIs(t, m.ChooseKind(1, model.KindExpense), ErrWrongStep)
	assert.Error(t, m.SetAmount(1, decimal.Zero))
	assert.Equal(t, StepAmount, m.Step(1))

	d, ok := m.Draft(1)
	require.True(t, ok)
	assert.Equal(t, model.KindIncome, d.Kind)
}

func TestManager_BeginRestarts(t *testing.T) {
	m, _ := newTestManager(DefaultTTL)
	m.Begin(1)
	require.NoError(t, m.ChooseKind(1, model.KindIncome))

	m.Begin(1)

	d, ok := m.Draft(1)
	require.True(t, ok)
	assert.Equal(t, StepKind, d.Step)
	assert.Empty(t, d.Kind)
}

func TestManager_Cancel(t *testing.T) {
	m, _ := newTestManager(DefaultTTL)
	m.Begin(1)
	m.Begin(2)

	assert.True(t, m.Cancel(1))
	assert.False(t, m.Cancel(1))

	assert.Equal(t, StepNone, m.Step(1))
	assert.Equal(t, StepKind, m.Step(2))
	assert.Equal(t, 1, m.Active())
}

func TestManager_Expiry(t *testing.T) {
	m, c := newTestManager(10 * time.Minute)
	m.Begin(1)
	m.Begin(2)

	c.advance(8 * time.Minute)
	// answering refreshes the draft
	require.NoError(t, m.ChooseKind(2, model.KindExpense))

	c.advance(5 * time.Minute)
	assert.Equal(t, StepNone, m.Step(1))
	assert.ErrorIs(t, m.ChooseKind(1, model.KindIncome), ErrNoDraft)
	assert.False(t, m.Cancel(1))
	assert.Equal(t, StepAmount, m.Step(2))
	assert.Equal(t, 1, m.Active())

	c.advance(10 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, m.Active())
}

func TestManager_NoTTLKeepsDrafts(t *testing.T) {
	m, c := newTestManager(0)
	m.Begin(1)
	c.advance(72 * time.Hour)

	assert.Equal(t, StepKind, m.Step(1))
	assert.Zero(t, m.Sweep())
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(DefaultTTL)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			m.Begin(chat)
			_ = m.ChooseKind(chat, model.KindIncome)
			_ = m.Step(chat)
			_, _ = m.Draft(chat)
			m.Sweep()
		}(int64(i % 5))
	}
	wg.Wait()

	assert.Equal(t, 5, m.Active())
}
