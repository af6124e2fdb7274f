package engine

import (
	"fmt"
	"sync"

	"quotebook/money"
)

// captureRecorder records every bookkeeping notification and can be told to
// reject specific users.
type captureRecorder struct {
	mu     sync.Mutex
	snaps  []TradableSnapshot
	reject map[string]bool
}

func (r *captureRecorder) RecordTradable(user string, snap TradableSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject[user] {
		return fmt.Errorf("%w: user %q", ErrNotFound, user)
	}
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *captureRecorder) last() TradableSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

// captureMarket records every market republication.
type marketUpdate struct {
	symbol     string
	buyPrice   money.Money
	buyVolume  int
	sellPrice  money.Money
	sellVolume int
}

type captureMarket struct {
	mu      sync.Mutex
	updates []marketUpdate
}

func (m *captureMarket) UpdateMarket(symbol string, buyPrice money.Money, buyVolume int, sellPrice money.Money, sellVolume int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, marketUpdate{symbol, buyPrice, buyVolume, sellPrice, sellVolume})
}

func (m *captureMarket) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

func (m *captureMarket) last() marketUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[len(m.updates)-1]
}

func cents(v int64) money.Money { return money.FromCents(v) }

func mustOrder(user, product string, price money.Money, volume int, side Side) *Tradable {
	t, err := NewOrder(user, product, price, volume, side)
	if err != nil {
		panic(err)
	}
	return t
}
