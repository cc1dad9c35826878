// Package ledger holds the running total balance shown on the dashboard.
package ledger

import (
	"errors"
	"sync"
)

// ErrInvalidAmount is reserved for amount validation. Mutations currently accept
// any value, including negative ones.
var ErrInvalidAmount = errors.New("invalid amount")

// Snapshot is the balance pair at one instant. Prev is the value Current held
// before the most recent mutation.
type Snapshot struct {
	Prev    int64 `json:"prev"`
	Current int64 `json:"current"`
}

// Ledger is a balance with single-step history. The zero value is a ledger at 0.
type Ledger struct {
	mu   sync.RWMutex
	snap Snapshot
}

func New(initial int64) *Ledger {
	return &Ledger{snap: Snapshot{Current: initial}}
}

// Increase shifts Current into Prev, then adds amount. The sign of amount is not checked.
func (l *Ledger) Increase(amount int64) Snapshot {
	return l.apply(amount)
}

// Decrease shifts Current into Prev, then subtracts amount.
func (l *Ledger) Decrease(amount int64) Snapshot {
	return l.apply(-amount)
}

func (l *Ledger) apply(delta int64) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap.Prev = l.snap.Current
	l.snap.Current += delta
	return l.snap
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Refresh re-reads the balance. There is no backing store yet, so it returns
// the same pair Snapshot does.
func (l *Ledger) Refresh() Snapshot {
	return l.Snapshot()
}
