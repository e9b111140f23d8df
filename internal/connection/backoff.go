package connection

import (
	"sync"
	"time"
)

// Backoff produces reconnect delays that double after every use.
//
// The delay returned for the Nth consecutive retry is
// min(floor * 2^(N-1), ceiling). Reset restores the floor.
type Backoff struct {
	mu      sync.Mutex
	floor   time.Duration
	ceiling time.Duration
	next    time.Duration
}

// NewBackoff creates a Backoff starting at floor.
func NewBackoff(floor, ceiling time.Duration) *Backoff {
	if floor <= 0 {
		floor = time.Second
	}
	if ceiling < floor {
		ceiling = floor
	}
	return &Backoff{
		floor:   floor,
		ceiling: ceiling,
		next:    floor,
	}
}

// Next returns the delay for this retry, then grows the delay for the
// following one.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.next
	b.next *= 2
	if b.next > b.ceiling {
		b.next = b.ceiling
	}
	return d
}

// Current returns the delay the next call to Next will yield.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// Reset restores the floor.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = b.floor
}
