// Package transaction provides expiring, type-tagged deferred work and a
// FIFO queue to hold it.
//
// A producer wraps a mutation into a Transaction and pushes it to the
// consumer's Queue. The consumer pops transactions at a time of its
// choosing and applies only those that are still valid. Expired
// transactions are dropped without effect.
package transaction

import (
	"sync"
	"time"
)

// Type tags a transaction. Values are defined by the owning subsystem.
type Type uint8

// Disposer is implemented by payloads that hold resources. Close calls
// Dispose exactly once whether or not the transaction was applied.
type Disposer interface {
	Dispose()
}

// Transaction is a deferred command with a payload and an expiry.
type Transaction[P any] struct {
	Type    Type
	Payload P

	// Expiry is the instant after which the transaction is stale. The zero
	// time never expires.
	Expiry time.Time

	closed bool
}

// New creates a transaction that expires ttl from now. A non-positive ttl
// never expires.
func New[P any](typ Type, payload P, ttl time.Duration) *Transaction[P] {
	t := &Transaction[P]{Type: typ, Payload: payload}
	if ttl > 0 {
		t.Expiry = time.Now().Add(ttl)
	}
	return t
}

// Valid reports whether the current time is strictly before Expiry.
func (t *Transaction[P]) Valid() bool {
	return t.ValidAt(time.Now())
}

// ValidAt reports whether now is strictly before Expiry.
func (t *Transaction[P]) ValidAt(now time.Time) bool {
	return t.Expiry.IsZero() || now.Before(t.Expiry)
}

// Close releases the payload. Calls after the first are no-ops.
func (t *Transaction[P]) Close() {
	if t.closed {
		return
	}
	t.closed = true
	if d, ok := any(t.Payload).(Disposer); ok {
		d.Dispose()
	}
	var zero P
	t.Payload = zero
}

// Queue is a FIFO of transactions safe for concurrent use.
type Queue[P any] struct {
	mu    sync.Mutex
	items []*Transaction[P]
	head  int
}

// Push appends t to the back of the queue.
func (q *Queue[P]) Push(t *Transaction[P]) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
}

// Pop removes and returns the front transaction, or nil when empty.
func (q *Queue[P]) Pop() *Transaction[P] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return nil
	}
	t := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix dominates.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 32 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return t
}

// Len returns the number of queued transactions.
func (q *Queue[P]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Empty reports whether the queue holds no transactions.
func (q *Queue[P]) Empty() bool {
	return q.Len() == 0
}

// Clear closes and removes every queued transaction.
func (q *Queue[P]) Clear() {
	q.mu.Lock()
	items := q.items[q.head:]
	q.items = nil
	q.head = 0
	q.mu.Unlock()

	for _, t := range items {
		t.Close()
	}
}
