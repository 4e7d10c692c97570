// Package handle allocates process-unique identifiers per type.
//
// Handles are used as cache keys instead of pointers: a pointer can be
// reused after its object is collected, a handle never is.
package handle

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Handle identifies one instance of a type. The zero Handle is never
// allocated and means "no handle".
type Handle uint64

// Valid reports whether h was allocated.
func (h Handle) Valid() bool { return h != 0 }

// Counter hands out strictly increasing handles. The zero value is ready
// to use; the first handle is 1.
type Counter struct {
	last atomic.Uint64
}

// Next returns the next handle. It is lock-free.
func (c *Counter) Next() Handle {
	return Handle(c.last.Add(1))
}

// Last returns the most recently allocated handle, or 0.
func (c *Counter) Last() Handle {
	return Handle(c.last.Load())
}

var counters sync.Map // reflect.Type -> *Counter

// For returns the process-wide counter for T.
func For[T any]() *Counter {
	key := reflect.TypeFor[T]()
	if c, ok := counters.Load(key); ok {
		return c.(*Counter)
	}
	c, _ := counters.LoadOrStore(key, new(Counter))
	return c.(*Counter)
}

// Next allocates the next handle for T.
func Next[T any]() Handle {
	return For[T]().Next()
}

// Handled is embedded by types that carry a fixed handle.
type Handled struct {
	handle Handle
}

// New returns a Handled with the next handle from c.
func New(c *Counter) Handled {
	return Handled{handle: c.Next()}
}

// With returns a Handled carrying an explicit handle.
func With(h Handle) Handled {
	return Handled{handle: h}
}

// Handle returns the handle fixed at construction.
func (h Handled) Handle() Handle {
	return h.handle
}
