package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/resource"
)

// GenBuffer is a generic software buffer backed by a heap slice.
//
// Type is fixed at construction. Size and usage are readable without the
// lock; contents require it.
type GenBuffer struct {
	handle.Handled
	resource.Ref

	mu    sync.RWMutex
	typ   Type
	usage atomic.Uint32
	size  atomic.Int64
	data  []byte
}

var _ Software = (*GenBuffer)(nil)

// NewGenBuffer creates a software buffer holding a copy of data.
func NewGenBuffer(typ Type, usage Usage, data []byte) *GenBuffer {
	b := &GenBuffer{
		Handled: handle.New(Counter()),
		typ:     typ,
	}
	b.Init(b, nil)
	b.data = append([]byte(nil), data...)
	b.size.Store(int64(len(data)))
	b.usage.Store(uint32(usage))
	return b
}

// Type returns the base type.
func (b *GenBuffer) Type() Type { return b.typ }

// Usage returns the current usage hint.
func (b *GenBuffer) Usage() Usage { return Usage(b.usage.Load()) }

// Size returns the current size in bytes.
func (b *GenBuffer) Size() int { return int(b.size.Load()) }

// Lock acquires the buffer for the given access.
func (b *GenBuffer) Lock(a Access) {
	if a == AccessReadOnly {
		b.mu.RLock()
		return
	}
	b.mu.Lock()
}

// Unlock releases a lock taken with the same access.
func (b *GenBuffer) Unlock(a Access) {
	if a == AccessReadOnly {
		b.mu.RUnlock()
		return
	}
	b.mu.Unlock()
}

// Data returns the contents. The caller must hold the lock.
func (b *GenBuffer) Data() []byte { return b.data }

// Bytes returns a copy of the contents.
func (b *GenBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]byte(nil), b.data...)
}

// Update replaces the contents with a copy of data and sets usage.
func (b *GenBuffer) Update(data []byte, usage Usage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cap(b.data) >= len(data) {
		b.data = b.data[:len(data)]
	} else {
		b.data = make([]byte, len(data))
	}
	copy(b.data, data)
	b.size.Store(int64(len(data)))
	b.usage.Store(uint32(usage))
}

// ReleaseResource frees the backing slice.
func (b *GenBuffer) ReleaseResource() {
	b.mu.Lock()
	b.data = nil
	b.size.Store(0)
	b.mu.Unlock()
}
