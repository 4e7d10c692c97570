// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"sync"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/resource"
)

// Buffer is a host-memory driver buffer. Its allocation is sized by the
// usage's capacity class, so updates that fit are written in place.
type Buffer struct {
	handle.Handled
	resource.Ref

	typ buffer.Type

	mu    sync.RWMutex
	usage buffer.Usage
	data  []byte
}

var _ buffer.Buffer = (*Buffer)(nil)

func newBuffer(typ buffer.Type, usage buffer.Usage, data []byte, owner resource.Owner) *Buffer {
	b := &Buffer{
		Handled: handle.New(buffer.Counter()),
		typ:     typ,
		usage:   usage,
		data:    make([]byte, len(data), usage.Capacity(len(data))),
	}
	copy(b.data, data)
	b.Init(b, owner)
	return b
}

// Type returns the base type.
func (b *Buffer) Type() buffer.Type { return b.typ }

// Usage returns the usage hint.
func (b *Buffer) Usage() buffer.Usage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage
}

// Size returns the size of the contents in bytes.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Capacity returns the allocation size in bytes.
func (b *Buffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cap(b.data)
}

// Update replaces the contents, growing the allocation when needed.
func (b *Buffer) Update(data []byte, usage buffer.Usage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cap(b.data) < len(data) {
		b.data = make([]byte, len(data), usage.Capacity(len(data)))
	}
	b.data = b.data[:len(data)]
	copy(b.data, data)
	b.usage = usage
}

// Bytes returns a copy of the contents.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]byte(nil), b.data...)
}

// ReleaseResource frees the allocation.
func (b *Buffer) ReleaseResource() {
	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
}

// poolKey groups buffers that can stand in for one another.
type poolKey struct {
	typ      buffer.Type
	capacity int
}

// pool keeps released buffers for reuse.
type pool struct {
	mu      sync.Mutex
	free    map[poolKey][]*Buffer
	perKey  int
	pooled  int
	reused  uint64
	evicted uint64
}

func newPool(perKey int) *pool {
	return &pool{free: make(map[poolKey][]*Buffer), perKey: perKey}
}

// put keeps b. It reports false when the bucket is full.
func (p *pool) put(b *Buffer) bool {
	key := poolKey{b.typ, b.Capacity()}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free[key]) >= p.perKey {
		p.evicted++
		return false
	}
	p.free[key] = append(p.free[key], b)
	p.pooled++
	return true
}

// get returns a pooled buffer of the given class owned by owner, or nil.
func (p *pool) get(typ buffer.Type, capacity int, owner resource.Owner) *Buffer {
	key := poolKey{typ, capacity}
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket := p.free[key]
	for i := len(bucket) - 1; i >= 0; i-- {
		b := bucket[i]
		if b.Owner() != owner {
			continue
		}
		p.free[key] = append(bucket[:i], bucket[i+1:]...)
		p.pooled--
		p.reused++
		return b
	}
	return nil
}

// drain destroys every pooled buffer.
func (p *pool) drain() {
	p.mu.Lock()
	free := p.free
	p.free = make(map[poolKey][]*Buffer)
	p.pooled = 0
	p.mu.Unlock()

	for _, bucket := range free {
		for _, b := range bucket {
			b.Destroy()
		}
	}
}

// PoolStats reports buffer pool activity.
type PoolStats struct {
	Pooled  int
	Reused  uint64
	Evicted uint64
}

func (p *pool) stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Pooled: p.pooled, Reused: p.reused, Evicted: p.evicted}
}
