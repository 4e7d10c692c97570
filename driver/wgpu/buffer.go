// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/internal/notify"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/wgpu/hal"
)

// Buffer is a GPU vertex or index buffer. The allocation is sized by the
// usage's capacity class; updates that fit are written in place.
type Buffer struct {
	handle.Handled
	resource.Ref

	backend *Backend
	device  hal.Device
	queue   hal.Queue
	typ     buffer.Type

	mu       sync.Mutex
	usage    buffer.Usage
	size     int
	capacity uint64
	raw      hal.Buffer
}

var _ buffer.Buffer = (*Buffer)(nil)

func newBuffer(b *Backend, device hal.Device, queue hal.Queue, typ buffer.Type, usage buffer.Usage, data []byte, owner resource.Owner) (*Buffer, error) {
	hw := &Buffer{
		Handled: handle.New(buffer.Counter()),
		backend: b,
		device:  device,
		queue:   queue,
		typ:     typ,
	}
	if err := hw.upload(data, usage); err != nil {
		return nil, err
	}
	hw.Init(hw, owner)
	return hw, nil
}

// upload writes data, reallocating when it does not fit. The caller
// holds mu or has exclusive access.
func (hw *Buffer) upload(data []byte, usage buffer.Usage) error {
	capacity := uint64(usage.Capacity(len(data))) //nolint:gosec // G115: capacities are positive
	if hw.raw == nil || capacity > hw.capacity {
		if capacity > hw.backend.maxBuffer {
			return fmt.Errorf("%w: %d bytes, limit %d", ErrBufferTooLarge, capacity, hw.backend.maxBuffer)
		}
		raw, err := hw.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("%s-buffer-%d", hw.typ, hw.Handle()),
			Size:  capacity,
			Usage: usage.GPU(hw.typ),
		})
		if err != nil {
			return fmt.Errorf("wgpu: create buffer: %w", err)
		}
		if hw.raw != nil {
			hw.device.DestroyBuffer(hw.raw)
		}
		hw.raw, hw.capacity = raw, capacity
	}

	if len(data) > 0 {
		if err := hw.queue.WriteBuffer(hw.raw, 0, padded(data)); err != nil {
			return fmt.Errorf("wgpu: write buffer: %w", err)
		}
	}
	hw.usage, hw.size = usage, len(data)
	return nil
}

// padded extends data to a multiple of four bytes, as buffer writes
// require.
func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, (len(data)+3)&^3)
	copy(out, data)
	return out
}

// Type returns the base type.
func (hw *Buffer) Type() buffer.Type { return hw.typ }

// Usage returns the usage hint.
func (hw *Buffer) Usage() buffer.Usage {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.usage
}

// Size returns the size of the contents in bytes.
func (hw *Buffer) Size() int {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.size
}

// Capacity returns the allocation size in bytes.
func (hw *Buffer) Capacity() uint64 {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.capacity
}

// Raw returns the HAL buffer.
func (hw *Buffer) Raw() hal.Buffer {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.raw
}

// Update writes data. Failures keep the previous contents and are
// reported on the notification channel.
func (hw *Buffer) Update(data []byte, usage buffer.Usage) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.raw == nil {
		return
	}
	if err := hw.upload(data, usage); err != nil {
		notify.Warn("wgpu: buffer update failed", "buffer", hw.Handle(), "size", len(data), "err", err)
	}
}

// ReleaseResource destroys the HAL buffer.
func (hw *Buffer) ReleaseResource() {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.raw != nil {
		hw.device.DestroyBuffer(hw.raw)
		hw.raw = nil
	}
}
