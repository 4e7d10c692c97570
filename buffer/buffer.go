// Package buffer defines memory ranges holding vertex or index data.
//
// Software buffers (GenBuffer) live in host memory and are the source of
// truth for a mesh. Hardware buffers are created by drivers from software
// buffers and refreshed through Update.
package buffer

import (
	"math/bits"

	"github.com/gogpu/engine/handle"
	"github.com/gogpu/gputypes"
)

// Type is the base type of a buffer.
type Type uint8

const (
	TypeVertex Type = iota
	TypeIndex
)

var typeNames = [...]string{"vertex", "index"}

// String returns the type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Usage hints how often the contents change.
type Usage uint8

const (
	// UsageStatic data is written once.
	UsageStatic Usage = iota
	// UsageDynamic data is rewritten occasionally.
	UsageDynamic
	// UsageStream data is rewritten about every frame.
	UsageStream
)

var usageNames = [...]string{"static", "dynamic", "stream"}

// String returns the usage name.
func (u Usage) String() string {
	if int(u) < len(usageNames) {
		return usageNames[u]
	}
	return "unknown"
}

// GPU returns the device usage flags for a buffer of type t.
func (u Usage) GPU(t Type) gputypes.BufferUsage {
	flags := gputypes.BufferUsageCopyDst
	if t == TypeIndex {
		flags |= gputypes.BufferUsageIndex
	} else {
		flags |= gputypes.BufferUsageVertex
	}
	if u != UsageStatic {
		flags |= gputypes.BufferUsageCopySrc
	}
	return flags
}

// Capacity returns the allocation size a driver should reserve for size
// bytes of data. Buffers that change often get headroom so that growing
// updates can be written in place.
func (u Usage) Capacity(size int) int {
	if size <= 0 {
		return 4
	}
	size = (size + 3) &^ 3
	switch u {
	case UsageDynamic:
		return (size + 255) &^ 255
	case UsageStream:
		return 1 << bits.Len(uint(size-1))
	default:
		return size
	}
}

// Access selects how a software buffer is locked.
type Access uint8

const (
	AccessReadOnly Access = iota
	AccessWriteOnly
	AccessReadWrite
)

// Buffer is a memory range of known size, type and usage.
type Buffer interface {
	Handle() handle.Handle
	Type() Type
	Usage() Usage
	Size() int

	// Update replaces size, contents and usage in one step.
	Update(data []byte, usage Usage)

	Retain()
	Release()
}

// Lockable guards a buffer's contents. Read-only access is shared, any
// other access is exclusive.
type Lockable interface {
	Lock(a Access)
	Unlock(a Access)
}

// Software is a host-memory buffer. Data may only be used between Lock
// and Unlock.
type Software interface {
	Buffer
	Lockable
	Data() []byte
}

// Counter allocates handles for every buffer implementation, so software
// and hardware buffers of different kinds never share a handle.
func Counter() *handle.Counter {
	return handle.For[Buffer]()
}
