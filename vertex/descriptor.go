package vertex

import (
	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/gputypes"
)

// Attribute locates one component inside a buffer.
type Attribute struct {
	Buffer buffer.Buffer

	// Offset is the byte offset of the first element.
	Offset uint64

	// Stride is the distance between consecutive elements. Zero means
	// tightly packed (the format size).
	Stride uint64

	Format gputypes.VertexFormat
}

// EffectiveStride returns Stride, or the format size when Stride is zero.
func (a Attribute) EffectiveStride() uint64 {
	if a.Stride != 0 {
		return a.Stride
	}
	return a.Format.Size()
}

// Descriptor maps components to attributes. The zero value is empty and
// ready to use. Descriptors are values: copies are independent.
type Descriptor struct {
	attrs [componentCount]Attribute
	set   uint16
}

// Set places component c at a.
func (d *Descriptor) Set(c Component, a Attribute) {
	if c >= componentCount {
		return
	}
	if a.Format == gputypes.VertexFormatUndefined {
		a.Format = c.DefaultFormat()
	}
	d.attrs[c] = a
	d.set |= 1 << c
}

// Remove drops component c.
func (d *Descriptor) Remove(c Component) {
	if c >= componentCount {
		return
	}
	d.attrs[c] = Attribute{}
	d.set &^= 1 << c
}

// Get returns the attribute for component c.
func (d Descriptor) Get(c Component) (Attribute, bool) {
	if c >= componentCount || d.set&(1<<c) == 0 {
		return Attribute{}, false
	}
	return d.attrs[c], true
}

// Has reports whether component c is present.
func (d Descriptor) Has(c Component) bool {
	return c < componentCount && d.set&(1<<c) != 0
}

// Len returns the number of components present.
func (d Descriptor) Len() int {
	n := 0
	for c := range componentCount {
		if d.Has(c) {
			n++
		}
	}
	return n
}

// Components returns the present components in ascending order.
func (d Descriptor) Components() []Component {
	out := make([]Component, 0, d.Len())
	for c := range componentCount {
		if d.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Buffers returns the distinct buffers referenced, in component order.
func (d Descriptor) Buffers() []buffer.Buffer {
	var out []buffer.Buffer
	seen := make(map[handle.Handle]bool)
	for c := range componentCount {
		if !d.Has(c) || d.attrs[c].Buffer == nil {
			continue
		}
		b := d.attrs[c].Buffer
		if !seen[b.Handle()] {
			seen[b.Handle()] = true
			out = append(out, b)
		}
	}
	return out
}

// WithBuffers returns a copy of d where every buffer b is replaced by
// swap(b).
func (d Descriptor) WithBuffers(swap func(buffer.Buffer) buffer.Buffer) Descriptor {
	out := d
	for c := range componentCount {
		if out.Has(c) && out.attrs[c].Buffer != nil {
			out.attrs[c].Buffer = swap(out.attrs[c].Buffer)
		}
	}
	return out
}

// VertexCount returns how many whole elements component c spans, or 0
// when it is absent or has no buffer.
func (d Descriptor) VertexCount(c Component) int {
	a, ok := d.Get(c)
	if !ok || a.Buffer == nil {
		return 0
	}
	size := uint64(a.Buffer.Size())
	stride := a.EffectiveStride()
	if stride == 0 || size < a.Offset+a.Format.Size() {
		return 0
	}
	return int((size-a.Offset-a.Format.Size())/stride) + 1
}
