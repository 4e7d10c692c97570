package vertex

import (
	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/gputypes"
)

// Binding feeds one shader input location from a buffer range.
type Binding struct {
	Location  uint32
	Name      string
	Component Component
	Attribute
}

// IndexBinding selects the index buffer of a draw.
type IndexBinding struct {
	Buffer buffer.Buffer
	Offset uint64
	Format gputypes.IndexFormat
}

// AttributesMap is the concrete input layout of one draw for one
// pipeline: the vertex bindings, the optional index buffer and the
// element range.
type AttributesMap struct {
	Bindings []Binding
	Index    *IndexBinding

	// First and Count select vertices, or indices when Index is set.
	First uint32
	Count uint32
}

// Valid reports whether the map binds at least one attribute.
func (m AttributesMap) Valid() bool {
	return len(m.Bindings) > 0
}

// Indexed reports whether the draw reads an index buffer.
func (m AttributesMap) Indexed() bool {
	return m.Index != nil && m.Index.Buffer != nil
}

// Slot is one vertex buffer binding of a pipeline: a layout and the
// buffer range bound to it.
type Slot struct {
	Layout gputypes.VertexBufferLayout
	Buffer buffer.Buffer
	Offset uint64
}

// Slots returns one vertex buffer slot per binding, ordered by location.
// Each slot starts at the binding's offset, so attribute offsets inside
// the layout are zero.
func (m AttributesMap) Slots() []Slot {
	slots := make([]Slot, len(m.Bindings))
	for i, b := range m.Bindings {
		slots[i] = Slot{
			Layout: gputypes.VertexBufferLayout{
				ArrayStride: b.EffectiveStride(),
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{{
					Format:         b.Format,
					Offset:         0,
					ShaderLocation: b.Location,
				}},
			},
			Buffer: b.Buffer,
			Offset: b.Offset,
		}
	}
	return slots
}

// Layouts returns the vertex buffer layouts of Slots.
func (m AttributesMap) Layouts() []gputypes.VertexBufferLayout {
	slots := m.Slots()
	out := make([]gputypes.VertexBufferLayout, len(slots))
	for i, s := range slots {
		out[i] = s.Layout
	}
	return out
}

// LayoutKey identifies the vertex layout of the map independent of the
// buffers bound, for use as a pipeline cache key.
type LayoutKey string

// Key returns the layout key of m.
func (m AttributesMap) Key() LayoutKey {
	buf := make([]byte, 0, len(m.Bindings)*16)
	for _, b := range m.Bindings {
		buf = appendUint(buf, uint64(b.Location))
		buf = appendUint(buf, uint64(b.Format))
		buf = appendUint(buf, b.EffectiveStride())
	}
	if m.Indexed() {
		buf = appendUint(buf, uint64(m.Index.Format))
	}
	return LayoutKey(buf)
}

func appendUint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// Buffers returns the distinct buffers the map reads, index buffer last.
func (m AttributesMap) Buffers() []buffer.Buffer {
	var out []buffer.Buffer
	seen := make(map[handle.Handle]bool)
	add := func(b buffer.Buffer) {
		if b != nil && !seen[b.Handle()] {
			seen[b.Handle()] = true
			out = append(out, b)
		}
	}
	for _, b := range m.Bindings {
		add(b.Buffer)
	}
	if m.Index != nil {
		add(m.Index.Buffer)
	}
	return out
}
