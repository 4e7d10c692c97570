package mesh

import (
	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/vertex"
	"github.com/gogpu/gputypes"
)

// IndexRange selects indices from an index buffer.
type IndexRange struct {
	Buffer buffer.Buffer
	// Offset is in bytes.
	Offset uint64
	Format gputypes.IndexFormat
}

// SubMesh is one drawable range of a mesh.
type SubMesh struct {
	Descriptor vertex.Descriptor
	Method     render.DrawMethod
	Params     render.Parameters

	// First and Count select vertices, or indices when Index is set.
	First uint32
	Count uint32
	Index *IndexRange
}

// Indexed reports whether the submesh draws through an index buffer.
func (s *SubMesh) Indexed() bool {
	return s.Index != nil && s.Index.Buffer != nil
}

// bind completes a mapped attribute map with the submesh's draw range.
// index is the buffer bound in place of the submesh's index buffer.
func (s *SubMesh) bind(m vertex.AttributesMap, index buffer.Buffer) vertex.AttributesMap {
	m.First, m.Count = s.First, s.Count
	if s.Indexed() && index != nil {
		format := s.Index.Format
		if format == gputypes.IndexFormatUndefined {
			format = gputypes.IndexFormatUint16
		}
		m.Index = &vertex.IndexBinding{
			Buffer: index,
			Offset: s.Index.Offset,
			Format: format,
		}
	}
	return m
}
