package vertex

import (
	"slices"

	"github.com/gogpu/engine/handle"
)

// Context describes the pipeline an attribute map is built for.
type Context struct {
	// Pipeline is the pipeline name used to select mapping rules.
	Pipeline string

	// Source is the WGSL source of the pipeline's vertex stage.
	Source string

	// Entry is the vertex entry point. Empty selects the first one.
	Entry string
}

// ShaderMapper resolves a descriptor for a pipeline. Map returns an empty
// map, never an error, when the descriptor cannot be resolved.
type ShaderMapper interface {
	Map(d Descriptor, ctx Context) AttributesMap
}

// MapperFunc adapts a function to ShaderMapper.
type MapperFunc func(d Descriptor, ctx Context) AttributesMap

// Map calls f.
func (f MapperFunc) Map(d Descriptor, ctx Context) AttributesMap { return f(d, ctx) }

// Shader is a pipeline as seen by attribute mapping: an identity used as
// a cache key, the mapper that resolves its inputs and its context.
type Shader interface {
	Handle() handle.Handle
	Mapper() ShaderMapper
	Context() Context
}

func sortBindings(b []Binding) {
	slices.SortFunc(b, func(x, y Binding) int {
		return int(x.Location) - int(y.Location)
	})
}
