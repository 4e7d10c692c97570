package vertex

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/engine/internal/cache"
	"github.com/gogpu/engine/internal/notify"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrNoVertexEntry is returned when a shader has no matching vertex stage.
var ErrNoVertexEntry = errors.New("vertex: no vertex entry point")

// Input is one @location input of a vertex entry point.
type Input struct {
	Name     string
	Location uint32
	Kind     ir.ScalarKind
}

// Reflection lists the vertex inputs of a shader, ordered by location.
type Reflection struct {
	Entry  string
	Inputs []Input
}

// Reflect parses WGSL source and returns the inputs of the vertex entry
// point named entry, or of the first vertex entry point when entry is
// empty.
func Reflect(source, entry string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("vertex: reflect: %w", err)
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("vertex: reflect: %w", err)
	}

	for i := range mod.EntryPoints {
		ep := &mod.EntryPoints[i]
		if ep.Stage != ir.StageVertex || (entry != "" && ep.Name != entry) {
			continue
		}
		r := &Reflection{Entry: ep.Name}
		for _, arg := range ep.Function.Arguments {
			r.collect(mod, arg.Name, arg.Type, arg.Binding)
		}
		sortInputs(r.Inputs)
		return r, nil
	}
	if entry != "" {
		return nil, fmt.Errorf("%w: %q", ErrNoVertexEntry, entry)
	}
	return nil, ErrNoVertexEntry
}

func (r *Reflection) collect(mod *ir.Module, name string, th ir.TypeHandle, binding *ir.Binding) {
	if int(th) >= len(mod.Types) {
		return
	}
	inner := mod.Types[th].Inner

	if binding != nil {
		loc, ok := locationOf(*binding)
		if !ok {
			return
		}
		kind, ok := scalarKindOf(inner)
		if !ok {
			return
		}
		r.Inputs = append(r.Inputs, Input{Name: name, Location: loc, Kind: kind})
		return
	}

	if st, ok := inner.(ir.StructType); ok {
		for _, m := range st.Members {
			r.collect(mod, m.Name, m.Type, m.Binding)
		}
	}
}

func locationOf(b ir.Binding) (uint32, bool) {
	switch lb := b.(type) {
	case ir.LocationBinding:
		return lb.Location, true
	case *ir.LocationBinding:
		return lb.Location, true
	}
	return 0, false
}

func scalarKindOf(inner ir.TypeInner) (ir.ScalarKind, bool) {
	switch t := inner.(type) {
	case ir.ScalarType:
		return t.Kind, true
	case ir.VectorType:
		return t.Scalar.Kind, true
	}
	return 0, false
}

func sortInputs(in []Input) {
	for i := 1; i < len(in); i++ {
		for j := i; j > 0 && in[j].Location < in[j-1].Location; j-- {
			in[j], in[j-1] = in[j-1], in[j]
		}
	}
}

// formatKind returns the shader scalar kind a vertex format is read as.
func formatKind(f gputypes.VertexFormat) ir.ScalarKind {
	s := f.String()
	switch {
	case strings.HasPrefix(s, "Uint"):
		return ir.ScalarUint
	case strings.HasPrefix(s, "Sint"):
		return ir.ScalarSint
	default:
		return ir.ScalarFloat
	}
}

var inputPrefixes = []string{"a_", "in_", "i_", "v_", "attr_", "vertex_"}

var defaultAliases = map[string]Component{
	"pos":      Position,
	"position": Position,
	"norm":     Normal,
	"normal":   Normal,
	"tangent":  Tangent,
	"col":      Color,
	"color":    Color,
	"colour":   Color,
	"uv":       TexCoord0,
	"uv0":      TexCoord0,
	"texcoord": TexCoord0,
	"uv1":      TexCoord1,
	"joints":   Joints,
	"weights":  Weights,
}

type reflectKey struct {
	source string
	entry  string
}

// ReflectMapper binds WGSL vertex inputs to components by input name.
// Parsed shaders are cached.
type ReflectMapper struct {
	reflections *cache.LRU[reflectKey, *Reflection]

	mu      sync.RWMutex
	aliases map[string]Component
}

var _ ShaderMapper = (*ReflectMapper)(nil)

// NewReflectMapper returns a mapper caching up to capacity reflections.
// A capacity of 0 is unlimited.
func NewReflectMapper(capacity int) *ReflectMapper {
	aliases := make(map[string]Component, len(defaultAliases))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	return &ReflectMapper{
		reflections: cache.New[reflectKey, *Reflection](capacity, nil),
		aliases:     aliases,
	}
}

// Alias binds inputs called name (after prefix stripping) to c.
func (m *ReflectMapper) Alias(name string, c Component) {
	m.mu.Lock()
	m.aliases[strings.ToLower(name)] = c
	m.mu.Unlock()
}

// ComponentFor returns the component an input name binds to.
func (m *ReflectMapper) ComponentFor(name string) (Component, bool) {
	n := strings.ToLower(name)
	for _, p := range inputPrefixes {
		if s, ok := strings.CutPrefix(n, p); ok && s != "" {
			n = s
			break
		}
	}

	m.mu.RLock()
	c, ok := m.aliases[n]
	m.mu.RUnlock()
	if ok {
		return c, true
	}
	if c, err := ParseComponent(n); err == nil {
		return c, true
	}
	return 0, false
}

// Reflection returns the cached reflection of ctx's shader.
func (m *ReflectMapper) Reflection(ctx Context) (*Reflection, error) {
	return m.reflections.GetOrLoad(reflectKey{ctx.Source, ctx.Entry}, func() (*Reflection, error) {
		return Reflect(ctx.Source, ctx.Entry)
	})
}

// Map binds every vertex input of ctx's shader to the descriptor
// component of the same name.
func (m *ReflectMapper) Map(d Descriptor, ctx Context) AttributesMap {
	r, err := m.Reflection(ctx)
	if err != nil {
		notify.Debug("vertex: reflection failed", "pipeline", ctx.Pipeline, "err", err)
		return AttributesMap{}
	}
	if len(r.Inputs) == 0 {
		return AttributesMap{}
	}

	bindings := make([]Binding, 0, len(r.Inputs))
	for _, in := range r.Inputs {
		c, ok := m.ComponentFor(in.Name)
		if !ok {
			return AttributesMap{}
		}
		a, ok := d.Get(c)
		if !ok || formatKind(a.Format) != in.Kind {
			return AttributesMap{}
		}
		bindings = append(bindings, Binding{
			Location:  in.Location,
			Name:      in.Name,
			Component: c,
			Attribute: a,
		})
	}
	return AttributesMap{Bindings: bindings}
}
