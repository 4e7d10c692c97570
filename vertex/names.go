package vertex

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// ErrNoMapping is returned when a mapping file defines no rules.
var ErrNoMapping = errors.New("vertex: mapping defines no rules")

// Rule binds one component to a shader location.
type Rule struct {
	Name      string    `yaml:"name"`
	Component Component `yaml:"component"`
	Location  uint32    `yaml:"location"`

	// Format, when set, must match the descriptor's format exactly.
	Format string `yaml:"format,omitempty"`

	// Optional rules are skipped when the component is missing.
	Optional bool `yaml:"optional,omitempty"`

	format gputypes.VertexFormat
}

// Mapping is the content of a mapping file:
//
//	default:
//	  - {name: a_position, component: position, location: 0}
//	pipelines:
//	  textured:
//	    - {name: a_position, component: position, location: 0, format: float32x3}
//	    - {name: a_uv, component: uv, location: 1}
//	    - {name: a_color, component: color, location: 2, optional: true}
type Mapping struct {
	Default   []Rule            `yaml:"default"`
	Pipelines map[string][]Rule `yaml:"pipelines"`
}

// NameMapper maps descriptors with per-pipeline rules.
type NameMapper struct {
	mapping Mapping
}

var _ ShaderMapper = (*NameMapper)(nil)

// NewNameMapper validates m and returns a mapper using it.
func NewNameMapper(m Mapping) (*NameMapper, error) {
	if len(m.Default) == 0 && len(m.Pipelines) == 0 {
		return nil, ErrNoMapping
	}
	if err := resolveRules(m.Default); err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	for name, rules := range m.Pipelines {
		if err := resolveRules(rules); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", name, err)
		}
	}
	return &NameMapper{mapping: m}, nil
}

func resolveRules(rules []Rule) error {
	seen := make(map[uint32]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		if seen[r.Location] {
			return fmt.Errorf("location %d bound twice", r.Location)
		}
		seen[r.Location] = true
		if r.Format == "" {
			continue
		}
		f, err := ParseFormat(r.Format)
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.format = f
	}
	return nil
}

// ParseMapping decodes a YAML mapping.
func ParseMapping(data []byte) (*NameMapper, error) {
	return LoadMapping(bytes.NewReader(data))
}

// LoadMapping decodes a YAML mapping from r.
func LoadMapping(r io.Reader) (*NameMapper, error) {
	var m Mapping
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("vertex: decode mapping: %w", err)
	}
	return NewNameMapper(m)
}

// LoadMappingFile decodes the YAML mapping file at path.
func LoadMappingFile(path string) (*NameMapper, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the application
	if err != nil {
		return nil, fmt.Errorf("vertex: %w", err)
	}
	defer f.Close()
	return LoadMapping(f)
}

// Rules returns the rules applied to pipeline.
func (m *NameMapper) Rules(pipeline string) []Rule {
	if rules, ok := m.mapping.Pipelines[pipeline]; ok {
		return rules
	}
	return m.mapping.Default
}

// Map applies the rules for ctx.Pipeline to d.
func (m *NameMapper) Map(d Descriptor, ctx Context) AttributesMap {
	rules := m.Rules(ctx.Pipeline)
	if len(rules) == 0 {
		return AttributesMap{}
	}

	bindings := make([]Binding, 0, len(rules))
	for _, r := range rules {
		a, ok := d.Get(r.Component)
		if !ok {
			if r.Optional {
				continue
			}
			return AttributesMap{}
		}
		if r.format != gputypes.VertexFormatUndefined && r.format != a.Format {
			return AttributesMap{}
		}
		bindings = append(bindings, Binding{
			Location:  r.Location,
			Name:      r.Name,
			Component: r.Component,
			Attribute: a,
		})
	}
	sortBindings(bindings)
	return AttributesMap{Bindings: bindings}
}
