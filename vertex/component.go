package vertex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// ErrUnknownComponent is returned when a component name is not recognized.
var ErrUnknownComponent = errors.New("vertex: unknown component")

// ErrUnknownFormat is returned when a vertex format name is not recognized.
var ErrUnknownFormat = errors.New("vertex: unknown format")

// Component is an abstract per-vertex attribute.
type Component uint8

const (
	Position Component = iota
	Normal
	Tangent
	Color
	TexCoord0
	TexCoord1
	Joints
	Weights

	componentCount
)

var componentNames = [componentCount]string{
	"position", "normal", "tangent", "color", "texcoord0", "texcoord1", "joints", "weights",
}

// String returns the lower-case component name.
func (c Component) String() string {
	if c < componentCount {
		return componentNames[c]
	}
	return fmt.Sprintf("component(%d)", uint8(c))
}

// DefaultFormat returns the format usually used to store c.
func (c Component) DefaultFormat() gputypes.VertexFormat {
	switch c {
	case Position, Normal:
		return gputypes.VertexFormatFloat32x3
	case TexCoord0, TexCoord1:
		return gputypes.VertexFormatFloat32x2
	case Joints:
		return gputypes.VertexFormatUint16x4
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// UnmarshalText parses a component name.
func (c *Component) UnmarshalText(text []byte) error {
	v, err := ParseComponent(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText returns the component name.
func (c Component) MarshalText() ([]byte, error) {
	if c >= componentCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownComponent, uint8(c))
	}
	return []byte(c.String()), nil
}

// ParseComponent returns the component with the given name.
// Matching is case-insensitive; "uv" and "texcoord" alias texcoord0.
func ParseComponent(name string) (Component, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "uv", "uv0", "texcoord", "tex_coord", "tex_coord0":
		return TexCoord0, nil
	case "uv1", "tex_coord1":
		return TexCoord1, nil
	case "colour", "color0":
		return Color, nil
	}
	for i, s := range componentNames {
		if s == n {
			return Component(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
}

var formatsByName = func() map[string]gputypes.VertexFormat {
	m := make(map[string]gputypes.VertexFormat)
	for f := gputypes.VertexFormatUint8x2; f <= gputypes.VertexFormatUnorm1010102; f++ {
		m[strings.ToLower(f.String())] = f
	}
	return m
}()

// ParseFormat returns the vertex format with the given name, for example
// "float32x3" or "Unorm8x4".
func ParseFormat(name string) (gputypes.VertexFormat, error) {
	if f, ok := formatsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return gputypes.VertexFormatUndefined, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}
