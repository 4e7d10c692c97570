// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/gputypes"

// DrawMethod selects how vertices are assembled.
type DrawMethod uint8

const (
	DrawPoints DrawMethod = iota
	DrawLines
	DrawFilled
)

var drawMethodNames = [...]string{
	DrawPoints: "Points",
	DrawLines:  "Lines",
	DrawFilled: "Filled",
}

// String returns the method name.
func (m DrawMethod) String() string {
	if int(m) < len(drawMethodNames) {
		return drawMethodNames[m]
	}
	return "Unknown"
}

// Topology returns the primitive topology drawn by m.
func (m DrawMethod) Topology() gputypes.PrimitiveTopology {
	switch m {
	case DrawPoints:
		return gputypes.PrimitiveTopologyPointList
	case DrawLines:
		return gputypes.PrimitiveTopologyLineList
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

// Viewport maps normalized device coordinates to target pixels.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Scissor limits drawing to a pixel rectangle.
type Scissor struct {
	X, Y, Width, Height uint32
}

// Parameters are per-command or per-subcommand draw settings. Nil fields
// are unset and inherit from the enclosing level.
type Parameters struct {
	Viewport      *Viewport
	Scissor       *Scissor
	BlendConstant *gputypes.Color

	// Clear, on a command, clears the target before drawing.
	Clear *gputypes.Color

	// Instances is the instance count; 0 means 1.
	Instances uint32
}

// Merge returns p with every field set in over replacing p's.
func (p Parameters) Merge(over Parameters) Parameters {
	if over.Viewport != nil {
		p.Viewport = over.Viewport
	}
	if over.Scissor != nil {
		p.Scissor = over.Scissor
	}
	if over.BlendConstant != nil {
		p.BlendConstant = over.BlendConstant
	}
	if over.Clear != nil {
		p.Clear = over.Clear
	}
	if over.Instances != 0 {
		p.Instances = over.Instances
	}
	return p
}

// InstanceCount returns Instances, or 1 when unset.
func (p Parameters) InstanceCount() uint32 {
	if p.Instances == 0 {
		return 1
	}
	return p.Instances
}

// FullViewport covers a target of the given size.
func FullViewport(width, height int) Viewport {
	return Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1}
}
