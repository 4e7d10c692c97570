// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/engine/vertex"

// RenderSubCommand is one draw inside a command.
type RenderSubCommand struct {
	Attributes vertex.AttributesMap
	Method     DrawMethod
	Params     Parameters
}

// RenderCommand binds a target and a pipeline for a list of draws.
type RenderCommand struct {
	Target   RenderTarget
	Pipeline Pipeline
	Params   Parameters

	SubCommands []RenderSubCommand
}

// NewRenderCommand creates an empty command for target and pipeline.
func NewRenderCommand(target RenderTarget, pipeline Pipeline) *RenderCommand {
	return &RenderCommand{Target: target, Pipeline: pipeline}
}

// AddSubCommand appends a draw.
func (c *RenderCommand) AddSubCommand(sc RenderSubCommand) {
	c.SubCommands = append(c.SubCommands, sc)
}

// Len returns the number of draws.
func (c *RenderCommand) Len() int {
	return len(c.SubCommands)
}

// Reset drops every draw, keeping target, pipeline and parameters.
func (c *RenderCommand) Reset() {
	clear(c.SubCommands)
	c.SubCommands = c.SubCommands[:0]
}
