// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"image"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
)

// ResourceFactory creates backend resources. Every resource it returns
// is owned by owner, which decides whether the resource is freed when
// its count reaches zero.
type ResourceFactory interface {
	NewBuffer(b buffer.Software, owner resource.Owner) (buffer.Buffer, error)
	NewPipeline(desc render.ShaderDescriptor, owner resource.Owner) (render.Pipeline, error)
	NewTexture(img image.Image, desc render.TextureDescriptor, owner resource.Owner) (render.Texture, error)

	// ShouldRelease is the backend's release policy for its resources.
	ShouldRelease(r resource.Releaser) bool
}

// CommandExecutor records and submits draw work.
type CommandExecutor interface {
	// BeginFrame starts recording a frame.
	BeginFrame() error

	// Execute records cmd and returns the number of draws issued.
	Execute(cmd *render.RenderCommand) (int, error)

	// EndFrame submits the recorded frame.
	EndFrame() error
}

// Backend is a concrete rendering API.
type Backend interface {
	ResourceFactory
	CommandExecutor

	// Name returns the registry name, such as "software" or "wgpu".
	Name() string

	// Init acquires the device. It is called once, before any other
	// method.
	Init() error

	// Close releases the device. Resources created by the backend must
	// not be used afterwards.
	Close()
}
