// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu is a GPU rendering backend on the gogpu/wgpu HAL.
//
// Buffers, textures and shader modules are HAL resources. WGSL sources
// are compiled to SPIR-V with naga; concurrent compilations of the same
// source share one result. Render pipelines are created lazily per vertex
// layout, topology and target format and kept in a bounded cache.
//
// Each command is encoded as one render pass and each subcommand as one
// draw. Commands may target a Target created by the backend, any target
// exposing a HAL texture view, or a host render.PixelTarget, which is
// mirrored by a GPU texture and read back when the frame ends.
//
// The backend opens its own device on the first available HAL backend,
// or shares a host device through NewFromProvider. Importing the package
// registers it with the driver registry:
//
//	import _ "github.com/gogpu/engine/driver/wgpu"
package wgpu

import (
	"github.com/gogpu/engine/driver"

	_ "github.com/gogpu/wgpu/hal/vulkan" // default HAL backend
)

func init() {
	driver.Register(driver.BackendWGPU, func() driver.Backend {
		return New()
	})
}
