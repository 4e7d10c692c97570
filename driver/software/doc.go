// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software is a CPU rendering backend.
//
// Buffers and textures live in host memory. Commands render into
// render.PixelTarget targets with a flat-color rasterizer that draws
// points, lines and triangles from the Position attribute; every draw is
// also recorded in the frame log returned by LastFrame, which makes the
// backend useful for headless tests.
//
// With pooling enabled, buffers whose last holder lets go are kept and
// handed out again by NewBuffer for the same type and capacity class.
//
// Importing the package registers it with the driver registry:
//
//	import _ "github.com/gogpu/engine/driver/software"
package software

import "github.com/gogpu/engine/driver"

func init() {
	driver.Register(driver.BackendSoftware, func() driver.Backend {
		return New()
	})
}
