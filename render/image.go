// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"

	"golang.org/x/image/draw"
)

// ConvertRGBA returns src as a tightly packed RGBA image with its origin
// at (0, 0). A non-zero width and height scale the image bilinearly. An
// *image.RGBA of the right size is copied, never shared.
func ConvertRGBA(src image.Image, width, height int) *image.RGBA {
	sb := src.Bounds()
	if width <= 0 || height <= 0 {
		width, height = sb.Dx(), sb.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == sb.Dx() && height == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
	return dst
}
