// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"

	"github.com/gogpu/engine/handle"
	"github.com/gogpu/gputypes"
)

// RenderTarget is where a command's draws land. Drivers accept the
// target kinds they can render to and skip others with a diagnostic.
type RenderTarget interface {
	Handle() handle.Handle
	Width() int
	Height() int
	Format() gputypes.TextureFormat
}

// Preparer is implemented by targets that need work before a frame, such
// as acquiring a swapchain image or resizing to a window.
type Preparer interface {
	Prepare() error
}

// Presenter is implemented by targets that show their contents at the end
// of a frame.
type Presenter interface {
	Present() error
}

// PixelTarget is a target whose pixels are addressable from the host.
type PixelTarget interface {
	RenderTarget
	Pixels() []byte
	Stride() int
}

// PixmapTarget is a host-memory RGBA target.
type PixmapTarget struct {
	handle.Handled
	img *image.RGBA
}

var targetCounter = handle.For[RenderTarget]()

// NewPixmapTarget creates a target of the given size.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return NewPixmapTargetFromImage(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// NewPixmapTargetFromImage wraps img without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{Handled: handle.New(targetCounter), img: img}
}

// Width returns the width in pixels.
func (t *PixmapTarget) Width() int { return t.img.Bounds().Dx() }

// Height returns the height in pixels.
func (t *PixmapTarget) Height() int { return t.img.Bounds().Dy() }

// Format returns TextureFormatRGBA8Unorm.
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Pixels returns the pixel data.
func (t *PixmapTarget) Pixels() []byte { return t.img.Pix }

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int { return t.img.Stride }

// Image returns the backing image. It shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA { return t.img }

// Clear fills the target with c.
func (t *PixmapTarget) Clear(c gputypes.Color) {
	px := ColorRGBA(c)
	pix := t.img.Pix
	for y := range t.Height() {
		row := pix[y*t.img.Stride : y*t.img.Stride+t.Width()*4]
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+1], row[x+2], row[x+3] = px.R, px.G, px.B, px.A
		}
	}
}

// Resize replaces the pixels with a blank image of the given size.
func (t *PixmapTarget) Resize(width, height int) {
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// ColorRGBA converts a linear [0,1] color to 8-bit RGBA, clamping each
// channel.
func ColorRGBA(c gputypes.Color) color.RGBA {
	return color.RGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func unit8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5) //nolint:gosec // G115: clamped to [0,1]
}

var _ PixelTarget = (*PixmapTarget)(nil)
