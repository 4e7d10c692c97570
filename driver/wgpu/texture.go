// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"image"

	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Texture is a sampled GPU texture.
type Texture struct {
	handle.Handled
	resource.Ref

	device hal.Device
	raw    hal.Texture
	view   hal.TextureView

	width, height uint32
	format        gputypes.TextureFormat
}

var _ render.Texture = (*Texture)(nil)

var textureCounter = handle.For[render.Texture]()

func newTexture(device hal.Device, queue hal.Queue, img image.Image, desc render.TextureDescriptor, owner resource.Owner) (*Texture, error) {
	format := desc.Format
	switch format {
	case gputypes.TextureFormatUndefined:
		format = gputypes.TextureFormatRGBA8Unorm
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
	default:
		return nil, fmt.Errorf("%w: %v", driver.ErrInvalidPixelFormat, format)
	}
	usage := desc.Usage
	if usage == 0 {
		usage = gputypes.TextureUsageTextureBinding
	}
	usage |= gputypes.TextureUsageCopyDst

	rgba := render.ConvertRGBA(img, int(desc.Width), int(desc.Height))
	w := uint32(rgba.Bounds().Dx()) //nolint:gosec // G115: image sizes are non-negative
	h := uint32(rgba.Bounds().Dy()) //nolint:gosec // G115: image sizes are non-negative

	raw, view, err := createTexture(device, desc.Label, w, h, format, usage)
	if err != nil {
		return nil, err
	}
	err = queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: raw, Aspect: gputypes.TextureAspectAll},
		rgba.Pix,
		&hal.ImageDataLayout{BytesPerRow: uint32(rgba.Stride), RowsPerImage: h}, //nolint:gosec // G115: stride is non-negative
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		device.DestroyTextureView(view)
		device.DestroyTexture(raw)
		return nil, fmt.Errorf("wgpu: write texture %q: %w", desc.Label, err)
	}

	t := &Texture{
		Handled: handle.New(textureCounter),
		device:  device,
		raw:     raw,
		view:    view,
		width:   w,
		height:  h,
		format:  format,
	}
	t.Init(t, owner)
	return t, nil
}

func createTexture(device hal.Device, label string, w, h uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	raw, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}
	view, err := device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:           label,
		Format:          format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		device.DestroyTexture(raw)
		return nil, nil, fmt.Errorf("wgpu: create texture view %q: %w", label, err)
	}
	return raw, view, nil
}

// Width returns the width in texels.
func (t *Texture) Width() uint32 { return t.width }

// Height returns the height in texels.
func (t *Texture) Height() uint32 { return t.height }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// View returns the HAL texture view.
func (t *Texture) View() hal.TextureView { return t.view }

// ReleaseResource destroys the view and texture.
func (t *Texture) ReleaseResource() {
	t.device.DestroyTextureView(t.view)
	t.device.DestroyTexture(t.raw)
}
