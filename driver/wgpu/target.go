// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ViewTarget is a render target backed by a HAL texture view, such as a
// swapchain image provided by the host.
type ViewTarget interface {
	render.RenderTarget
	View() hal.TextureView
}

// Target is an offscreen GPU render target.
type Target struct {
	handle.Handled

	device hal.Device
	raw    hal.Texture
	view   hal.TextureView
	width  int
	height int
	format gputypes.TextureFormat
}

var _ ViewTarget = (*Target)(nil)

var targetCounter = handle.For[Target]()

// NewTarget creates an offscreen target that can also be sampled and
// copied from.
func (b *Backend) NewTarget(width, height int, format gputypes.TextureFormat) (*Target, error) {
	device, _, err := b.ready()
	if err != nil {
		return nil, err
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	raw, view, err := createTexture(device, "target",
		uint32(width), uint32(height), format, //nolint:gosec // G115: sizes are non-negative
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopySrc)
	if err != nil {
		return nil, err
	}
	return &Target{
		Handled: handle.New(targetCounter),
		device:  device,
		raw:     raw,
		view:    view,
		width:   width,
		height:  height,
		format:  format,
	}, nil
}

// Width returns the width in pixels.
func (t *Target) Width() int { return t.width }

// Height returns the height in pixels.
func (t *Target) Height() int { return t.height }

// Format returns the texel format.
func (t *Target) Format() gputypes.TextureFormat { return t.format }

// View returns the HAL texture view.
func (t *Target) View() hal.TextureView { return t.view }

// Texture returns the HAL texture.
func (t *Target) Texture() hal.Texture { return t.raw }

// Destroy frees the texture. The target must not be used afterwards.
func (t *Target) Destroy() {
	if t.raw == nil {
		return
	}
	t.device.DestroyTextureView(t.view)
	t.device.DestroyTexture(t.raw)
	t.raw, t.view = nil, nil
}

// mirror is the GPU texture a host pixel target is rendered through,
// with the staging buffer its pixels are read back from.
type mirror struct {
	raw      hal.Texture
	view     hal.TextureView
	staging  hal.Buffer
	width    int
	height   int
	rowPitch uint32
}

// copyPitchAlignment is the row alignment of texture to buffer copies.
const copyPitchAlignment = 256

func newMirror(device hal.Device, width, height int) (*mirror, error) {
	w, h := uint32(width), uint32(height) //nolint:gosec // G115: sizes are non-negative
	raw, view, err := createTexture(device, "mirror", w, h, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc|gputypes.TextureUsageCopyDst)
	if err != nil {
		return nil, err
	}
	pitch := (w*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mirror-readback",
		Size:  uint64(pitch) * uint64(h),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyTextureView(view)
		device.DestroyTexture(raw)
		return nil, fmt.Errorf("wgpu: mirror staging buffer: %w", err)
	}
	return &mirror{raw: raw, view: view, staging: staging, width: width, height: height, rowPitch: pitch}, nil
}

func (m *mirror) destroy(device hal.Device) {
	device.DestroyBuffer(m.staging)
	device.DestroyTextureView(m.view)
	device.DestroyTexture(m.raw)
}

// mirrorFor returns the mirror of t, recreating it when t was resized.
func (b *Backend) mirrorFor(device hal.Device, t render.PixelTarget) (*mirror, error) {
	b.mirrorsMu.Lock()
	defer b.mirrorsMu.Unlock()
	m := b.mirrors[t.Handle()]
	if m != nil && m.width == t.Width() && m.height == t.Height() {
		return m, nil
	}
	if m != nil {
		m.destroy(device)
		delete(b.mirrors, t.Handle())
	}
	m, err := newMirror(device, t.Width(), t.Height())
	if err != nil {
		return nil, err
	}
	b.mirrors[t.Handle()] = m
	return m, nil
}

// ForgetTarget frees the mirror of a host target that will not be drawn
// to again.
func (b *Backend) ForgetTarget(h handle.Handle) {
	device, _, err := b.ready()
	if err != nil {
		return
	}
	b.mirrorsMu.Lock()
	m := b.mirrors[h]
	delete(b.mirrors, h)
	b.mirrorsMu.Unlock()
	if m != nil {
		_ = device.WaitIdle()
		m.destroy(device)
	}
}
