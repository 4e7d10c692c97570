// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle gives a driver access to a GPU device owned by the host
// application. A driver built from a DeviceHandle never destroys the
// device.
type DeviceHandle = gpucontext.DeviceProvider

// TextureDescriptor describes a texture a driver creates from an image.
type TextureDescriptor struct {
	Label string

	// Width and Height, when non-zero, scale the source image.
	Width, Height uint32

	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// DefaultTextureDescriptor returns a sampled RGBA8 texture of the image's
// own size.
func DefaultTextureDescriptor(label string) TextureDescriptor {
	return TextureDescriptor{
		Label:  label,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

// Texture is a driver texture. It is reference counted like every driver
// resource.
type Texture interface {
	Handle() handle.Handle
	Width() uint32
	Height() uint32
	Format() gputypes.TextureFormat
	Retain()
	Release()
}

// NullDeviceHandle is a DeviceHandle without a device, for CPU drivers.
type NullDeviceHandle struct{}

// Device returns nil.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns TextureFormatUndefined.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports a software adapter.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "null", Type: gpucontext.AdapterTypeSoftware}
}

var _ DeviceHandle = NullDeviceHandle{}
