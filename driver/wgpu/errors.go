// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import "errors"

var (
	// ErrNoAdapter is returned by Init when no HAL backend offers an
	// adapter.
	ErrNoAdapter = errors.New("wgpu: no adapter available")

	// ErrShaderCompile wraps WGSL compilation failures.
	ErrShaderCompile = errors.New("wgpu: shader compilation failed")

	// ErrBufferTooLarge is returned for buffers above the size limit.
	ErrBufferTooLarge = errors.New("wgpu: buffer too large")

	// ErrUnsupportedIndexType is returned for index formats other than
	// uint16 and uint32.
	ErrUnsupportedIndexType = errors.New("wgpu: unsupported index type")

	// ErrUnsupportedTarget is returned for targets the backend cannot
	// render to.
	ErrUnsupportedTarget = errors.New("wgpu: unsupported render target")

	// ErrForeignResource is returned when a command references a buffer
	// or pipeline created by another backend.
	ErrForeignResource = errors.New("wgpu: resource not created by this backend")

	// ErrNoHALProvider is returned by NewFromProvider when the provider
	// does not expose HAL objects.
	ErrNoHALProvider = errors.New("wgpu: provider does not expose HAL device and queue")
)
