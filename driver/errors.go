// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "errors"

var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot initialize.
	ErrBackendNotAvailable = errors.New("driver: backend not available")

	// ErrNotInitialized is returned by backends used before Init.
	ErrNotInitialized = errors.New("driver: backend not initialized")

	// ErrClosed is returned by operations on a closed driver.
	ErrClosed = errors.New("driver: closed")

	// ErrBudgetExceeded is reported when an allocation would exceed the
	// resource tracker's budget.
	ErrBudgetExceeded = errors.New("driver: memory budget exceeded")

	// ErrInvalidPixelFormat is returned when a target's pixel format is
	// not renderable by the backend.
	ErrInvalidPixelFormat = errors.New("driver: invalid pixel format")
)
