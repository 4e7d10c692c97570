// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"
)

// Registered backend names.
const (
	BackendWGPU     = "wgpu"
	BackendSoftware = "software"
)

// priority lists preferred backends first.
var priority = []string{BackendWGPU, BackendSoftware}

var backends = gpucontext.NewRegistry[Backend](gpucontext.WithPriority(priority...))

// Register makes a backend factory available under name, replacing any
// previous registration. Backend packages call it from init.
func Register(name string, factory func() Backend) {
	backends.Register(name, factory)
}

// Unregister removes a backend. It is mostly useful in tests.
func Unregister(name string) {
	backends.Unregister(name)
}

// IsRegistered reports whether name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Available returns the registered names, preferred backends first and
// the rest sorted.
func Available() []string {
	names := backends.Available()
	slices.SortFunc(names, func(a, b string) int {
		ra, rb := rank(a), rank(b)
		if ra != rb {
			return ra - rb
		}
		return cmp.Compare(a, b)
	})
	return names
}

func rank(name string) int {
	if i := slices.Index(priority, name); i >= 0 {
		return i
	}
	return len(priority)
}

// Get returns a new, uninitialized backend, or nil.
func Get(name string) Backend {
	return backends.Get(name)
}

// Default returns a new instance of the preferred registered backend, or
// nil when none is registered.
func Default() Backend {
	return backends.Best()
}

// DefaultName returns the name Default would use.
func DefaultName() string {
	return backends.BestName()
}

// Open creates and initializes a driver. An empty name tries every
// registered backend in preference order and uses the first that
// initializes.
func Open(name string, opts ...Option) (*Driver, error) {
	if name != "" {
		b := Get(name)
		if b == nil {
			return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
		}
		return New(b, opts...)
	}

	var errs []error
	for _, n := range Available() {
		b := Get(n)
		if b == nil {
			continue
		}
		d, err := New(b, opts...)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, errs[len(errs)-1])
}
