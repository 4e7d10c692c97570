// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"time"

	"github.com/gogpu/engine/resource"
	"github.com/gogpu/engine/vertex"
)

// DefaultFrameBudget bounds per-frame mesh cache maintenance.
const DefaultFrameBudget = 2 * time.Millisecond

// DefaultReflectCache is the number of shader reflections kept by the
// default mapper.
const DefaultReflectCache = 64

type options struct {
	frameBudget time.Duration
	tracker     *resource.Tracker
	mapper      vertex.ShaderMapper
}

func defaultOptions() options {
	return options{frameBudget: DefaultFrameBudget}
}

// Option configures a Driver.
type Option func(*options)

// WithFrameBudget sets how long Update may spend applying mesh
// transactions each frame.
func WithFrameBudget(d time.Duration) Option {
	return func(o *options) { o.frameBudget = d }
}

// WithTracker counts buffer allocations in t and enforces its budget.
func WithTracker(t *resource.Tracker) Option {
	return func(o *options) { o.tracker = t }
}

// WithMapper sets the mapper of pipelines made without one. The default
// maps WGSL vertex inputs by name.
func WithMapper(m vertex.ShaderMapper) Option {
	return func(o *options) { o.mapper = m }
}
