// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import "sync/atomic"

// Releaser frees the backing object of a resource. ReleaseResource is
// called at most once per resource.
type Releaser interface {
	ReleaseResource()
}

// Owner decides whether a resource whose count reached zero is freed.
type Owner interface {
	ShouldReleaseResource(r Releaser) bool
}

// Ref is an atomic reference count with owner-delegated release.
// It must be initialized with Init before use and must not be copied.
type Ref struct {
	count    atomic.Int64
	released atomic.Bool
	self     Releaser
	owner    Owner
}

// Init binds the count to the resource it guards and its optional owner.
// The count starts at zero.
func (r *Ref) Init(self Releaser, owner Owner) {
	if self == nil {
		panic("resource: Init with nil Releaser")
	}
	r.self = self
	r.owner = owner
}

// Owner returns the owning driver, or nil.
func (r *Ref) Owner() Owner {
	return r.owner
}

// Retain adds a holder. Retaining a released resource panics.
func (r *Ref) Retain() {
	if r.released.Load() {
		panic("resource: retain after release")
	}
	r.count.Add(1)
}

// Release drops a holder. When the count reaches zero the resource is
// freed unless its owner denies it. Releasing below zero panics.
func (r *Ref) Release() {
	n := r.count.Add(-1)
	switch {
	case n > 0:
		return
	case n < 0:
		r.count.Add(1)
		panic("resource: release of unretained resource")
	}
	if r.owner != nil && !r.owner.ShouldReleaseResource(r.self) {
		return
	}
	r.Destroy()
}

// Destroy frees the backing object now, regardless of the count or the
// owner's policy. Drivers call it to evict pooled resources. Calls after
// the first are no-ops.
func (r *Ref) Destroy() {
	if r.released.CompareAndSwap(false, true) {
		r.self.ReleaseResource()
	}
}

// Count returns the current number of holders.
func (r *Ref) Count() int64 {
	return r.count.Load()
}

// Released reports whether the backing object was freed.
func (r *Ref) Released() bool {
	return r.released.Load()
}
