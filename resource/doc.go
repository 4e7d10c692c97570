// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resource implements the reference-counted lifetime protocol
// shared by every GPU-backed object.
//
// A resource embeds a Ref and implements Releaser. Holders call Retain
// when they keep the resource and Release when they let go. When the
// count returns to zero the owning driver, if any, is asked through
// Owner.ShouldReleaseResource whether the backing object may be freed.
// A driver that answers false keeps the resource alive at count zero,
// which lets it pool and reuse GPU objects across logical lifetimes.
//
// Releasing a resource more times than it was retained is a programming
// error and panics.
//
// Tracker is optional debug instrumentation that counts live allocations
// and bytes, with an optional byte budget.
package resource
