// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"fmt"
	"sync/atomic"
)

// Tracker counts allocations and live bytes. A nil *Tracker is valid and
// records nothing, so instrumentation can be switched off by passing nil.
type Tracker struct {
	budget uint64

	allocs    atomic.Uint64
	frees     atomic.Uint64
	liveBytes atomic.Uint64
	peakBytes atomic.Uint64
	denied    atomic.Uint64
}

// TrackerStats is a snapshot of a Tracker.
type TrackerStats struct {
	Allocs    uint64
	Frees     uint64
	Live      uint64
	LiveBytes uint64
	PeakBytes uint64

	// Budget is the byte limit, 0 when unlimited.
	Budget uint64

	// Denied counts reservations refused by the budget.
	Denied uint64
}

// String returns a human-readable summary.
func (s TrackerStats) String() string {
	if s.Budget == 0 {
		return fmt.Sprintf("Resources[%d live, %d KB, peak %d KB]",
			s.Live, s.LiveBytes/1024, s.PeakBytes/1024)
	}
	return fmt.Sprintf("Resources[%d live, %d/%d KB, peak %d KB, %d denied]",
		s.Live, s.LiveBytes/1024, s.Budget/1024, s.PeakBytes/1024, s.Denied)
}

// NewTracker returns a tracker with a byte budget. A zero budget is
// unlimited.
func NewTracker(budget uint64) *Tracker {
	return &Tracker{budget: budget}
}

// Reserve records an allocation of size bytes. It reports false, and
// records nothing, when the allocation would exceed the budget.
func (t *Tracker) Reserve(size uint64) bool {
	if t == nil {
		return true
	}
	for {
		cur := t.liveBytes.Load()
		next := cur + size
		if t.budget > 0 && next > t.budget {
			t.denied.Add(1)
			return false
		}
		if t.liveBytes.CompareAndSwap(cur, next) {
			t.allocs.Add(1)
			t.raisePeak(next)
			return true
		}
	}
}

// Free records the release of an allocation of size bytes.
func (t *Tracker) Free(size uint64) {
	if t == nil {
		return
	}
	t.frees.Add(1)
	for {
		cur := t.liveBytes.Load()
		next := cur - min(size, cur)
		if t.liveBytes.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Resize moves a live allocation from old to size bytes without changing
// the allocation count. Growth is checked against the budget; it reports
// false, and records nothing, when the budget would be exceeded.
func (t *Tracker) Resize(old, size uint64) bool {
	if t == nil || old == size {
		return true
	}
	for {
		cur := t.liveBytes.Load()
		next := cur - min(old, cur) + size
		if size > old && t.budget > 0 && next > t.budget {
			t.denied.Add(1)
			return false
		}
		if t.liveBytes.CompareAndSwap(cur, next) {
			t.raisePeak(next)
			return true
		}
	}
}

func (t *Tracker) raisePeak(v uint64) {
	for {
		p := t.peakBytes.Load()
		if v <= p || t.peakBytes.CompareAndSwap(p, v) {
			return
		}
	}
}

// Stats returns a snapshot. A nil tracker reports zeros.
func (t *Tracker) Stats() TrackerStats {
	if t == nil {
		return TrackerStats{}
	}
	allocs, frees := t.allocs.Load(), t.frees.Load()
	return TrackerStats{
		Allocs:    allocs,
		Frees:     frees,
		Live:      allocs - min(frees, allocs),
		LiveBytes: t.liveBytes.Load(),
		PeakBytes: t.peakBytes.Load(),
		Budget:    t.budget,
		Denied:    t.denied.Load(),
	}
}
