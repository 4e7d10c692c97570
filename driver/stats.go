// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/engine/resource"
)

type counters struct {
	frames         atomic.Uint64
	commands       atomic.Uint64
	draws          atomic.Uint64
	buffersCreated atomic.Uint64
	buffersFailed  atomic.Uint64
	pipelines      atomic.Uint64
	textures       atomic.Uint64
	transactions   atomic.Uint64
	expired        atomic.Uint64
}

// Stats is a snapshot of a driver's counters.
type Stats struct {
	Backend string

	Frames    uint64
	Commands  uint64
	DrawCalls uint64

	BuffersCreated uint64
	BuffersFailed  uint64
	Pipelines      uint64
	Textures       uint64

	// Transactions and Expired count mesh transactions applied and
	// dropped during frames.
	Transactions uint64
	Expired      uint64

	Queues  int
	Targets int
	Meshes  int

	// Tracker is the allocation tracker snapshot, zero without a tracker.
	Tracker resource.TrackerStats
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("%s: frames=%d commands=%d draws=%d buffers=%d/%d failed transactions=%d expired=%d",
		s.Backend, s.Frames, s.Commands, s.DrawCalls, s.BuffersCreated, s.BuffersFailed,
		s.Transactions, s.Expired)
}

// Stats returns the current counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	targets, meshes := len(d.targets), len(d.meshes)
	d.mu.Unlock()

	return Stats{
		Backend:        d.Name(),
		Frames:         d.stats.frames.Load(),
		Commands:       d.stats.commands.Load(),
		DrawCalls:      d.stats.draws.Load(),
		BuffersCreated: d.stats.buffersCreated.Load(),
		BuffersFailed:  d.stats.buffersFailed.Load(),
		Pipelines:      d.stats.pipelines.Load(),
		Textures:       d.stats.textures.Load(),
		Transactions:   d.stats.transactions.Load(),
		Expired:        d.stats.expired.Load(),
		Queues:         d.queues.Len(),
		Targets:        targets,
		Meshes:         meshes,
		Tracker:        d.opts.tracker.Stats(),
	}
}
