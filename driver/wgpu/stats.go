package wgpu

import (
	"fmt"
	"sync/atomic"
)

type counters struct {
	buffers   atomic.Uint64
	pipelines atomic.Uint64
	textures  atomic.Uint64
	compiles  atomic.Uint64
	variants  atomic.Uint64
	passes    atomic.Uint64
	draws     atomic.Uint64
	submits   atomic.Uint64
}

// Stats reports backend activity.
type Stats struct {
	Adapter   string
	Buffers   uint64
	Pipelines uint64
	Textures  uint64

	// Compiles counts WGSL to SPIR-V compilations; cached sources are
	// not recompiled.
	Compiles uint64

	// Variants counts render pipelines created; CachedVariants is how
	// many are alive.
	Variants       uint64
	CachedVariants int

	Passes  uint64
	Draws   uint64
	Submits uint64
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("wgpu[%s]: buffers=%d pipelines=%d variants=%d/%d passes=%d draws=%d submits=%d",
		s.Adapter, s.Buffers, s.Pipelines, s.CachedVariants, s.Variants, s.Passes, s.Draws, s.Submits)
}

// Stats returns a snapshot of the counters.
func (b *Backend) Stats() Stats {
	return Stats{
		Adapter:        b.AdapterInfo().Name,
		Buffers:        b.stats.buffers.Load(),
		Pipelines:      b.stats.pipelines.Load(),
		Textures:       b.stats.textures.Load(),
		Compiles:       b.stats.compiles.Load(),
		Variants:       b.stats.variants.Load(),
		CachedVariants: b.variants.Len(),
		Passes:         b.stats.passes.Load(),
		Draws:          b.stats.draws.Load(),
		Submits:        b.stats.submits.Load(),
	}
}
