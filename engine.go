// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/driver/software"
	_ "github.com/gogpu/engine/driver/wgpu" // registers the GPU backend
	"github.com/gogpu/engine/internal/notify"
	"github.com/gogpu/engine/mesh"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/engine/vertex"
)

// Engine owns a driver and the meshes and queues it renders. Create one
// with New and release it with Close; there is no global instance.
type Engine struct {
	cfg     Config
	driver  *driver.Driver
	tracker *resource.Tracker

	mu     sync.Mutex
	meshes []*mesh.Mesh
	closed bool
}

// New creates an engine. Settings start from DefaultConfig; use
// WithConfig to apply a loaded file.
func New(opts ...Option) (*Engine, error) {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case o.logger != nil:
		SetLogger(o.logger)
	case cfg.LogLevel != "":
		level, _ := cfg.level()
		SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}
	notify.Configure(cfg.NotifyWorkers, cfg.NotifyQueue)

	e := &Engine{cfg: cfg}
	dopts := []driver.Option{driver.WithFrameBudget(time.Duration(cfg.FrameBudget))}
	if cfg.DebugTracker || cfg.MemoryBudget > 0 {
		e.tracker = resource.NewTracker(cfg.MemoryBudget)
		dopts = append(dopts, driver.WithTracker(e.tracker))
	}
	if cfg.Mapping != "" {
		m, err := vertex.LoadMappingFile(cfg.Mapping)
		if err != nil {
			return nil, fmt.Errorf("%w: mapping: %w", ErrInvalidConfig, err)
		}
		dopts = append(dopts, driver.WithMapper(m))
	}

	d, err := openDriver(cfg, dopts)
	if err != nil {
		return nil, err
	}
	e.driver = d
	Logger().Info("engine: started", "backend", d.Name(), "frame_budget", time.Duration(cfg.FrameBudget))
	return e, nil
}

func openDriver(cfg Config, opts []driver.Option) (*driver.Driver, error) {
	if cfg.Backend != "" {
		b := newBackend(cfg, cfg.Backend)
		if b == nil {
			return nil, fmt.Errorf("%w: %q", driver.ErrBackendNotAvailable, cfg.Backend)
		}
		return driver.New(b, opts...)
	}

	var errs []error
	for _, name := range driver.Available() {
		d, err := driver.New(newBackend(cfg, name), opts...)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, driver.ErrBackendNotAvailable
	}
	return nil, fmt.Errorf("%w: %w", driver.ErrBackendNotAvailable, errors.Join(errs...))
}

// newBackend returns a fresh backend. The software backend gets the
// configured buffer pool.
func newBackend(cfg Config, name string) driver.Backend {
	if name == driver.BackendSoftware && cfg.BufferPool > 0 {
		return software.New(software.WithPool(cfg.BufferPool))
	}
	return driver.Get(name)
}

// Config returns the settings in effect.
func (e *Engine) Config() Config { return e.cfg }

// Driver returns the engine's driver.
func (e *Engine) Driver() *driver.Driver { return e.driver }

// Tracker returns the allocation tracker, or nil when disabled.
func (e *Engine) Tracker() *resource.Tracker { return e.tracker }

// NewMesh creates a mesh whose driver cache is maintained every frame.
func (e *Engine) NewMesh(label string, opts ...mesh.Option) *mesh.Mesh {
	opts = append([]mesh.Option{
		mesh.WithLabel(label),
		mesh.WithTransactionTTL(time.Duration(e.cfg.TransactionTTL)),
	}, opts...)
	m := mesh.New(opts...)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		m.Close()
		return m
	}
	e.meshes = append(e.meshes, m)
	e.driver.Track(m)
	return m
}

// Meshes returns the meshes created by NewMesh and not yet released.
func (e *Engine) Meshes() []*mesh.Mesh {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.meshes)
}

// ReleaseMesh stops maintaining m and frees its hardware buffers. It
// reports whether m belonged to the engine.
func (e *Engine) ReleaseMesh(m *mesh.Mesh) bool {
	e.mu.Lock()
	i := slices.Index(e.meshes, m)
	if i >= 0 {
		e.meshes = slices.Delete(e.meshes, i, i+1)
	}
	e.mu.Unlock()
	if i < 0 {
		return false
	}
	e.driver.Untrack(m)
	m.Close()
	return true
}

// NewQueue creates a render queue committed every frame.
func (e *Engine) NewQueue(name string, kind render.QueueKind, priority int) *render.RenderQueue {
	q := render.NewRenderQueue(name, kind, priority)
	e.driver.AddQueue(q)
	return q
}

// Frame runs one frame: mesh maintenance, every queue, presentation.
func (e *Engine) Frame() error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return driver.ErrClosed
	}
	return e.driver.Update()
}

// Run calls Frame until ctx is done or n frames ran. A non-positive n
// runs until ctx is done. A non-zero interval paces frames.
func (e *Engine) Run(ctx context.Context, n int, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for i := 0; n <= 0 || i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Frame(); err != nil {
			return fmt.Errorf("engine: frame %d: %w", i, err)
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
	return nil
}

// Stats returns the driver counters.
func (e *Engine) Stats() driver.Stats { return e.driver.Stats() }

// Close releases every mesh, closes the driver and delivers pending
// diagnostics. Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	meshes := e.meshes
	e.meshes = nil
	e.mu.Unlock()

	e.driver.Close()
	for _, m := range meshes {
		m.Close()
	}
	Logger().Info("engine: closed", "backend", e.driver.Name())
	notify.Flush()
}
