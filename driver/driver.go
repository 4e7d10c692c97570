// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/internal/notify"
	"github.com/gogpu/engine/mesh"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/engine/vertex"
	"github.com/gogpu/gpucontext"
)

// Driver orchestrates frames on a Backend. It is safe for concurrent use,
// but frames (Update) must not overlap.
type Driver struct {
	handle.Handled

	backend Backend
	opts    options

	queues render.QueueSet

	mu      sync.Mutex
	targets []render.RenderTarget
	windows []gpucontext.WindowProvider
	meshes  []*mesh.Mesh

	// sizes holds the bytes reserved in the tracker per driver buffer.
	sizesMu sync.Mutex
	sizes   map[handle.Handle]uint64

	closed atomic.Bool
	stats  counters
}

var (
	_ mesh.Driver        = (*Driver)(nil)
	_ mesh.BufferUpdater = (*Driver)(nil)
	_ resource.Owner     = (*Driver)(nil)
)

// New initializes b and returns a driver for it.
func New(b Backend, opts ...Option) (*Driver, error) {
	if b == nil {
		return nil, ErrBackendNotAvailable
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.mapper == nil {
		o.mapper = vertex.NewReflectMapper(DefaultReflectCache)
	}

	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("driver: init %s: %w", b.Name(), err)
	}

	d := &Driver{
		Handled: handle.New(handle.For[Driver]()),
		backend: b,
		opts:    o,
		sizes:   make(map[handle.Handle]uint64),
	}
	notify.Info("driver: created", "backend", b.Name(), "driver", d.Handle())
	return d, nil
}

// Backend returns the backend.
func (d *Driver) Backend() Backend { return d.backend }

// Name returns the backend name.
func (d *Driver) Name() string { return d.backend.Name() }

// FrameBudget returns the per-frame mesh maintenance budget.
func (d *Driver) FrameBudget() time.Duration { return d.opts.frameBudget }

// Tracker returns the allocation tracker, or nil.
func (d *Driver) Tracker() *resource.Tracker { return d.opts.tracker }

// -----------------------------------------------------------------------------
// Resources
// -----------------------------------------------------------------------------

// MakeBuffer creates a backend copy of b. It returns nil when the budget
// is exhausted or the backend fails.
func (d *Driver) MakeBuffer(b buffer.Software) buffer.Buffer {
	if d.closed.Load() {
		return nil
	}
	size := uint64(b.Size()) //nolint:gosec // G115: sizes are non-negative
	if !d.opts.tracker.Reserve(size) {
		d.stats.buffersFailed.Add(1)
		notify.Warn("driver: buffer rejected", "backend", d.Name(), "size", size, "err", ErrBudgetExceeded)
		return nil
	}

	hw, err := d.backend.NewBuffer(b, d)
	if err != nil || hw == nil {
		d.opts.tracker.Free(size)
		d.stats.buffersFailed.Add(1)
		notify.Warn("driver: buffer creation failed", "backend", d.Name(),
			"buffer", b.Handle(), "type", b.Type(), "size", size, "err", err)
		return nil
	}
	if d.opts.tracker != nil {
		d.sizesMu.Lock()
		d.sizes[hw.Handle()] = size
		d.sizesMu.Unlock()
	}
	d.stats.buffersCreated.Add(1)
	return hw
}

// UpdateBuffer copies data into hw, moving its tracker reservation to the
// new size. Growth past the budget drops the update with a warning.
func (d *Driver) UpdateBuffer(hw buffer.Buffer, data []byte, usage buffer.Usage) {
	if d.opts.tracker == nil {
		hw.Update(data, usage)
		return
	}
	size := uint64(len(data))
	d.sizesMu.Lock()
	old, ok := d.sizes[hw.Handle()]
	if ok {
		if !d.opts.tracker.Resize(old, size) {
			d.sizesMu.Unlock()
			notify.Warn("driver: buffer update rejected", "backend", d.Name(),
				"buffer", hw.Handle(), "size", size, "err", ErrBudgetExceeded)
			return
		}
		d.sizes[hw.Handle()] = size
	}
	d.sizesMu.Unlock()
	hw.Update(data, usage)
}

// MakeShader creates a pipeline. Descriptors without a mapper get the
// driver's default mapper.
func (d *Driver) MakeShader(desc render.ShaderDescriptor) render.Pipeline {
	if d.closed.Load() {
		return nil
	}
	if desc.Mapper == nil {
		desc.Mapper = d.opts.mapper
	}
	p, err := d.backend.NewPipeline(desc, d)
	if err != nil || p == nil {
		notify.Warn("driver: pipeline creation failed", "backend", d.Name(), "label", desc.Label, "err", err)
		return nil
	}
	d.stats.pipelines.Add(1)
	return p
}

// MakeTexture uploads img. It returns nil on failure.
func (d *Driver) MakeTexture(img image.Image, desc render.TextureDescriptor) render.Texture {
	if d.closed.Load() || img == nil {
		return nil
	}
	t, err := d.backend.NewTexture(img, desc, d)
	if err != nil || t == nil {
		notify.Warn("driver: texture creation failed", "backend", d.Name(), "label", desc.Label, "err", err)
		return nil
	}
	d.stats.textures.Add(1)
	return t
}

// ShouldReleaseResource is called when a resource's count reaches zero.
// The bytes reserved for a buffer leave the tracker whether or not the
// backend keeps the buffer pooled; the backend's policy decides the rest.
func (d *Driver) ShouldReleaseResource(r resource.Releaser) bool {
	if b, ok := r.(buffer.Buffer); ok && d.opts.tracker != nil {
		d.sizesMu.Lock()
		size, reserved := d.sizes[b.Handle()]
		delete(d.sizes, b.Handle())
		d.sizesMu.Unlock()
		if reserved {
			d.opts.tracker.Free(size)
		}
	}
	return d.backend.ShouldRelease(r)
}

// -----------------------------------------------------------------------------
// Frame inputs
// -----------------------------------------------------------------------------

// AddQueue schedules q for every frame.
func (d *Driver) AddQueue(q *render.RenderQueue) { d.queues.Add(q) }

// RemoveQueue unschedules q.
func (d *Driver) RemoveQueue(q *render.RenderQueue) bool { return d.queues.Remove(q) }

// Queues returns the scheduled queues in commit order.
func (d *Driver) Queues() []*render.RenderQueue { return d.queues.Queues() }

// AddTarget adds a target prepared and presented every frame.
func (d *Driver) AddTarget(t render.RenderTarget) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !slices.Contains(d.targets, t) {
		d.targets = append(d.targets, t)
	}
}

// RemoveTarget removes a target.
func (d *Driver) RemoveTarget(t render.RenderTarget) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := slices.Index(d.targets, t); i >= 0 {
		d.targets = slices.Delete(d.targets, i, i+1)
	}
}

// AddWindow adds a window whose redraw is requested after every frame.
func (d *Driver) AddWindow(w gpucontext.WindowProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows = append(d.windows, w)
}

// Track associates m with the driver and applies its transactions every
// frame.
func (d *Driver) Track(m *mesh.Mesh) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slices.Contains(d.meshes, m) {
		return
	}
	m.Associate(d)
	d.meshes = append(d.meshes, m)
}

// Untrack dissociates m. It may be called while a frame is running; the
// frame skips m from then on.
func (d *Driver) Untrack(m *mesh.Mesh) {
	d.mu.Lock()
	i := slices.Index(d.meshes, m)
	if i >= 0 {
		d.meshes = slices.Delete(d.meshes, i, i+1)
	}
	d.mu.Unlock()
	if i >= 0 {
		m.Dissociate(d)
	}
}

// -----------------------------------------------------------------------------
// Frames
// -----------------------------------------------------------------------------

// Update runs one frame: mesh cache maintenance within the frame budget,
// target preparation, a commit of every queue in priority order, then
// presentation and window redraw requests.
func (d *Driver) Update() error {
	if d.closed.Load() {
		return ErrClosed
	}

	d.mu.Lock()
	meshes := slices.Clone(d.meshes)
	targets := slices.Clone(d.targets)
	windows := slices.Clone(d.windows)
	d.mu.Unlock()

	d.updateMeshes(meshes)

	for _, t := range targets {
		if p, ok := t.(render.Preparer); ok {
			if err := p.Prepare(); err != nil {
				notify.Warn("driver: target prepare failed", "target", t.Handle(), "err", err)
			}
		}
	}

	if err := d.backend.BeginFrame(); err != nil {
		return fmt.Errorf("driver: begin frame: %w", err)
	}
	for _, q := range d.queues.Queues() {
		d.Commit(q)
	}
	if err := d.backend.EndFrame(); err != nil {
		return fmt.Errorf("driver: end frame: %w", err)
	}

	var presentErr error
	for _, t := range targets {
		if p, ok := t.(render.Presenter); ok {
			presentErr = errors.Join(presentErr, p.Present())
		}
	}
	for _, w := range windows {
		w.RequestRedraw()
	}
	d.stats.frames.Add(1)
	return presentErr
}

func (d *Driver) updateMeshes(meshes []*mesh.Mesh) {
	start := time.Now()
	for _, m := range meshes {
		left := d.opts.frameBudget - time.Since(start)
		if left <= 0 {
			return
		}
		st, ok := m.UpdateAssociated(d, left)
		if !ok {
			continue
		}
		d.stats.transactions.Add(uint64(st.Applied)) //nolint:gosec // G115: counts are non-negative
		d.stats.expired.Add(uint64(st.Expired))      //nolint:gosec // G115: counts are non-negative
	}
}

// Commit renders exactly the commands q had committed when Commit was
// called. Commands added meanwhile wait for the next frame. It returns
// the number of commands rendered.
func (d *Driver) Commit(q *render.RenderQueue) int {
	n := q.CommittedCommands()
	done := 0
	for range n {
		cmd := q.NextCommand()
		if cmd == nil {
			break
		}
		d.RenderCommand(cmd)
		done++
	}
	return done
}

// RenderCommand issues cmd's draws. A command without a target or a
// pipeline is a programming error and panics.
func (d *Driver) RenderCommand(cmd *render.RenderCommand) {
	if cmd == nil || cmd.Target == nil || cmd.Pipeline == nil {
		panic("driver: RenderCommand requires a target and a pipeline")
	}
	draws, err := d.backend.Execute(cmd)
	d.stats.commands.Add(1)
	d.stats.draws.Add(uint64(draws)) //nolint:gosec // G115: counts are non-negative
	if err != nil {
		notify.Warn("driver: command failed", "backend", d.Name(),
			"pipeline", cmd.Pipeline.Label(), "target", cmd.Target.Handle(), "err", err)
	}
}

// Close dissociates every tracked mesh and closes the backend. Close is
// idempotent.
func (d *Driver) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.mu.Lock()
	meshes := d.meshes
	d.meshes = nil
	d.targets = nil
	d.windows = nil
	d.mu.Unlock()

	for _, m := range meshes {
		m.Dissociate(d)
	}
	d.backend.Close()
	notify.Info("driver: closed", "backend", d.Name(), "driver", d.Handle())
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool { return d.closed.Load() }
