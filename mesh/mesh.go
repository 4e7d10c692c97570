package mesh

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/internal/notify"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/transaction"
	"github.com/gogpu/engine/vertex"
)

// Driver creates the hardware copies of a mesh's buffers.
type Driver interface {
	// Handle identifies the driver. A mesh keeps one cache per handle.
	Handle() handle.Handle

	// MakeBuffer returns a driver buffer holding b's contents, or nil when
	// it cannot create one. The returned buffer has no holders yet.
	MakeBuffer(b buffer.Software) buffer.Buffer
}

// BufferUpdater is implemented by drivers that copy new contents into
// their buffers themselves, for instance to account for growth. Drivers
// without it get hw.Update.
type BufferUpdater interface {
	UpdateBuffer(hw buffer.Buffer, data []byte, usage buffer.Usage)
}

// Option configures a Mesh.
type Option func(*Mesh)

// WithTransactionTTL sets how long enqueued transactions stay valid.
// Non-positive values never expire.
func WithTransactionTTL(ttl time.Duration) Option {
	return func(m *Mesh) { m.ttl = ttl }
}

// WithLabel sets the label used in diagnostics.
func WithLabel(label string) Option {
	return func(m *Mesh) { m.label = label }
}

// Mesh owns software geometry and the per-driver caches derived from it.
//
// Lock order: mu before cachesMu.
type Mesh struct {
	handle.Handled

	label string
	ttl   time.Duration

	mu        sync.RWMutex
	buffers   []buffer.Software
	known     map[handle.Handle]struct{}
	submeshes []SubMesh
	closed    bool

	cachesMu sync.Mutex
	caches   map[handle.Handle]*driverCache

	mapFailed notify.Once
}

// New creates an empty mesh.
func New(opts ...Option) *Mesh {
	m := &Mesh{
		Handled: handle.New(handle.For[Mesh]()),
		known:   make(map[handle.Handle]struct{}),
		caches:  make(map[handle.Handle]*driverCache),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Label returns the diagnostic label.
func (m *Mesh) Label() string { return m.label }

func (m *Mesh) checkOpen() {
	if m.closed {
		panic("mesh: use of closed mesh")
	}
}

// enqueueLocked pushes one transaction to every associated driver. The
// caller holds mu.
func (m *Mesh) enqueueLocked(typ transaction.Type, bufs []buffer.Software) {
	m.cachesMu.Lock()
	defer m.cachesMu.Unlock()

	for _, c := range m.caches {
		c.queue.Push(transaction.New(typ, newPayload(bufs), m.ttl))
	}
}

// -----------------------------------------------------------------------------
// Authoring
// -----------------------------------------------------------------------------

// AddSubMesh appends sm and returns its index. Cached attribute maps of
// every driver are dropped once the driver applies the change.
func (m *Mesh) AddSubMesh(sm SubMesh) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	m.submeshes = append(m.submeshes, sm)
	m.mapFailed.Reset()
	m.enqueueLocked(OpAddSubMesh, nil)
	return len(m.submeshes) - 1
}

// RemoveSubMesh removes the submesh at index i. It reports false when i
// is out of range.
func (m *Mesh) RemoveSubMesh(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	if i < 0 || i >= len(m.submeshes) {
		return false
	}
	m.submeshes = slices.Delete(m.submeshes, i, i+1)
	m.mapFailed.Reset()
	m.enqueueLocked(OpRemoveSubMesh, nil)
	return true
}

// AddVertexBuffer registers a vertex buffer.
func (m *Mesh) AddVertexBuffer(b buffer.Software) {
	if b == nil || b.Type() != buffer.TypeVertex {
		panic("mesh: AddVertexBuffer requires a vertex buffer")
	}
	m.AddBuffers(b)
}

// AddIndexBuffer registers an index buffer.
func (m *Mesh) AddIndexBuffer(b buffer.Software) {
	if b == nil || b.Type() != buffer.TypeIndex {
		panic("mesh: AddIndexBuffer requires an index buffer")
	}
	m.AddBuffers(b)
}

// AddBuffers registers software buffers and enqueues a single transaction
// per associated driver. The mesh holds a reference on each buffer until
// Close. Registering a buffer twice is harmless.
func (m *Mesh) AddBuffers(bufs ...buffer.Software) {
	if len(bufs) == 0 {
		return
	}
	if slices.Contains(bufs, nil) {
		panic("mesh: nil buffer")
	}
	bufs = slices.Clone(bufs)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	for _, b := range bufs {
		if _, ok := m.known[b.Handle()]; ok {
			continue
		}
		b.Retain()
		m.known[b.Handle()] = struct{}{}
		m.buffers = append(m.buffers, b)
	}
	m.enqueueLocked(bufferOp(OpAddBuffer, OpAddBuffers, len(bufs)), bufs)
}

// UpdateBuffer tells every associated driver that b's contents changed.
func (m *Mesh) UpdateBuffer(b buffer.Software) {
	m.UpdateBuffers(b)
}

// UpdateBuffers is UpdateBuffer for a batch. Buffers not registered with
// the mesh are skipped with a warning. It must not be called while
// holding a buffer's lock.
func (m *Mesh) UpdateBuffers(bufs ...buffer.Software) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	kept := make([]buffer.Software, 0, len(bufs))
	for _, b := range bufs {
		if b == nil {
			continue
		}
		if _, ok := m.known[b.Handle()]; !ok {
			notify.Warn("mesh: update of unregistered buffer", "mesh", m.label, "buffer", b.Handle())
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		return
	}
	m.enqueueLocked(bufferOp(OpUpdateBuffer, OpUpdateBuffers, len(kept)), kept)
}

// SubMeshes returns a copy of the submeshes.
func (m *Mesh) SubMeshes() []SubMesh {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.submeshes)
}

// Buffers returns the registered software buffers in registration order.
func (m *Mesh) Buffers() []buffer.Software {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.buffers)
}

// -----------------------------------------------------------------------------
// Driver association
// -----------------------------------------------------------------------------

// Associate creates the cache for d and builds driver copies of every
// registered buffer before returning. Associating a driver twice logs a
// warning and returns false.
func (m *Mesh) Associate(d Driver) bool {
	if d == nil {
		panic("mesh: Associate with nil driver")
	}

	m.mu.RLock()
	m.checkOpen()
	bufs := slices.Clone(m.buffers)

	m.cachesMu.Lock()
	if _, ok := m.caches[d.Handle()]; ok {
		m.cachesMu.Unlock()
		m.mu.RUnlock()
		notify.Warn("mesh: driver already associated", "mesh", m.label, "driver", d.Handle())
		return false
	}
	c := newDriverCache(d)
	m.caches[d.Handle()] = c
	m.cachesMu.Unlock()
	m.mu.RUnlock()

	for _, b := range bufs {
		m.build(c, b)
	}
	return true
}

// Associated reports whether d has a cache.
func (m *Mesh) Associated(d Driver) bool {
	return m.cache(d) != nil
}

// Dissociate drops d's cache, releasing every driver buffer it holds and
// discarding pending transactions. It reports whether d was associated.
func (m *Mesh) Dissociate(d Driver) bool {
	m.cachesMu.Lock()
	c, ok := m.caches[d.Handle()]
	var evicted []buffer.Buffer
	if ok {
		delete(m.caches, d.Handle())
		evicted = c.evict()
	}
	m.cachesMu.Unlock()

	if !ok {
		return false
	}
	c.queue.Clear()
	for _, b := range evicted {
		b.Release()
	}
	return true
}

// Close dissociates every driver and drops the mesh's references on its
// software buffers. Close is idempotent; any other use afterwards panics.
func (m *Mesh) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	bufs := m.buffers
	m.buffers = nil
	m.submeshes = nil
	clear(m.known)

	m.cachesMu.Lock()
	drivers := make([]Driver, 0, len(m.caches))
	for _, c := range m.caches {
		drivers = append(drivers, c.driver)
	}
	m.cachesMu.Unlock()
	m.mu.Unlock()

	for _, d := range drivers {
		m.Dissociate(d)
	}
	for _, b := range bufs {
		b.Release()
	}
}

func (m *Mesh) cache(d Driver) *driverCache {
	m.cachesMu.Lock()
	defer m.cachesMu.Unlock()
	return m.caches[d.Handle()]
}

// Pending returns the number of transactions queued for d.
func (m *Mesh) Pending(d Driver) int {
	c := m.cache(d)
	if c == nil {
		return 0
	}
	return c.queue.Len()
}

// DriverBuffer returns the buffer d binds for b, or nil.
func (m *Mesh) DriverBuffer(d Driver, b buffer.Buffer) buffer.Buffer {
	m.cachesMu.Lock()
	defer m.cachesMu.Unlock()
	return m.caches[d.Handle()].lookup(b)
}

// -----------------------------------------------------------------------------
// Cache maintenance
// -----------------------------------------------------------------------------

// UpdateStats reports the work done by one Update call.
type UpdateStats struct {
	Applied   int
	Expired   int
	Remaining int
}

// Update applies d's queued transactions in order until the queue is
// empty or maxDuration has elapsed. The deadline is checked between
// transactions only. Expired transactions are dropped without effect.
// Update panics if d is not associated.
func (m *Mesh) Update(d Driver, maxDuration time.Duration) UpdateStats {
	c := m.cache(d)
	if c == nil {
		panic(fmt.Sprintf("mesh: Update with unassociated driver %d", d.Handle()))
	}
	return m.drain(c, maxDuration)
}

// UpdateAssociated is Update for callers that may race with Dissociate.
// It does nothing and reports false when d is not associated.
func (m *Mesh) UpdateAssociated(d Driver, maxDuration time.Duration) (UpdateStats, bool) {
	c := m.cache(d)
	if c == nil {
		return UpdateStats{}, false
	}
	return m.drain(c, maxDuration), true
}

func (m *Mesh) drain(c *driverCache, maxDuration time.Duration) UpdateStats {
	var st UpdateStats
	start := time.Now()
	for !c.queue.Empty() && time.Since(start) < maxDuration {
		t := c.queue.Pop()
		if t == nil {
			break
		}
		if t.Valid() {
			m.apply(c, t)
			st.Applied++
		} else {
			st.Expired++
		}
		t.Close()
	}
	st.Remaining = c.queue.Len()
	return st
}

func (m *Mesh) apply(c *driverCache, t *tx) {
	switch t.Type {
	case OpAddSubMesh, OpRemoveSubMesh:
		m.cachesMu.Lock()
		c.invalidate()
		m.cachesMu.Unlock()
	case OpAddBuffer, OpAddBuffers:
		for _, b := range t.Payload.buffers {
			m.build(c, b)
		}
	case OpUpdateBuffer, OpUpdateBuffers:
		for _, b := range t.Payload.buffers {
			m.refresh(c, b)
		}
	}
}

// build creates the driver copy of sw unless one exists. The driver is
// called without holding cachesMu.
func (m *Mesh) build(c *driverCache, sw buffer.Software) {
	m.cachesMu.Lock()
	_, present := c.hw[sw.Handle()]
	closed := c.closed
	m.cachesMu.Unlock()
	if present || closed {
		return
	}

	var hw buffer.Buffer = sw
	if made := c.driver.MakeBuffer(sw); made != nil {
		hw = made
	} else {
		notify.Warn("mesh: driver buffer creation failed, using software buffer",
			"mesh", m.label, "buffer", sw.Handle(), "type", sw.Type(), "size", sw.Size())
	}

	m.cachesMu.Lock()
	inserted := !c.closed && c.insert(sw.Handle(), hw)
	if inserted {
		c.invalidate()
	}
	m.cachesMu.Unlock()

	if !inserted && hw != buffer.Buffer(sw) {
		// Nobody holds the new buffer; cycling the count hands it to the
		// driver's release policy.
		hw.Retain()
		hw.Release()
	}
}

// refresh copies sw's contents into its driver copy.
func (m *Mesh) refresh(c *driverCache, sw buffer.Software) {
	m.cachesMu.Lock()
	hw := c.hw[sw.Handle()]
	if hw != nil {
		hw.Retain()
	}
	m.cachesMu.Unlock()

	if hw == nil {
		notify.Error("mesh: update of buffer without driver copy",
			"mesh", m.label, "buffer", sw.Handle(), "driver", c.driver.Handle())
		return
	}
	defer hw.Release()

	if hw.Handle() == sw.Handle() {
		return
	}
	sw.Lock(buffer.AccessReadOnly)
	defer sw.Unlock(buffer.AccessReadOnly)
	if u, ok := c.driver.(BufferUpdater); ok {
		u.UpdateBuffer(hw, sw.Data(), sw.Usage())
		return
	}
	hw.Update(sw.Data(), sw.Usage())
}

// -----------------------------------------------------------------------------
// Lookups
// -----------------------------------------------------------------------------

// FindAssociatedDescriptors returns one descriptor per submesh with
// buffers replaced by d's copies. Buffers without a copy stay software.
func (m *Mesh) FindAssociatedDescriptors(d Driver) []vertex.Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.cachesMu.Lock()
	defer m.cachesMu.Unlock()

	descs, _ := m.descriptorsLocked(m.caches[d.Handle()])
	return descs
}

// descriptorsLocked resolves every submesh's descriptor and index buffer
// against c, which may be nil. The caller holds mu and cachesMu.
func (m *Mesh) descriptorsLocked(c *driverCache) ([]vertex.Descriptor, []buffer.Buffer) {
	swap := func(b buffer.Buffer) buffer.Buffer {
		if hw := c.lookup(b); hw != nil {
			return hw
		}
		notify.Debug("mesh: no driver copy, using software buffer", "mesh", m.label, "buffer", b.Handle())
		return b
	}

	descs := make([]vertex.Descriptor, len(m.submeshes))
	index := make([]buffer.Buffer, len(m.submeshes))
	for i := range m.submeshes {
		sm := &m.submeshes[i]
		descs[i] = sm.Descriptor.WithBuffers(swap)
		if sm.Indexed() {
			index[i] = swap(sm.Index.Buffer)
		}
	}
	return descs, index
}

// FindShaderAttributesMap returns the cached attribute maps of shader for
// d, one per submesh, or nil when none are cached.
func (m *Mesh) FindShaderAttributesMap(d Driver, shader vertex.Shader) []vertex.AttributesMap {
	m.cachesMu.Lock()
	defer m.cachesMu.Unlock()

	c := m.caches[d.Handle()]
	if c == nil {
		return nil
	}
	return slices.Clone(c.attrs[shader.Handle()])
}

// StoreShaderAttributesMap caches maps for the (d, shader) pair. It panics
// if d is not associated.
func (m *Mesh) StoreShaderAttributesMap(d Driver, shader vertex.Shader, maps []vertex.AttributesMap) {
	m.cachesMu.Lock()
	defer m.cachesMu.Unlock()

	c := m.caches[d.Handle()]
	if c == nil {
		panic(fmt.Sprintf("mesh: StoreShaderAttributesMap with unassociated driver %d", d.Handle()))
	}
	c.attrs[shader.Handle()] = slices.Clone(maps)
}

// PopulateRenderCommand appends one subcommand per submesh to cmd. Maps
// are taken from the cache or computed with the shader's mapper and
// cached. If any submesh cannot be mapped, the failure is logged once and
// cmd is left untouched.
func (m *Mesh) PopulateRenderCommand(d Driver, shader vertex.Shader, cmd *render.RenderCommand) bool {
	if shader == nil || cmd == nil {
		panic("mesh: PopulateRenderCommand with nil shader or command")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.submeshes) == 0 {
		return true
	}

	m.cachesMu.Lock()
	c := m.caches[d.Handle()]
	var maps []vertex.AttributesMap
	var gen uint64
	if c != nil {
		maps = c.attrs[shader.Handle()]
		gen = c.gen
	}
	var descs []vertex.Descriptor
	var index []buffer.Buffer
	if len(maps) != len(m.submeshes) {
		maps = nil
		descs, index = m.descriptorsLocked(c)
	}
	m.cachesMu.Unlock()

	if maps == nil {
		maps = m.mapDescriptors(shader, descs, index)
		if maps == nil {
			m.mapFailed.Send(slog.LevelWarn, "mesh: shader attribute mapping failed",
				"mesh", m.label, "shader", shader.Handle())
			return false
		}
		if c != nil {
			m.cachesMu.Lock()
			if !c.closed && c.gen == gen {
				c.attrs[shader.Handle()] = maps
			}
			m.cachesMu.Unlock()
		}
	}

	for i := range m.submeshes {
		sm := &m.submeshes[i]
		cmd.AddSubCommand(render.RenderSubCommand{
			Attributes: maps[i],
			Method:     sm.Method,
			Params:     sm.Params,
		})
	}
	return true
}

// mapDescriptors maps every descriptor through the shader's mapper. The
// result is all or nothing. The caller holds mu.
func (m *Mesh) mapDescriptors(shader vertex.Shader, descs []vertex.Descriptor, index []buffer.Buffer) []vertex.AttributesMap {
	mapper := shader.Mapper()
	if mapper == nil {
		return nil
	}
	ctx := shader.Context()

	out := make([]vertex.AttributesMap, len(descs))
	for i, d := range descs {
		am := mapper.Map(d, ctx)
		if !am.Valid() {
			return nil
		}
		out[i] = m.submeshes[i].bind(am, index[i])
	}
	return out
}
