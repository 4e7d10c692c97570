package mesh

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/engine/vertex"
	"github.com/gogpu/gputypes"
)

// =============================================================================
// Test doubles
// =============================================================================

type fakeBuffer struct {
	handle.Handled
	resource.Ref

	typ     buffer.Type
	usage   buffer.Usage
	mu      sync.Mutex
	data    []byte
	updates int
	freed   atomic.Int32
}

func (b *fakeBuffer) Type() buffer.Type   { return b.typ }
func (b *fakeBuffer) Usage() buffer.Usage { return b.usage }
func (b *fakeBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *fakeBuffer) Update(data []byte, usage buffer.Usage) {
	b.mu.Lock()
	b.data = append(b.data[:0], data...)
	b.usage = usage
	b.updates++
	b.mu.Unlock()
}

func (b *fakeBuffer) ReleaseResource() { b.freed.Add(1) }

type fakeDriver struct {
	handle.Handled

	fail  bool
	delay time.Duration

	mu   sync.Mutex
	made []*fakeBuffer
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{Handled: handle.New(handle.For[fakeDriver]())}
}

func (d *fakeDriver) MakeBuffer(sw buffer.Software) buffer.Buffer {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.fail {
		return nil
	}
	sw.Lock(buffer.AccessReadOnly)
	data := append([]byte(nil), sw.Data()...)
	sw.Unlock(buffer.AccessReadOnly)

	b := &fakeBuffer{Handled: handle.New(buffer.Counter()), typ: sw.Type(), usage: sw.Usage(), data: data}
	b.Init(b, nil)

	d.mu.Lock()
	d.made = append(d.made, b)
	d.mu.Unlock()
	return b
}

func (d *fakeDriver) madeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.made)
}

type fakeShader struct {
	handle.Handled
	mapper vertex.ShaderMapper
}

func newShader(mapper vertex.ShaderMapper) *fakeShader {
	return &fakeShader{Handled: handle.New(handle.For[fakeShader]()), mapper: mapper}
}

func (s *fakeShader) Mapper() vertex.ShaderMapper { return s.mapper }
func (s *fakeShader) Context() vertex.Context     { return vertex.Context{Pipeline: "test"} }

var positionMapper = vertex.MapperFunc(func(d vertex.Descriptor, _ vertex.Context) vertex.AttributesMap {
	a, ok := d.Get(vertex.Position)
	if !ok {
		return vertex.AttributesMap{}
	}
	return vertex.AttributesMap{Bindings: []vertex.Binding{{
		Location:  0,
		Name:      "position",
		Component: vertex.Position,
		Attribute: a,
	}}}
})

var failingMapper = vertex.MapperFunc(func(vertex.Descriptor, vertex.Context) vertex.AttributesMap {
	return vertex.AttributesMap{}
})

func vertexBuffer(n int) *buffer.GenBuffer {
	return buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, make([]byte, n))
}

func positionSubMesh(b buffer.Buffer, count uint32) SubMesh {
	var d vertex.Descriptor
	d.Set(vertex.Position, vertex.Attribute{Buffer: b, Stride: 12, Format: gputypes.VertexFormatFloat32x3})
	return SubMesh{Descriptor: d, Method: render.DrawFilled, Count: count}
}

// =============================================================================
// Association
// =============================================================================

func TestAssociate_BuildsEagerly(t *testing.T) {
	m := New(WithLabel("cube"))
	defer m.Close()

	a, b := vertexBuffer(12), vertexBuffer(24)
	m.AddBuffers(a, b)

	d := newFakeDriver()
	if !m.Associate(d) {
		t.Fatal("Associate() = false, want true")
	}
	if d.madeCount() != 2 {
		t.Errorf("buffers made = %d, want 2", d.madeCount())
	}
	if m.Pending(d) != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending(d))
	}
	hw := m.DriverBuffer(d, a)
	if hw == nil || hw.Handle() == a.Handle() {
		t.Fatalf("DriverBuffer() = %v, want a driver copy", hw)
	}
	if hw.Size() != 12 {
		t.Errorf("driver copy size = %d, want 12", hw.Size())
	}
}

func TestAssociate_Twice(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()

	m.Associate(d)
	if m.Associate(d) {
		t.Error("second Associate() = true, want false")
	}
	if !m.Associated(d) {
		t.Error("Associated() = false after Associate")
	}
}

func TestDissociate_ReleasesOnce(t *testing.T) {
	m := New()
	defer m.Close()
	m.AddBuffers(vertexBuffer(4), vertexBuffer(8), vertexBuffer(16))

	d := newFakeDriver()
	m.Associate(d)
	m.AddVertexBuffer(vertexBuffer(32))

	if !m.Dissociate(d) {
		t.Fatal("Dissociate() = false, want true")
	}
	if m.Dissociate(d) {
		t.Error("second Dissociate() = true, want false")
	}
	if m.Associated(d) || m.Pending(d) != 0 {
		t.Error("driver still associated after Dissociate")
	}
	for i, b := range d.made {
		if n := b.freed.Load(); n != 1 {
			t.Errorf("buffer %d released %d times, want 1", i, n)
		}
	}
}

// =============================================================================
// Update
// =============================================================================

func TestUpdate_AddBufferIdempotent(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	m.Associate(d)

	b := vertexBuffer(12)
	m.AddVertexBuffer(b)
	m.AddVertexBuffer(b)
	m.AddBuffers(b, b)
	if m.Pending(d) != 3 {
		t.Fatalf("Pending() = %d, want 3", m.Pending(d))
	}

	st := m.Update(d, time.Second)
	if st.Applied != 3 || st.Remaining != 0 {
		t.Errorf("Update() = %+v, want 3 applied, 0 remaining", st)
	}
	if d.madeCount() != 1 {
		t.Errorf("buffers made = %d, want 1", d.madeCount())
	}
	if len(m.Buffers()) != 1 {
		t.Errorf("Buffers() len = %d, want 1", len(m.Buffers()))
	}
}

func TestUpdate_ExpiredTransactionsDropped(t *testing.T) {
	m := New(WithTransactionTTL(time.Millisecond))
	defer m.Close()
	d := newFakeDriver()
	m.Associate(d)

	for range 4 {
		m.AddVertexBuffer(vertexBuffer(4))
	}
	time.Sleep(10 * time.Millisecond)

	st := m.Update(d, time.Second)
	if st.Expired != 4 || st.Applied != 0 {
		t.Errorf("Update() = %+v, want 4 expired", st)
	}
	if d.madeCount() != 0 {
		t.Errorf("expired transactions made %d buffers", d.madeCount())
	}
	if m.Pending(d) != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending(d))
	}
}

func TestUpdate_MixedExpiry(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	m.Associate(d)

	// Expired and live transactions alternate in the queue.
	c := m.cache(d)
	past, future := time.Now().Add(-time.Second), time.Now().Add(time.Hour)
	bufs := make([]*buffer.GenBuffer, 6)
	for i := range bufs {
		bufs[i] = vertexBuffer(4)
		bufs[i].Retain()
		expiry := future
		if i%2 == 0 {
			expiry = past
		}
		c.queue.Push(&tx{Type: OpAddBuffer, Payload: newPayload([]buffer.Software{bufs[i]}), Expiry: expiry})
	}

	st := m.Update(d, time.Second)
	if st.Applied != 3 || st.Expired != 3 || st.Remaining != 0 {
		t.Errorf("Update() = %+v, want 3 applied, 3 expired, 0 remaining", st)
	}
	if m.Pending(d) != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending(d))
	}
	if d.madeCount() != 3 {
		t.Errorf("buffers made = %d, want 3", d.madeCount())
	}
	for i, b := range bufs {
		if got, want := m.DriverBuffer(d, b) != nil, i%2 == 1; got != want {
			t.Errorf("buffer %d has driver copy = %v, want %v", i, got, want)
		}
		if b.Count() != 1 {
			t.Errorf("buffer %d Count() = %d, want 1 after the payload was closed", i, b.Count())
		}
		b.Release()
	}
}

func TestUpdate_BoundedDrain(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	d.delay = 5 * time.Millisecond
	m.Associate(d)

	const total = 10
	for range total {
		m.AddVertexBuffer(vertexBuffer(4))
	}

	st := m.Update(d, 12*time.Millisecond)
	if st.Applied >= total {
		t.Fatalf("Update() applied %d of %d under a short budget", st.Applied, total)
	}
	if st.Applied+st.Remaining != total {
		t.Errorf("applied %d + remaining %d != %d", st.Applied, st.Remaining, total)
	}
	if m.Pending(d) != st.Remaining {
		t.Errorf("Pending() = %d, want %d", m.Pending(d), st.Remaining)
	}

	d.delay = 0
	m.Update(d, time.Second)
	if d.madeCount() != total {
		t.Errorf("buffers made = %d, want %d", d.madeCount(), total)
	}
}

func TestUpdate_ZeroBudget(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	m.Associate(d)
	m.AddVertexBuffer(vertexBuffer(4))

	if st := m.Update(d, 0); st.Applied != 0 || st.Remaining != 1 {
		t.Errorf("Update(0) = %+v, want nothing applied", st)
	}
}

func TestUpdate_FallbackToSoftware(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	d.fail = true
	m.Associate(d)

	b := vertexBuffer(12)
	m.AddVertexBuffer(b)
	m.Update(d, time.Second)

	hw := m.DriverBuffer(d, b)
	if hw == nil || hw.Handle() != b.Handle() {
		t.Fatalf("DriverBuffer() = %v, want the software buffer", hw)
	}
	if b.Count() != 2 {
		t.Errorf("software buffer count = %d, want 2 (mesh + cache)", b.Count())
	}

	// Updating a fallback entry is a no-op.
	m.UpdateBuffer(b)
	m.Update(d, time.Second)

	m.Dissociate(d)
	if b.Count() != 1 {
		t.Errorf("software buffer count after Dissociate = %d, want 1", b.Count())
	}
}

func TestUpdate_UpdateBuffer(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()

	b := vertexBuffer(4)
	m.AddVertexBuffer(b)
	m.Associate(d)

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	b.Update(want, buffer.UsageDynamic)
	m.UpdateBuffer(b)
	m.Update(d, time.Second)

	hw := d.made[0]
	if hw.updates != 1 {
		t.Fatalf("driver buffer updates = %d, want 1", hw.updates)
	}
	if !bytes.Equal(hw.data, want) || hw.usage != buffer.UsageDynamic {
		t.Errorf("driver buffer = %v (%v), want %v (dynamic)", hw.data, hw.usage, want)
	}
}

func TestUpdate_MissingDriverCopy(t *testing.T) {
	m := New(WithTransactionTTL(50 * time.Millisecond))
	defer m.Close()
	d := newFakeDriver()
	m.Associate(d)

	b := vertexBuffer(4)
	m.AddVertexBuffer(b)
	time.Sleep(100 * time.Millisecond)
	m.UpdateBuffer(b)

	st := m.Update(d, time.Second)
	if st.Expired != 1 || st.Applied != 1 {
		t.Errorf("Update() = %+v, want 1 expired, 1 applied", st)
	}
	if m.DriverBuffer(d, b) != nil {
		t.Error("update without a driver copy must not create one")
	}
}

func TestUpdate_UnassociatedPanics(t *testing.T) {
	m := New()
	defer m.Close()

	defer func() {
		if recover() == nil {
			t.Error("Update() with unassociated driver should panic")
		}
	}()
	m.Update(newFakeDriver(), time.Second)
}

type updatingDriver struct {
	*fakeDriver
	updates int
}

func (d *updatingDriver) UpdateBuffer(hw buffer.Buffer, data []byte, usage buffer.Usage) {
	d.updates++
	hw.Update(data, usage)
}

func TestUpdate_BufferUpdater(t *testing.T) {
	m := New()
	defer m.Close()
	d := &updatingDriver{fakeDriver: newFakeDriver()}
	m.Associate(d)

	b := vertexBuffer(4)
	m.AddVertexBuffer(b)
	m.Update(d, time.Second)

	b.Update(make([]byte, 32), buffer.UsageDynamic)
	m.UpdateBuffer(b)
	m.Update(d, time.Second)

	if d.updates != 1 {
		t.Errorf("UpdateBuffer calls = %d, want 1", d.updates)
	}
	if hw := m.DriverBuffer(d, b); hw == nil || hw.Size() != 32 {
		t.Errorf("driver copy = %v, want 32 bytes", hw)
	}
}

func TestUpdateAssociated(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()

	if st, ok := m.UpdateAssociated(d, time.Second); ok || st != (UpdateStats{}) {
		t.Errorf("UpdateAssociated() = %+v, %v before Associate, want zero, false", st, ok)
	}

	m.Associate(d)
	m.AddVertexBuffer(vertexBuffer(4))
	st, ok := m.UpdateAssociated(d, time.Second)
	if !ok || st.Applied != 1 {
		t.Errorf("UpdateAssociated() = %+v, %v, want 1 applied, true", st, ok)
	}

	m.Dissociate(d)
	if _, ok := m.UpdateAssociated(d, time.Second); ok {
		t.Error("UpdateAssociated() = true after Dissociate")
	}
}

// =============================================================================
// Attribute maps
// =============================================================================

func TestPopulateRenderCommand(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()

	vb := vertexBuffer(36)
	ib := buffer.NewGenBuffer(buffer.TypeIndex, buffer.UsageStatic, make([]byte, 12))
	m.AddVertexBuffer(vb)
	m.AddIndexBuffer(ib)
	sm := positionSubMesh(vb, 6)
	sm.Index = &IndexRange{Buffer: ib}
	m.AddSubMesh(sm)
	m.Associate(d)

	shader := newShader(positionMapper)
	cmd := render.NewRenderCommand(nil, nil)
	if !m.PopulateRenderCommand(d, shader, cmd) {
		t.Fatal("PopulateRenderCommand() = false, want true")
	}
	if cmd.Len() != 1 {
		t.Fatalf("subcommands = %d, want 1", cmd.Len())
	}

	am := cmd.SubCommands[0].Attributes
	if am.Count != 6 {
		t.Errorf("Count = %d, want 6", am.Count)
	}
	if got := am.Bindings[0].Buffer; got != m.DriverBuffer(d, vb) {
		t.Errorf("vertex binding uses %v, want the driver copy", got)
	}
	if !am.Indexed() || am.Index.Buffer != m.DriverBuffer(d, ib) {
		t.Error("index binding does not use the driver copy")
	}
	if am.Index.Format != gputypes.IndexFormatUint16 {
		t.Errorf("index format = %v, want Uint16", am.Index.Format)
	}
	if cmd.SubCommands[0].Method != render.DrawFilled {
		t.Errorf("Method = %v, want Filled", cmd.SubCommands[0].Method)
	}

	if got := m.FindShaderAttributesMap(d, shader); len(got) != 1 {
		t.Errorf("FindShaderAttributesMap() len = %d, want 1 after populate", len(got))
	}
}

func TestPopulateRenderCommand_MappingFailure(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	vb := vertexBuffer(12)
	m.AddVertexBuffer(vb)
	m.AddSubMesh(positionSubMesh(vb, 1))
	m.Associate(d)

	shader := newShader(failingMapper)
	cmd := render.NewRenderCommand(nil, nil)
	for range 3 {
		if m.PopulateRenderCommand(d, shader, cmd) {
			t.Fatal("PopulateRenderCommand() = true with a failing mapper")
		}
	}
	if cmd.Len() != 0 {
		t.Errorf("command mutated: %d subcommands", cmd.Len())
	}
	if m.FindShaderAttributesMap(d, shader) != nil {
		t.Error("failed mapping was cached")
	}
	if !m.mapFailed.Fired() {
		t.Error("mapping failure was not reported")
	}
}

func TestPopulateRenderCommand_AllOrNothing(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	vb := vertexBuffer(12)
	m.AddVertexBuffer(vb)
	m.AddSubMesh(positionSubMesh(vb, 1))
	m.AddSubMesh(SubMesh{Method: render.DrawPoints, Count: 1})
	m.Associate(d)

	cmd := render.NewRenderCommand(nil, nil)
	if m.PopulateRenderCommand(d, newShader(positionMapper), cmd) {
		t.Error("PopulateRenderCommand() = true with an unmappable submesh")
	}
	if cmd.Len() != 0 {
		t.Errorf("command mutated: %d subcommands", cmd.Len())
	}
}

func TestPopulateRenderCommand_Unassociated(t *testing.T) {
	m := New()
	defer m.Close()
	vb := vertexBuffer(12)
	m.AddVertexBuffer(vb)
	m.AddSubMesh(positionSubMesh(vb, 1))

	d := newFakeDriver()
	cmd := render.NewRenderCommand(nil, nil)
	if !m.PopulateRenderCommand(d, newShader(positionMapper), cmd) {
		t.Fatal("PopulateRenderCommand() = false, want software fallback")
	}
	if got := cmd.SubCommands[0].Attributes.Bindings[0].Buffer; got.Handle() != vb.Handle() {
		t.Errorf("binding = %v, want the software buffer", got)
	}
}

func TestCacheInvalidation_AddSubMesh(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	vb := vertexBuffer(24)
	m.AddVertexBuffer(vb)
	m.AddSubMesh(positionSubMesh(vb, 1))
	m.Associate(d)

	shader := newShader(positionMapper)
	m.PopulateRenderCommand(d, shader, render.NewRenderCommand(nil, nil))
	if len(m.FindShaderAttributesMap(d, shader)) == 0 {
		t.Fatal("attributes not cached after populate")
	}

	m.AddSubMesh(positionSubMesh(vb, 1))
	m.Update(d, time.Second)
	if got := m.FindShaderAttributesMap(d, shader); len(got) != 0 {
		t.Errorf("FindShaderAttributesMap() len = %d after AddSubMesh, want 0", len(got))
	}

	cmd := render.NewRenderCommand(nil, nil)
	m.PopulateRenderCommand(d, shader, cmd)
	if cmd.Len() != 2 || len(m.FindShaderAttributesMap(d, shader)) != 2 {
		t.Errorf("repopulate: %d subcommands, %d cached maps, want 2, 2",
			cmd.Len(), len(m.FindShaderAttributesMap(d, shader)))
	}
}

func TestCacheInvalidation_RemoveSubMesh(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	vb := vertexBuffer(24)
	m.AddVertexBuffer(vb)
	m.AddSubMesh(positionSubMesh(vb, 1))
	m.AddSubMesh(positionSubMesh(vb, 1))
	m.Associate(d)

	shader := newShader(positionMapper)
	m.StoreShaderAttributesMap(d, shader, make([]vertex.AttributesMap, 2))

	if m.RemoveSubMesh(5) {
		t.Error("RemoveSubMesh(5) = true, want false")
	}
	if !m.RemoveSubMesh(0) {
		t.Fatal("RemoveSubMesh(0) = false, want true")
	}
	m.Update(d, time.Second)
	if got := m.FindShaderAttributesMap(d, shader); len(got) != 0 {
		t.Errorf("FindShaderAttributesMap() len = %d after RemoveSubMesh, want 0", len(got))
	}
	if len(m.SubMeshes()) != 1 {
		t.Errorf("SubMeshes() len = %d, want 1", len(m.SubMeshes()))
	}
}

func TestStoreShaderAttributesMap_Unassociated(t *testing.T) {
	m := New()
	defer m.Close()
	defer func() {
		if recover() == nil {
			t.Error("StoreShaderAttributesMap() with unassociated driver should panic")
		}
	}()
	m.StoreShaderAttributesMap(newFakeDriver(), newShader(positionMapper), nil)
}

func TestFindAssociatedDescriptors(t *testing.T) {
	m := New()
	defer m.Close()
	d := newFakeDriver()
	vb := vertexBuffer(12)
	m.AddVertexBuffer(vb)
	m.AddSubMesh(positionSubMesh(vb, 1))

	descs := m.FindAssociatedDescriptors(d)
	if len(descs) != 1 {
		t.Fatalf("descriptors = %d, want 1", len(descs))
	}
	if a, _ := descs[0].Get(vertex.Position); a.Buffer.Handle() != vb.Handle() {
		t.Error("unassociated driver should see the software buffer")
	}

	m.Associate(d)
	descs = m.FindAssociatedDescriptors(d)
	if a, _ := descs[0].Get(vertex.Position); a.Buffer != m.DriverBuffer(d, vb) {
		t.Error("associated driver should see its copy")
	}
}

// =============================================================================
// Lifetime
// =============================================================================

func TestClose_ReleasesSoftwareBuffers(t *testing.T) {
	m := New()
	d := newFakeDriver()
	b := vertexBuffer(8)
	m.AddVertexBuffer(b)
	m.Associate(d)
	m.UpdateBuffer(b) // pending, holds a reference

	if b.Count() != 2 {
		t.Fatalf("Count() = %d, want 2 (mesh + pending transaction)", b.Count())
	}
	m.Close()
	m.Close()

	if b.Count() != 0 || !b.Released() {
		t.Errorf("after Close: Count=%d Released=%v, want 0, true", b.Count(), b.Released())
	}
	if d.made[0].freed.Load() != 1 {
		t.Error("driver copy not released on Close")
	}

	defer func() {
		if recover() == nil {
			t.Error("AddSubMesh() after Close should panic")
		}
	}()
	m.AddSubMesh(SubMesh{})
}

func TestAddVertexBuffer_WrongType(t *testing.T) {
	m := New()
	defer m.Close()
	defer func() {
		if recover() == nil {
			t.Error("AddVertexBuffer(index buffer) should panic")
		}
	}()
	m.AddVertexBuffer(buffer.NewGenBuffer(buffer.TypeIndex, buffer.UsageStatic, nil))
}

func TestOpName(t *testing.T) {
	if OpName(OpAddBuffers) != "add-buffers" || OpName(0) != "unknown" {
		t.Errorf("OpName() = %q, %q", OpName(OpAddBuffers), OpName(0))
	}
}

func TestConcurrentAuthoringAndUpdate(t *testing.T) {
	m := New()
	defer m.Close()
	d1, d2 := newFakeDriver(), newFakeDriver()
	m.Associate(d1)
	m.Associate(d2)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				b := vertexBuffer(12)
				m.AddVertexBuffer(b)
				m.AddSubMesh(positionSubMesh(b, 1))
			}
		}()
	}
	stop := make(chan struct{})
	var updaters sync.WaitGroup
	for _, d := range []*fakeDriver{d1, d2} {
		updaters.Add(1)
		go func() {
			defer updaters.Done()
			for {
				select {
				case <-stop:
					return
				default:
					m.Update(d, time.Millisecond)
					m.PopulateRenderCommand(d, newShader(positionMapper), render.NewRenderCommand(nil, nil))
				}
			}
		}()
	}
	wg.Wait()
	close(stop)
	updaters.Wait()

	for _, d := range []*fakeDriver{d1, d2} {
		m.Update(d, time.Minute)
		if d.madeCount() != 100 {
			t.Errorf("driver made %d buffers, want 100", d.madeCount())
		}
	}
}
