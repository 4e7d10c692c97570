package software

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/mesh"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/engine/vertex"
	"github.com/gogpu/gputypes"
)

const flatWGSL = `
@vertex
fn vs_main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

var (
	red   = gputypes.Color{R: 1, A: 1}
	blue  = gputypes.Color{B: 1, A: 1}
	black = color.RGBA{A: 255}
)

func floats(v ...float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func uint16s(v ...uint16) []byte {
	out := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(out[2*i:], x)
	}
	return out
}

func initBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := New(opts...)
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return b
}

func positions(b buffer.Buffer, count uint32) vertex.AttributesMap {
	return vertex.AttributesMap{
		Bindings: []vertex.Binding{{
			Component: vertex.Position,
			Attribute: vertex.Attribute{Buffer: b, Format: gputypes.VertexFormatFloat32x2},
		}},
		Count: count,
	}
}

func newCommand(t *testing.T, b *Backend, target render.RenderTarget) *render.RenderCommand {
	t.Helper()
	p, err := b.NewPipeline(render.ShaderDescriptor{Label: "flat"}, nil)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return render.NewRenderCommand(target, p)
}

func pixel(t *render.PixmapTarget, x, y int) color.RGBA {
	return t.Image().RGBAAt(x, y)
}

// =============================================================================
// Registration
// =============================================================================

func TestRegistered(t *testing.T) {
	if !driver.IsRegistered(driver.BackendSoftware) {
		t.Fatal("software backend not registered")
	}
	b, ok := driver.Get(driver.BackendSoftware).(*Backend)
	if !ok {
		t.Fatalf("Get() = %T, want *Backend", driver.Get(driver.BackendSoftware))
	}
	if b.Name() != driver.BackendSoftware {
		t.Errorf("Name() = %q, want %q", b.Name(), driver.BackendSoftware)
	}
}

func TestNotInitialized(t *testing.T) {
	b := New()
	sw := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(0, 0))
	if _, err := b.NewBuffer(sw, nil); !errors.Is(err, driver.ErrNotInitialized) {
		t.Errorf("NewBuffer() error = %v, want ErrNotInitialized", err)
	}
	b.Close()
	if err := b.Init(); !errors.Is(err, driver.ErrClosed) {
		t.Errorf("Init() after Close error = %v, want ErrClosed", err)
	}
}

// =============================================================================
// Resources
// =============================================================================

func TestNewBuffer(t *testing.T) {
	b := initBackend(t)
	data := floats(1, 2, 3)
	sw := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageDynamic, data)

	hw, err := b.NewBuffer(sw, nil)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	got := hw.(*Buffer)
	if got.Size() != len(data) {
		t.Errorf("Size() = %d, want %d", got.Size(), len(data))
	}
	if got.Capacity() != 256 {
		t.Errorf("Capacity() = %d, want 256", got.Capacity())
	}
	if got.Handle() == sw.Handle() {
		t.Error("driver buffer shares the software buffer handle")
	}

	got.Update(floats(4), buffer.UsageStream)
	if got.Size() != 4 || got.Usage() != buffer.UsageStream {
		t.Errorf("after Update: Size() = %d, Usage() = %v", got.Size(), got.Usage())
	}

	got.Retain()
	got.Release()
	if !got.Released() || got.Bytes() != nil {
		t.Error("buffer without owner not freed at zero")
	}
}

func TestNewPipeline(t *testing.T) {
	b := initBackend(t)

	p, err := b.NewPipeline(render.ShaderDescriptor{Label: "flat", Source: flatWGSL}, nil)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	r := p.(*Pipeline).Reflection()
	if r == nil || len(r.Inputs) != 1 || r.Inputs[0].Name != "position" {
		t.Errorf("Reflection() = %+v, want one position input", r)
	}

	if _, err := b.NewPipeline(render.ShaderDescriptor{Label: "bad", Source: "fn ("}, nil); err == nil {
		t.Error("NewPipeline() with invalid source succeeded")
	}
}

func TestNewTexture(t *testing.T) {
	b := initBackend(t)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))

	tex, err := b.NewTexture(img, render.DefaultTextureDescriptor("t"), nil)
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	if tex.Width() != 4 || tex.Height() != 2 {
		t.Errorf("size = %dx%d, want 4x2", tex.Width(), tex.Height())
	}

	desc := render.DefaultTextureDescriptor("scaled")
	desc.Width, desc.Height = 8, 4
	tex, err = b.NewTexture(img, desc, nil)
	if err != nil {
		t.Fatalf("NewTexture() scaled error = %v", err)
	}
	if tex.Width() != 8 || tex.Height() != 4 {
		t.Errorf("scaled size = %dx%d, want 8x4", tex.Width(), tex.Height())
	}

	desc.Format = gputypes.TextureFormatBGRA8Unorm
	if _, err := b.NewTexture(img, desc, nil); !errors.Is(err, driver.ErrInvalidPixelFormat) {
		t.Errorf("NewTexture(BGRA8) error = %v, want ErrInvalidPixelFormat", err)
	}
}

// =============================================================================
// Rasterization
// =============================================================================

func TestExecuteTriangle(t *testing.T) {
	b := initBackend(t)
	target := render.NewPixmapTarget(8, 8)
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(-1, -1, 1, -1, -1, 1))

	cmd := newCommand(t, b, target)
	cmd.Params.Clear = &blue
	cmd.AddSubCommand(render.RenderSubCommand{
		Attributes: positions(vb, 3),
		Method:     render.DrawFilled,
		Params:     render.Parameters{BlendConstant: &red},
	})

	draws, err := b.Execute(cmd)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if draws != 1 {
		t.Errorf("Execute() = %d, want 1", draws)
	}
	if got := pixel(target, 1, 6); got != render.ColorRGBA(red) {
		t.Errorf("inside pixel = %v, want red", got)
	}
	if got := pixel(target, 6, 1); got != render.ColorRGBA(blue) {
		t.Errorf("outside pixel = %v, want clear color", got)
	}
}

func TestExecuteIndexedPoints(t *testing.T) {
	b := initBackend(t)
	target := render.NewPixmapTarget(4, 4)
	target.Clear(gputypes.Color{A: 1})
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(-0.75, 0.75, 0, 0, 0.75, -0.75))
	ib := buffer.NewGenBuffer(buffer.TypeIndex, buffer.UsageStatic, uint16s(2, 0))

	attrs := positions(vb, 2)
	attrs.Index = &vertex.IndexBinding{Buffer: ib, Format: gputypes.IndexFormatUint16}
	cmd := newCommand(t, b, target)
	cmd.AddSubCommand(render.RenderSubCommand{Attributes: attrs, Method: render.DrawPoints})

	if _, err := b.Execute(cmd); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	white := color.RGBA{255, 255, 255, 255}
	for _, tt := range []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, white},
		{3, 3, white},
		{2, 2, black},
	} {
		if got := pixel(target, tt.x, tt.y); got != tt.want {
			t.Errorf("pixel(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestExecuteLineClipped(t *testing.T) {
	b := initBackend(t)
	target := render.NewPixmapTarget(4, 4)
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(-1, 0, 1, 0))

	cmd := newCommand(t, b, target)
	cmd.AddSubCommand(render.RenderSubCommand{Attributes: positions(vb, 2), Method: render.DrawLines})
	if _, err := b.Execute(cmd); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for x := range 4 {
		if got := pixel(target, x, 2); got.A != 255 {
			t.Errorf("pixel(%d, 2) = %v, want line", x, got)
		}
	}
	if got := pixel(target, 0, 0); got.A != 0 {
		t.Errorf("pixel(0, 0) = %v, want untouched", got)
	}
}

func TestExecuteScissor(t *testing.T) {
	b := initBackend(t)
	target := render.NewPixmapTarget(4, 4)
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic,
		floats(-1, -1, 1, -1, 1, 1, -1, -1, 1, 1, -1, 1))

	cmd := newCommand(t, b, target)
	cmd.Params.Scissor = &render.Scissor{Width: 2, Height: 2}
	cmd.AddSubCommand(render.RenderSubCommand{Attributes: positions(vb, 6), Method: render.DrawFilled})
	if _, err := b.Execute(cmd); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := pixel(target, 1, 1); got.A != 255 {
		t.Errorf("pixel inside scissor = %v, want filled", got)
	}
	if got := pixel(target, 3, 3); got.A != 0 {
		t.Errorf("pixel outside scissor = %v, want untouched", got)
	}
}

type opaqueTarget struct{ *render.PixmapTarget }

func (opaqueTarget) Format() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

func TestExecuteErrors(t *testing.T) {
	b := initBackend(t)

	cmd := newCommand(t, b, opaqueTarget{render.NewPixmapTarget(2, 2)})
	if _, err := b.Execute(cmd); !errors.Is(err, driver.ErrInvalidPixelFormat) {
		t.Errorf("Execute(BGRA target) error = %v, want ErrInvalidPixelFormat", err)
	}

	target := render.NewPixmapTarget(2, 2)
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(0, 0))
	cmd = newCommand(t, b, target)
	cmd.AddSubCommand(render.RenderSubCommand{Attributes: vertex.AttributesMap{Count: 1}})
	cmd.AddSubCommand(render.RenderSubCommand{Attributes: positions(vb, 5)})
	cmd.AddSubCommand(render.RenderSubCommand{Attributes: positions(vb, 1), Method: render.DrawPoints})

	draws, err := b.Execute(cmd)
	if draws != 1 {
		t.Errorf("Execute() = %d, want 1", draws)
	}
	if !errors.Is(err, errNoPosition) || !errors.Is(err, errOutOfRange) {
		t.Errorf("Execute() error = %v, want no-position and out-of-range", err)
	}
}

func TestFrameRecord(t *testing.T) {
	b := initBackend(t)
	target := render.NewPixmapTarget(2, 2)
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(0, 0, 0.5, 0.5))

	if err := b.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	cmd := newCommand(t, b, target)
	cmd.AddSubCommand(render.RenderSubCommand{
		Attributes: positions(vb, 2),
		Method:     render.DrawPoints,
		Params:     render.Parameters{Instances: 3},
	})
	if _, err := b.Execute(cmd); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := b.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}

	f := b.LastFrame()
	if f.Index != 1 || f.Commands != 1 || len(f.Calls) != 1 {
		t.Fatalf("LastFrame() = %+v, want frame 1 with one call", f)
	}
	c := f.Calls[0]
	if c.Pipeline != "flat" || c.Target != target.Handle() || c.Count != 2 || c.Instances != 3 || c.Primitives != 2 {
		t.Errorf("call = %+v", c)
	}
}

// =============================================================================
// Driver integration
// =============================================================================

func triangleMesh() (*mesh.Mesh, *buffer.GenBuffer) {
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(-1, -1, 1, -1, -1, 1))
	var desc vertex.Descriptor
	desc.Set(vertex.Position, vertex.Attribute{Buffer: vb, Format: gputypes.VertexFormatFloat32x2})

	m := mesh.New(mesh.WithLabel("triangle"))
	m.AddVertexBuffer(vb)
	m.AddSubMesh(mesh.SubMesh{Descriptor: desc, Method: render.DrawFilled, Count: 3})
	return m, vb
}

func TestDriverFrame(t *testing.T) {
	b := New()
	d, err := driver.New(b)
	if err != nil {
		t.Fatalf("driver.New() error = %v", err)
	}
	defer d.Close()

	m, vb := triangleMesh()
	d.Track(m)
	if _, ok := m.DriverBuffer(d, vb).(*Buffer); !ok {
		t.Fatalf("DriverBuffer() = %T, want *Buffer", m.DriverBuffer(d, vb))
	}

	pipe := d.MakeShader(render.ShaderDescriptor{Label: "flat", Source: flatWGSL})
	if pipe == nil {
		t.Fatal("MakeShader() = nil")
	}
	target := render.NewPixmapTarget(8, 8)
	cmd := render.NewRenderCommand(target, pipe)
	cmd.Params.BlendConstant = &red
	if !m.PopulateRenderCommand(d, pipe, cmd) {
		t.Fatal("PopulateRenderCommand() = false")
	}

	q := render.NewRenderQueue("main", render.QueueDynamic, 0)
	q.AddCommand(cmd)
	d.AddQueue(q)
	d.AddTarget(target)
	if err := d.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if got := pixel(target, 1, 6); got != render.ColorRGBA(red) {
		t.Errorf("pixel = %v, want red", got)
	}
	if f := b.LastFrame(); len(f.Calls) != 1 || f.Calls[0].Count != 3 {
		t.Errorf("LastFrame() = %+v, want one 3-vertex call", f)
	}
	if st := d.Stats(); st.DrawCalls != 1 || st.Commands != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestBufferPool(t *testing.T) {
	b := New(WithPool(2))
	d, err := driver.New(b)
	if err != nil {
		t.Fatalf("driver.New() error = %v", err)
	}

	m1, vb1 := triangleMesh()
	d.Track(m1)
	hw1 := m1.DriverBuffer(d, vb1).(*Buffer)
	d.Untrack(m1)

	if hw1.Released() {
		t.Fatal("pooled buffer was freed")
	}
	if hw1.Count() != 0 {
		t.Errorf("pooled Count() = %d, want 0", hw1.Count())
	}
	if st := b.PoolStats(); st.Pooled != 1 {
		t.Errorf("PoolStats().Pooled = %d, want 1", st.Pooled)
	}

	m2, vb2 := triangleMesh()
	vb2.Update(floats(1, 1, 0, 0, 1, 0), buffer.UsageStatic)
	d.Track(m2)
	hw2 := m2.DriverBuffer(d, vb2).(*Buffer)
	if hw2 != hw1 {
		t.Error("second mesh did not reuse the pooled buffer")
	}
	if string(hw2.Bytes()) != string(vb2.Bytes()) {
		t.Error("reused buffer holds stale contents")
	}
	if st := b.PoolStats(); st.Reused != 1 || st.Pooled != 0 {
		t.Errorf("PoolStats() = %+v, want 1 reused, 0 pooled", st)
	}

	d.Close()
	if !hw1.Released() {
		t.Error("Close() left a pooled buffer alive")
	}
}

func TestBufferPoolLimit(t *testing.T) {
	b := initBackend(t, WithPool(1))
	owner := poolOwner{b}
	data := floats(0, 0)

	var bufs []*Buffer
	for range 2 {
		hw, err := b.NewBuffer(buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, data), owner)
		if err != nil {
			t.Fatalf("NewBuffer() error = %v", err)
		}
		hw.Retain()
		bufs = append(bufs, hw.(*Buffer))
	}
	for _, hw := range bufs {
		hw.Release()
	}

	if bufs[0].Released() || !bufs[1].Released() {
		t.Error("pool kept more buffers than its limit")
	}
	if st := b.PoolStats(); st.Pooled != 1 || st.Evicted != 1 {
		t.Errorf("PoolStats() = %+v, want 1 pooled, 1 evicted", st)
	}
}

// poolOwner routes release decisions to the backend the way a driver does.
type poolOwner struct{ b *Backend }

func (o poolOwner) ShouldReleaseResource(r resource.Releaser) bool {
	return o.b.ShouldRelease(r)
}
