package software

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/gputypes"
)

// DefaultPoolSize is the number of released buffers kept per type and
// capacity class when pooling is enabled without a size.
const DefaultPoolSize = 16

// Call is one recorded draw.
type Call struct {
	Pipeline   string
	Target     handle.Handle
	Method     render.DrawMethod
	Count      uint32
	Instances  uint32
	Indexed    bool
	Primitives int
}

// Frame is the record of one BeginFrame/EndFrame pair.
type Frame struct {
	Index    uint64
	Commands int
	Calls    []Call
}

// Option configures a Backend.
type Option func(*Backend)

// WithPool keeps up to perKey released buffers of each type and capacity
// class for reuse. A non-positive perKey uses DefaultPoolSize.
func WithPool(perKey int) Option {
	return func(b *Backend) {
		if perKey <= 0 {
			perKey = DefaultPoolSize
		}
		b.pool = newPool(perKey)
	}
}

// Backend renders on the CPU.
type Backend struct {
	pool *pool

	mu     sync.Mutex
	frames uint64
	frame  Frame
	last   Frame
	inited bool
	closed bool
}

var _ driver.Backend = (*Backend)(nil)

// New returns an uninitialized backend.
func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "software".
func (b *Backend) Name() string { return driver.BackendSoftware }

// Init marks the backend ready. It never fails.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return driver.ErrClosed
	}
	b.inited = true
	return nil
}

// Close destroys pooled buffers.
func (b *Backend) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	if b.pool != nil {
		b.pool.drain()
	}
}

func (b *Backend) ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.closed:
		return driver.ErrClosed
	case !b.inited:
		return driver.ErrNotInitialized
	}
	return nil
}

// NewBuffer copies sw into a host buffer, reusing a pooled one of the
// same class when possible.
func (b *Backend) NewBuffer(sw buffer.Software, owner resource.Owner) (buffer.Buffer, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	sw.Lock(buffer.AccessReadOnly)
	defer sw.Unlock(buffer.AccessReadOnly)

	data, usage := sw.Data(), sw.Usage()
	if b.pool != nil {
		if hw := b.pool.get(sw.Type(), usage.Capacity(len(data)), owner); hw != nil {
			hw.Update(data, usage)
			return hw, nil
		}
	}
	return newBuffer(sw.Type(), usage, data, owner), nil
}

// NewPipeline validates desc's vertex stage.
func (b *Backend) NewPipeline(desc render.ShaderDescriptor, owner resource.Owner) (render.Pipeline, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	p, err := newPipeline(desc, owner)
	if err != nil {
		return nil, fmt.Errorf("software: pipeline %q: %w", desc.Label, err)
	}
	return p, nil
}

// NewTexture converts img to RGBA.
func (b *Backend) NewTexture(img image.Image, desc render.TextureDescriptor, owner resource.Owner) (render.Texture, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	t, err := newTexture(img, desc, owner)
	if err != nil {
		return nil, fmt.Errorf("software: texture %q: %w", desc.Label, err)
	}
	return t, nil
}

// ShouldRelease keeps buffers in the pool when pooling is enabled.
func (b *Backend) ShouldRelease(r resource.Releaser) bool {
	hw, ok := r.(*Buffer)
	if !ok || b.pool == nil {
		return true
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return true
	}
	return !b.pool.put(hw)
}

// PoolStats reports pool activity. It is zero when pooling is disabled.
func (b *Backend) PoolStats() PoolStats {
	if b.pool == nil {
		return PoolStats{}
	}
	return b.pool.stats()
}

// BeginFrame starts a new frame record.
func (b *Backend) BeginFrame() error {
	if err := b.ready(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames++
	b.frame = Frame{Index: b.frames}
	return nil
}

// Execute renders cmd into its target, which must be a host RGBA target.
func (b *Backend) Execute(cmd *render.RenderCommand) (int, error) {
	if err := b.ready(); err != nil {
		return 0, err
	}
	t, ok := cmd.Target.(render.PixelTarget)
	if !ok || t.Format() != gputypes.TextureFormatRGBA8Unorm {
		return 0, fmt.Errorf("%w: target %d has format %v", driver.ErrInvalidPixelFormat,
			cmd.Target.Handle(), cmd.Target.Format())
	}

	r := newRaster(t)
	if cmd.Params.Clear != nil {
		r.clear(render.ColorRGBA(*cmd.Params.Clear))
	}

	var errs error
	calls := make([]Call, 0, len(cmd.SubCommands))
	for i, sc := range cmd.SubCommands {
		p := cmd.Params.Merge(sc.Params)
		n, err := r.draw(sc.Attributes, sc.Method, p)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("subcommand %d: %w", i, err))
			continue
		}
		calls = append(calls, Call{
			Pipeline:   cmd.Pipeline.Label(),
			Target:     cmd.Target.Handle(),
			Method:     sc.Method,
			Count:      sc.Attributes.Count,
			Instances:  p.InstanceCount(),
			Indexed:    sc.Attributes.Indexed(),
			Primitives: n,
		})
	}

	b.mu.Lock()
	b.frame.Commands++
	b.frame.Calls = append(b.frame.Calls, calls...)
	b.mu.Unlock()
	return len(calls), errs
}

// EndFrame completes the frame record.
func (b *Backend) EndFrame() error {
	if err := b.ready(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = b.frame
	b.frame = Frame{}
	return nil
}

// LastFrame returns the record of the last completed frame.
func (b *Backend) LastFrame() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.last
	f.Calls = append([]Call(nil), f.Calls...)
	return f
}
