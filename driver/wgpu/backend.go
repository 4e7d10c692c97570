// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/internal/cache"
	"github.com/gogpu/engine/internal/notify"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxBufferSize bounds a single buffer allocation.
	DefaultMaxBufferSize = 256 << 20

	// DefaultVariantCache is the number of render pipelines kept.
	DefaultVariantCache = 128

	// DefaultShaderCache is the number of compiled shaders kept.
	DefaultShaderCache = 64
)

// DefaultHALBackends lists the HAL backends Init tries, in order.
var DefaultHALBackends = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
}

// Option configures a Backend.
type Option func(*Backend)

// WithHALBackends sets the HAL backends Init tries, in order.
// gputypes.BackendEmpty selects the no-op HAL used in tests.
func WithHALBackends(v ...gputypes.Backend) Option {
	return func(b *Backend) { b.preferred = v }
}

// WithMaxBufferSize bounds a single buffer allocation.
func WithMaxBufferSize(n uint64) Option {
	return func(b *Backend) { b.maxBuffer = n }
}

// WithVariantCache sets how many render pipelines are kept.
func WithVariantCache(n int) Option {
	return func(b *Backend) { b.variantCap = n }
}

// Backend renders with a HAL device. Resource creation is safe for
// concurrent use; frame methods are called by one goroutine at a time.
type Backend struct {
	preferred  []gputypes.Backend
	maxBuffer  uint64
	variantCap int

	mu       sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     gputypes.AdapterInfo
	external bool
	closed   bool

	compiles singleflight.Group
	spirv    *cache.LRU[string, []uint32]
	variants *cache.LRU[variantKey, hal.RenderPipeline]

	retiredMu sync.Mutex
	retired   []hal.RenderPipeline

	mirrorsMu sync.Mutex
	mirrors   map[handle.Handle]*mirror

	frame *frame
	stats counters
}

var _ driver.Backend = (*Backend)(nil)

// New returns a backend that opens its own device in Init.
func New(opts ...Option) *Backend {
	b := &Backend{
		preferred:  DefaultHALBackends,
		maxBuffer:  DefaultMaxBufferSize,
		variantCap: DefaultVariantCache,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.spirv = cache.New[string, []uint32](DefaultShaderCache, nil)
	b.variants = cache.New[variantKey, hal.RenderPipeline](b.variantCap, func(_ variantKey, p hal.RenderPipeline) {
		b.retire(p)
	})
	b.mirrors = make(map[handle.Handle]*mirror)
	return b
}

// NewFromProvider returns a backend sharing the host's device. The
// provider must expose HalDevice() and HalQueue() returning hal.Device
// and hal.Queue. The device is never destroyed by the backend.
func NewFromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHALProvider, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHALProvider, hp.HalQueue())
	}

	b := New(opts...)
	b.device, b.queue = device, queue
	b.external = true
	info := p.AdapterInfo()
	b.info = gputypes.AdapterInfo{Name: info.Name}
	return b, nil
}

// Name returns "wgpu".
func (b *Backend) Name() string { return driver.BackendWGPU }

// AdapterInfo describes the adapter in use. It is zero before Init.
func (b *Backend) AdapterInfo() gputypes.AdapterInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// Device returns the HAL device, or nil before Init.
func (b *Backend) Device() hal.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

// Init opens a device on the first preferred HAL backend that offers an
// adapter. Discrete and integrated GPUs are preferred over other
// adapters of the same backend.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return driver.ErrClosed
	}
	if b.device != nil {
		return nil
	}

	var errs []error
	for _, v := range b.preferred {
		hb, ok := hal.GetBackend(v)
		if !ok {
			continue
		}
		instance, err := hb.CreateInstance(&hal.InstanceDescriptor{})
		if err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", v, err))
			continue
		}
		adapters := instance.EnumerateAdapters(nil)
		if len(adapters) == 0 {
			instance.Destroy()
			continue
		}
		selected := pickAdapter(adapters)
		open, err := selected.Adapter.Open(0, gputypes.DefaultLimits())
		if err != nil {
			instance.Destroy()
			errs = append(errs, fmt.Errorf("%v: %w", v, err))
			continue
		}

		b.instance = instance
		b.device, b.queue = open.Device, open.Queue
		b.info = selected.Info
		notify.Info("wgpu: device opened", "adapter", selected.Info.Name, "backend", v)
		return nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNoAdapter, errors.Join(errs...))
	}
	return ErrNoAdapter
}

func pickAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU:
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// Close destroys cached pipelines and mirrors, then the device unless it
// belongs to a provider.
func (b *Backend) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	device, instance, external := b.device, b.instance, b.external
	b.mu.Unlock()

	if device == nil {
		return
	}
	if f := b.frame; f != nil {
		f.encoder.DiscardEncoding()
		f.encoder.Destroy()
		b.frame = nil
	}
	_ = device.WaitIdle()
	b.variants.Purge()
	b.destroyRetired(device)

	b.mirrorsMu.Lock()
	for h, m := range b.mirrors {
		m.destroy(device)
		delete(b.mirrors, h)
	}
	b.mirrorsMu.Unlock()

	if !external {
		device.Destroy()
		if instance != nil {
			instance.Destroy()
		}
	}
}

// ready returns the device and queue, or why they cannot be used.
func (b *Backend) ready() (hal.Device, hal.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.closed:
		return nil, nil, driver.ErrClosed
	case b.device == nil:
		return nil, nil, driver.ErrNotInitialized
	}
	return b.device, b.queue, nil
}

// retire schedules p for destruction once the GPU is idle.
func (b *Backend) retire(p hal.RenderPipeline) {
	b.retiredMu.Lock()
	b.retired = append(b.retired, p)
	b.retiredMu.Unlock()
}

func (b *Backend) destroyRetired(device hal.Device) {
	b.retiredMu.Lock()
	retired := b.retired
	b.retired = nil
	b.retiredMu.Unlock()
	for _, p := range retired {
		device.DestroyRenderPipeline(p)
	}
}

// NewBuffer uploads sw into a GPU buffer.
func (b *Backend) NewBuffer(sw buffer.Software, owner resource.Owner) (buffer.Buffer, error) {
	device, queue, err := b.ready()
	if err != nil {
		return nil, err
	}
	sw.Lock(buffer.AccessReadOnly)
	defer sw.Unlock(buffer.AccessReadOnly)

	hw, err := newBuffer(b, device, queue, sw.Type(), sw.Usage(), sw.Data(), owner)
	if err != nil {
		return nil, err
	}
	b.stats.buffers.Add(1)
	return hw, nil
}

// NewPipeline compiles desc's WGSL source.
func (b *Backend) NewPipeline(desc render.ShaderDescriptor, owner resource.Owner) (render.Pipeline, error) {
	device, _, err := b.ready()
	if err != nil {
		return nil, err
	}
	p, err := newPipeline(b, device, desc, owner)
	if err != nil {
		return nil, err
	}
	b.stats.pipelines.Add(1)
	return p, nil
}

// NewTexture uploads img as a sampled texture.
func (b *Backend) NewTexture(img image.Image, desc render.TextureDescriptor, owner resource.Owner) (render.Texture, error) {
	device, queue, err := b.ready()
	if err != nil {
		return nil, err
	}
	t, err := newTexture(device, queue, img, desc, owner)
	if err != nil {
		return nil, err
	}
	b.stats.textures.Add(1)
	return t, nil
}

// ShouldRelease frees every resource when its count reaches zero.
func (b *Backend) ShouldRelease(resource.Releaser) bool { return true }
