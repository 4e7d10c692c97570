// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/engine/vertex"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// DefaultFragmentEntry is used when a descriptor names no fragment entry.
const DefaultFragmentEntry = "fs_main"

// Pipeline is a compiled shader program. Render pipelines for each vertex
// layout, topology and target format it is drawn with are created on
// demand.
type Pipeline struct {
	render.PipelineBase
	resource.Ref

	backend *Backend
	device  hal.Device
	module  hal.ShaderModule
	layout  hal.PipelineLayout

	vertexEntry   string
	fragmentEntry string

	mu   sync.Mutex
	keys []variantKey
}

var _ render.Pipeline = (*Pipeline)(nil)

func newPipeline(b *Backend, device hal.Device, desc render.ShaderDescriptor, owner resource.Owner) (*Pipeline, error) {
	if desc.Source == "" {
		return nil, fmt.Errorf("%w: %q has no source", ErrShaderCompile, desc.Label)
	}
	r, err := vertex.Reflect(desc.Source, desc.VertexEntry)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrShaderCompile, desc.Label, err)
	}
	code, err := b.compile(desc.Source)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", desc.Label, err)
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: shader module %q: %w", desc.Label, err)
	}
	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: desc.Label})
	if err != nil {
		device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: pipeline layout %q: %w", desc.Label, err)
	}

	p := &Pipeline{
		PipelineBase:  render.NewPipelineBase(desc),
		backend:       b,
		device:        device,
		module:        module,
		layout:        layout,
		vertexEntry:   r.Entry,
		fragmentEntry: desc.FragmentEntry,
	}
	if p.fragmentEntry == "" {
		p.fragmentEntry = DefaultFragmentEntry
	}
	p.Init(p, owner)
	return p, nil
}

// compile returns the SPIR-V of source. Concurrent calls for the same
// source compile it once.
func (b *Backend) compile(source string) ([]uint32, error) {
	if code, ok := b.spirv.Get(source); ok {
		return code, nil
	}
	v, err, _ := b.compiles.Do(source, func() (any, error) {
		spirv, err := naga.Compile(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrShaderCompile, err)
		}
		code := words(spirv)
		b.spirv.Set(source, code)
		b.stats.compiles.Add(1)
		return code, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]uint32), nil
}

// words packs little-endian SPIR-V bytes into words.
func words(spirv []byte) []uint32 {
	code := make([]uint32, len(spirv)/4)
	for i := range code {
		code[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return code
}

// VertexEntry returns the vertex entry point in use.
func (p *Pipeline) VertexEntry() string { return p.vertexEntry }

// ReleaseResource drops the pipeline's render pipelines, module and
// layout.
func (p *Pipeline) ReleaseResource() {
	p.mu.Lock()
	keys := p.keys
	p.keys = nil
	p.mu.Unlock()
	for _, k := range keys {
		p.backend.variants.Delete(k)
	}
	p.device.DestroyPipelineLayout(p.layout)
	p.device.DestroyShaderModule(p.module)
}

// variantKey identifies one render pipeline of a Pipeline.
type variantKey struct {
	pipeline handle.Handle
	layout   vertex.LayoutKey
	topology gputypes.PrimitiveTopology
	format   gputypes.TextureFormat
}

// variant returns the render pipeline drawing attrs with topology into a
// target of the given format.
func (p *Pipeline) variant(attrs vertex.AttributesMap, topology gputypes.PrimitiveTopology, format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	key := variantKey{
		pipeline: p.Handle(),
		layout:   attrs.Key(),
		topology: topology,
		format:   format,
	}
	created := false
	rp, err := p.backend.variants.GetOrLoad(key, func() (hal.RenderPipeline, error) {
		created = true
		return p.createVariant(attrs, topology, format)
	})
	if err != nil {
		return nil, err
	}
	if created {
		p.mu.Lock()
		p.keys = append(p.keys, key)
		p.mu.Unlock()
		p.backend.stats.variants.Add(1)
	}
	return rp, nil
}

func (p *Pipeline) createVariant(attrs vertex.AttributesMap, topology gputypes.PrimitiveTopology, format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	desc := p.Descriptor()
	ms := desc.Multisample
	if ms.Count == 0 {
		ms = gputypes.DefaultMultisampleState()
	}
	rp, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s/%s", desc.Label, topology),
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: p.vertexEntry,
			Buffers:    attrs.Layouts(),
		},
		Primitive:   gputypes.PrimitiveState{Topology: topology, CullMode: gputypes.CullModeNone},
		Multisample: ms,
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: p.fragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				Blend:     desc.Blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: render pipeline %q: %w", desc.Label, err)
	}
	return rp, nil
}
