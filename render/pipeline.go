// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/vertex"
	"github.com/gogpu/gputypes"
)

// Pipeline is a driver shader program. Its handle keys per-mesh attribute
// caches.
type Pipeline interface {
	vertex.Shader
	Label() string
	Retain()
	Release()
}

// ShaderDescriptor describes a pipeline for Driver.MakeShader.
type ShaderDescriptor struct {
	Label string

	// Pipeline names the rule set a NameMapper applies. Empty uses Label.
	Pipeline string

	// Source is WGSL holding both stages.
	Source        string
	VertexEntry   string
	FragmentEntry string

	// Mapper resolves vertex inputs. Nil selects a reflection mapper.
	Mapper vertex.ShaderMapper

	Blend       *gputypes.BlendState
	Multisample gputypes.MultisampleState
}

// Context returns the mapping context of the described pipeline.
func (d ShaderDescriptor) Context() vertex.Context {
	name := d.Pipeline
	if name == "" {
		name = d.Label
	}
	return vertex.Context{Pipeline: name, Source: d.Source, Entry: d.VertexEntry}
}

// PipelineBase implements the identity half of Pipeline for drivers.
type PipelineBase struct {
	handle.Handled
	desc ShaderDescriptor
}

var pipelineCounter = handle.For[Pipeline]()

// NewPipelineBase allocates a pipeline handle for desc.
func NewPipelineBase(desc ShaderDescriptor) PipelineBase {
	return PipelineBase{Handled: handle.New(pipelineCounter), desc: desc}
}

// Descriptor returns the descriptor the pipeline was made from.
func (p *PipelineBase) Descriptor() ShaderDescriptor { return p.desc }

// Label returns the debug label.
func (p *PipelineBase) Label() string { return p.desc.Label }

// Mapper returns the descriptor's mapper.
func (p *PipelineBase) Mapper() vertex.ShaderMapper { return p.desc.Mapper }

// Context returns the mapping context.
func (p *PipelineBase) Context() vertex.Context { return p.desc.Context() }
