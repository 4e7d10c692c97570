package software

import (
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/engine/vertex"
)

// Pipeline is a validated shader program. The software rasterizer does
// not run shader code; it reads the Position input and fills with the
// blend constant.
type Pipeline struct {
	render.PipelineBase
	resource.Ref

	reflection *vertex.Reflection
}

var _ render.Pipeline = (*Pipeline)(nil)

func newPipeline(desc render.ShaderDescriptor, owner resource.Owner) (*Pipeline, error) {
	p := &Pipeline{PipelineBase: render.NewPipelineBase(desc)}
	if desc.Source != "" {
		r, err := vertex.Reflect(desc.Source, desc.VertexEntry)
		if err != nil {
			return nil, err
		}
		p.reflection = r
	}
	p.Init(p, owner)
	return p, nil
}

// Reflection returns the vertex inputs, or nil for a pipeline made
// without source.
func (p *Pipeline) Reflection() *vertex.Reflection { return p.reflection }

// ReleaseResource drops the reflection.
func (p *Pipeline) ReleaseResource() { p.reflection = nil }
