// Command meshdemo builds a mesh, renders it for a few frames and saves
// the result as a PNG.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/mesh"
	"github.com/gogpu/engine/render"
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
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

func main() {
	var (
		config  = flag.String("config", "", "TOML configuration file")
		backend = flag.String("backend", "", "driver backend (wgpu, software); empty picks the best available")
		width   = flag.Int("width", 320, "image width")
		height  = flag.Int("height", 240, "image height")
		frames  = flag.Int("frames", 3, "frames to render")
		output  = flag.String("output", "mesh.png", "output file")
		verbose = flag.Bool("v", false, "log engine diagnostics")
	)
	flag.Parse()

	cfg := engine.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = engine.LoadConfig(*config); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	opts := []engine.Option{engine.WithConfig(cfg)}
	if *backend != "" {
		opts = append(opts, engine.WithBackend(*backend))
	}
	if *verbose {
		opts = append(opts, engine.WithLogger(slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	e, err := engine.New(opts...)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	defer e.Close()

	m := e.NewMesh("demo")
	buildMesh(m)

	// Apply the queued buffers before mapping the mesh to the shader.
	if err := e.Frame(); err != nil {
		log.Fatalf("Frame failed: %v", err)
	}

	pipe := e.Driver().MakeShader(render.ShaderDescriptor{Label: "flat", Source: flatWGSL})
	if pipe == nil {
		log.Fatalf("Shader creation failed on %s", e.Driver().Name())
	}
	target := render.NewPixmapTarget(*width, *height)
	cmd := render.NewRenderCommand(target, pipe)
	cmd.Params.Clear = &gputypes.Color{R: 0.1, G: 0.1, B: 0.15, A: 1}
	if !m.PopulateRenderCommand(e.Driver(), pipe, cmd) {
		log.Fatal("Mesh does not match the shader inputs")
	}
	e.NewQueue("main", render.QueueStatic, 0).AddCommand(cmd)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Run(ctx, *frames, 16*time.Millisecond); err != nil {
		log.Fatalf("Render failed: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	if err := png.Encode(f, target.Image()); err != nil {
		_ = f.Close()
		log.Fatalf("Failed to save: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("%s", e.Stats())
	log.Printf("Mesh saved to %s (%dx%d)\n", *output, *width, *height)
}

// buildMesh adds a filled star, its outline and its points, all sharing
// one vertex buffer.
func buildMesh(m *mesh.Mesh) {
	const points = 5
	pos := []float32{0, 0}
	for i := range points * 2 {
		r := float32(0.8)
		if i%2 == 1 {
			r = 0.35
		}
		a := float64(i)*math.Pi/points - math.Pi/2
		pos = append(pos, r*float32(math.Cos(a)), -r*float32(math.Sin(a)))
	}
	vb := buffer.NewGenBuffer(buffer.TypeVertex, buffer.UsageStatic, floats(pos))

	var fill, outline []uint16
	for i := range uint16(points * 2) {
		next := (i+1)%(points*2) + 1
		fill = append(fill, 0, i+1, next)
		outline = append(outline, i+1, next)
	}
	fillIndex := buffer.NewGenBuffer(buffer.TypeIndex, buffer.UsageStatic, uint16s(fill))
	outlineIndex := buffer.NewGenBuffer(buffer.TypeIndex, buffer.UsageStatic, uint16s(outline))

	var desc vertex.Descriptor
	desc.Set(vertex.Position, vertex.Attribute{Buffer: vb, Format: gputypes.VertexFormatFloat32x2})

	m.AddVertexBuffer(vb)
	m.AddIndexBuffer(fillIndex)
	m.AddIndexBuffer(outlineIndex)
	m.AddSubMesh(mesh.SubMesh{
		Descriptor: desc,
		Method:     render.DrawFilled,
		Params:     render.Parameters{BlendConstant: &gputypes.Color{R: 1, G: 0.8, A: 1}},
		Count:      uint32(len(fill)),
		Index:      &mesh.IndexRange{Buffer: fillIndex, Format: gputypes.IndexFormatUint16},
	})
	m.AddSubMesh(mesh.SubMesh{
		Descriptor: desc,
		Method:     render.DrawLines,
		Params:     render.Parameters{BlendConstant: &gputypes.Color{R: 1, G: 0.3, B: 0.3, A: 1}},
		Count:      uint32(len(outline)),
		Index:      &mesh.IndexRange{Buffer: outlineIndex, Format: gputypes.IndexFormatUint16},
	})
	m.AddSubMesh(mesh.SubMesh{
		Descriptor: desc,
		Method:     render.DrawPoints,
		Params:     render.Parameters{BlendConstant: &gputypes.Color{R: 1, G: 1, B: 1, A: 1}},
		First:      1,
		Count:      points * 2,
	})
}

func floats(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func uint16s(v []uint16) []byte {
	out := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(out[2*i:], x)
	}
	return out
}
