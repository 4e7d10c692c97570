// Package engine is the entry point of a small render-resource engine.
//
// # Overview
//
// An Engine ties together a render driver, the meshes it keeps hardware
// copies of, and the render queues it draws every frame. Geometry lives in
// software buffers owned by meshes; each driver gets its own cache of
// hardware buffers, built lazily from queued transactions within a
// per-frame time budget.
//
// # Quick Start
//
//	e, err := engine.New(engine.WithBackend("software"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer e.Close()
//
//	m := e.NewMesh("quad")
//	m.AddVertexBuffer(positions)
//	m.AddSubMesh(mesh.SubMesh{Descriptor: desc, Method: render.DrawFilled, Count: 6})
//
//	target := render.NewPixmapTarget(640, 480)
//	pipeline := e.Driver().MakeShader(render.ShaderDescriptor{Label: "flat", Source: wgsl})
//	cmd := render.NewRenderCommand(target, pipeline)
//	m.PopulateRenderCommand(e.Driver(), pipeline, cmd)
//	e.NewQueue("main", render.QueueStatic, 0).AddCommand(cmd)
//
//	_ = e.Frame()
//
// # Backends
//
// Backends register themselves with the driver package. Importing this
// package links both built-in backends:
//   - wgpu: GPU rendering through the gogpu/wgpu HAL (Vulkan, Metal, DX12, GL)
//   - software: a CPU rasterizer drawing into host images
//
// With no backend configured the first one that initializes wins, wgpu
// first.
//
// # Configuration
//
// Options configure an Engine directly. LoadConfig reads the same settings
// from a TOML file:
//
//	backend = "software"
//	frame_budget = "2ms"
//	buffer_pool = 16
//
// # Logging
//
// The engine is silent by default. SetLogger installs an slog.Logger for
// the engine and every sub-package.
package engine
