// Package mesh holds geometry and keeps per-driver GPU copies of it.
//
// A Mesh owns software buffers and submeshes, which are always
// consistent. For every associated driver it also keeps a cache of
// hardware buffers, a cache of per-shader attribute maps and a FIFO of
// pending transactions. Mutators change the software state and enqueue a
// transaction for each driver in the same critical section; drivers apply
// the transactions later with Update, a bounded amount of work per frame.
//
// A single Mesh may be drawn by several drivers at once.
//
//	m := mesh.New(mesh.WithTransactionTTL(time.Second))
//	m.AddVertexBuffer(positions)
//	m.AddSubMesh(mesh.SubMesh{Descriptor: desc, Method: render.DrawFilled, Count: 36})
//	m.Associate(drv)
//	...
//	m.Update(drv, 2*time.Millisecond)
//	m.PopulateRenderCommand(drv, pipeline, cmd)
package mesh
