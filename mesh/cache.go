package mesh

import (
	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/transaction"
	"github.com/gogpu/engine/vertex"
)

// driverCache is the per-driver state of a mesh. Fields other than queue
// are guarded by Mesh.cachesMu.
type driverCache struct {
	driver Driver

	// hw maps a software buffer handle to the buffer the driver binds. A
	// software buffer is its own entry when the driver could not create
	// one. Every entry holds a reference.
	hw map[handle.Handle]buffer.Buffer

	// attrs maps a shader handle to one attribute map per submesh.
	attrs map[handle.Handle][]vertex.AttributesMap

	queue transaction.Queue[payload]

	// gen counts attribute cache invalidations, so maps computed before
	// an invalidation are not stored after it.
	gen uint64

	closed bool
}

func newDriverCache(d Driver) *driverCache {
	return &driverCache{
		driver: d,
		hw:     make(map[handle.Handle]buffer.Buffer),
		attrs:  make(map[handle.Handle][]vertex.AttributesMap),
	}
}

// insert stores b for key, retaining it. It reports false and leaves the
// cache untouched when key is already present.
func (c *driverCache) insert(key handle.Handle, b buffer.Buffer) bool {
	if _, ok := c.hw[key]; ok {
		return false
	}
	b.Retain()
	c.hw[key] = b
	return true
}

func (c *driverCache) invalidate() {
	clear(c.attrs)
	c.gen++
}

// evict empties the cache and returns the buffers whose references the
// caller must drop.
func (c *driverCache) evict() []buffer.Buffer {
	out := make([]buffer.Buffer, 0, len(c.hw))
	for _, b := range c.hw {
		out = append(out, b)
	}
	clear(c.hw)
	clear(c.attrs)
	c.closed = true
	return out
}

// lookup returns the driver buffer for b, or nil.
func (c *driverCache) lookup(b buffer.Buffer) buffer.Buffer {
	if c == nil || b == nil {
		return nil
	}
	return c.hw[b.Handle()]
}
