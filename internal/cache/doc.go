// Package cache provides a bounded LRU map whose evictions can free the
// values they drop.
//
// It backs the shader reflection cache and the GPU pipeline cache. Values
// that own device objects pass an eviction hook so that an entry pushed
// out of the cache is destroyed instead of leaked:
//
//	c := cache.New[string, hal.RenderPipeline](64, func(_ string, p hal.RenderPipeline) {
//	    device.DestroyRenderPipeline(p)
//	})
//	p, err := c.GetOrLoad(key, build)
//
// LRU is safe for concurrent use and must not be copied.
package cache
