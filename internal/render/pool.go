package render

import (
	"image"
	"sync"
)

// framePool reuses image.RGBA buffers keyed by size. The compositor
// allocates scaled scratch surfaces every frame; without reuse the GC
// dominates the render loop.
type framePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

func newFramePool() *framePool {
	return &framePool{pools: make(map[string]*sync.Pool)}
}

func (p *framePool) get(rect image.Rectangle) *image.RGBA {
	key := rect.String()

	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[key]
		if !ok {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *framePool) put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()

	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()

	if ok {
		pool.Put(img)
	}
}
