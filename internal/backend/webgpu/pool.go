//go:build windows && webgpu

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPooled bounds the free list of each size and usage.
const maxPooled = 8

type poolKey struct {
	size  uint64
	usage wgpu.BufferUsage
}

// bufferPool reuses output and staging buffers across dispatches. A layer
// dispatches the same sizes on every step, so buffers are keyed by exact
// size and usage.
type bufferPool struct {
	device *wgpu.Device
	free   map[poolKey][]*wgpu.Buffer
	mu     sync.Mutex

	hits, misses uint64
}

func newBufferPool(device *wgpu.Device) *bufferPool {
	return &bufferPool{device: device, free: make(map[poolKey][]*wgpu.Buffer)}
}

func (p *bufferPool) acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := poolKey{size, usage}
	if list := p.free[k]; len(list) > 0 {
		buf := list[len(list)-1]
		p.free[k] = list[:len(list)-1]
		p.hits++
		return buf
	}
	p.misses++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{Usage: usage, Size: size})
}

func (p *bufferPool) release(buf *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := poolKey{size, usage}
	if len(p.free[k]) >= maxPooled {
		buf.Release()
		return
	}
	p.free[k] = append(p.free[k], buf)
}

func (p *bufferPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, list := range p.free {
		for _, buf := range list {
			buf.Release()
		}
		delete(p.free, k)
	}
}

// stats returns the pool hit and miss counts.
func (p *bufferPool) stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}
