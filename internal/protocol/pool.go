package protocol

import (
	"context"
	"sync"

	"dvsconv/internal/log"
)

const (
	defaultBufferSize = 64 * 1024
	maxPooledSize     = 1024 * 1024
)

// bufferPool hands out payload buffers. Buffers that grew past maxCap are
// dropped on put so one huge frame does not pin memory.
type bufferPool struct {
	pool   sync.Pool
	maxCap int
}

func newBufferPool(size, maxCap int) *bufferPool {
	p := &bufferPool{maxCap: maxCap}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *bufferPool) get(ctx context.Context, size int) *[]byte {
	ptr := p.pool.Get().(*[]byte)
	if cap(*ptr) < size {
		p.pool.Put(ptr)
		log.Debug(ctx, "allocating oversized frame buffer", map[string]interface{}{
			log.KeyFrameSize: size,
		})
		b := make([]byte, size)
		return &b
	}

	*ptr = (*ptr)[:size]
	return ptr
}

func (p *bufferPool) put(ptr *[]byte) {
	if ptr == nil || cap(*ptr) > p.maxCap {
		return
	}
	p.pool.Put(ptr)
}

var frameBuffers = newBufferPool(defaultBufferSize, maxPooledSize)

// GetBufferWithCapacity returns a buffer of exactly size bytes.
func GetBufferWithCapacity(ctx context.Context, size int) *[]byte {
	return frameBuffers.get(ctx, size)
}

func PutBuffer(ptr *[]byte) {
	frameBuffers.put(ptr)
}
