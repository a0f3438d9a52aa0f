package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool_Get(t *testing.T) {
	p := newBufferPool(16, 64)

	tests := []struct {
		name string
		size int
	}{
		{name: "smaller than default", size: 5},
		{name: "default", size: 16},
		{name: "oversized", size: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr := p.get(context.Background(), tt.size)
			assert.Len(t, *ptr, tt.size)
			assert.GreaterOrEqual(t, cap(*ptr), tt.size)
			p.put(ptr)
		})
	}
}

func TestBufferPool_PutDropsLargeBuffers(t *testing.T) {
	p := newBufferPool(16, 64)
	allocs := 0
	p.pool.New = func() any {
		allocs++
		b := make([]byte, 16)
		return &b
	}

	big := make([]byte, 128)
	p.put(&big)
	p.put(nil)

	ptr := p.get(context.Background(), 8)
	assert.Equal(t, 1, allocs)
	assert.Equal(t, 16, cap(*ptr))
}
