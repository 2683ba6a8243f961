// Package pool provides reusable part buffers for multipart transfers.
//
// A multipart upload holds up to concurrency+1 parts in memory at once;
// pooling them keeps steady-state uploads from allocating a fresh part-sized
// buffer for every part.
package pool

import (
	"sync"
)

// BufferPool hands out byte slices of one fixed size.
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool creates a pool of buffers of the given size.
func NewBufferPool(size int) *BufferPool {
	bp := &BufferPool{size: size}
	bp.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return bp
}

// Size returns the length of the buffers handed out by the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a buffer of length Size. The caller is responsible for calling
// Put once the buffer is no longer referenced.
func (bp *BufferPool) Get() []byte {
	bufPtr, _ := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:bp.size]
}

// Put returns a buffer to the pool. Buffers of a different capacity are
// dropped.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.size {
		return
	}
	buf = buf[:bp.size]
	bp.pool.Put(&buf)
}
