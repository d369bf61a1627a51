// package buffer provides some buffer primitives.
package buffer

// Ring is a fixed capacity FIFO ring buffer. It is not safe for concurrent
// use; callers that share one must do their own locking.
type Ring[T any] struct {
	buf         []T
	readp, size int
}

// NewRing allocates a new ring buffer that holds at most size elements.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		panic("buffer: non-positive ring size")
	}
	return &Ring[T]{buf: make([]T, size)}
}

// Len is the number of elements waiting to be read.
func (r *Ring[T]) Len() int { return r.size }

// Write appends v at the write head. It returns false, leaving the buffer
// untouched, if the ring is full.
func (r *Ring[T]) Write(v T) bool {
	if r.size == len(r.buf) {
		return false
	}
	r.buf[(r.readp+r.size)%len(r.buf)] = v
	r.size++
	return true
}

// Read moves up to len(out) of the oldest elements into out and returns how
// many it moved. Anything that doesn't fit stays in the ring.
func (r *Ring[T]) Read(out []T) int {
	var zero T
	n := min(len(out), r.size)
	for i := 0; i < n; i++ {
		out[i] = r.buf[r.readp]
		r.buf[r.readp] = zero
		r.readp = (r.readp + 1) % len(r.buf)
	}
	r.size -= n
	return n
}

// Reset drops everything in the ring.
func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.readp, r.size = 0, 0
}
