package core

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrAllocationFailed is returned when a buffer cannot be allocated.
var ErrAllocationFailed = errors.New("core: buffer allocation failed")

// AllocCheck approves an allocation of the given size in bytes before it happens.
type AllocCheck func(bytes uint64) error

// BufferCache holds one reusable buffer keyed by (element count, element size).
// The buffer is reallocated only when the requested key differs from the
// cached one; otherwise the same backing array is handed out again.
type BufferCache[T any] struct {
	buf         []T
	count       int
	elemSize    uintptr
	check       AllocCheck
	allocations int
}

// NewBufferCache creates an empty cache. check may be nil.
func NewBufferCache[T any](check AllocCheck) *BufferCache[T] {
	return &BufferCache[T]{check: check}
}

// Acquire returns a buffer of exactly count elements. Contents are left as they
// were when the buffer is reused.
func (c *BufferCache[T]) Acquire(count int) ([]T, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative element count %d", ErrAllocationFailed, count)
	}

	var zero T
	elemSize := unsafe.Sizeof(zero)
	if c.buf != nil && c.count == count && c.elemSize == elemSize {
		return c.buf, nil
	}

	if c.check != nil {
		if err := c.check(uint64(count) * uint64(elemSize)); err != nil {
			return nil, err
		}
	}

	buf, err := allocate[T](count)
	if err != nil {
		return nil, err
	}

	c.buf = buf
	c.count = count
	c.elemSize = elemSize
	c.allocations++
	return buf, nil
}

// Release drops the cached buffer so the next Acquire allocates again
func (c *BufferCache[T]) Release() {
	c.buf = nil
	c.count = 0
	c.elemSize = 0
}

// Allocations returns how many times the cache had to allocate
func (c *BufferCache[T]) Allocations() int {
	return c.allocations
}

func allocate[T any](count int) (buf []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("%w: %v", ErrAllocationFailed, r)
		}
	}()
	return make([]T, count), nil
}
