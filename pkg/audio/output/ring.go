// ABOUTME: Float32 ring buffer between a producer and a device callback
// ABOUTME: Zero-fills on underrun and signals readers and writers without blocking them
package output

import (
	"sync"
	"time"
)

// RingBuffer is a bounded FIFO of interleaved samples
type RingBuffer struct {
	buffer   []float32
	readPos  int
	writePos int
	size     int
	count    int // Number of samples currently in buffer
	mu       sync.Mutex

	readable chan struct{}
	writable chan struct{}
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		buffer:   make([]float32, capacity),
		size:     capacity,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Write adds as many samples as fit and returns how many were taken
func (rb *RingBuffer) Write(samples []float32) int {
	rb.mu.Lock()
	written := 0
	for written < len(samples) && rb.count < rb.size {
		n := len(samples) - written
		if free := rb.size - rb.count; n > free {
			n = free
		}
		if tail := rb.size - rb.writePos; n > tail {
			n = tail
		}
		copy(rb.buffer[rb.writePos:rb.writePos+n], samples[written:written+n])
		rb.writePos = (rb.writePos + n) % rb.size
		rb.count += n
		written += n
	}
	rb.mu.Unlock()

	if written > 0 {
		signal(rb.readable)
	}
	return written
}

// Read fills samples from the buffer and zero-fills the rest on underrun.
// It returns how many real samples were read.
func (rb *RingBuffer) Read(samples []float32) int {
	rb.mu.Lock()
	read := 0
	for read < len(samples) && rb.count > 0 {
		n := len(samples) - read
		if n > rb.count {
			n = rb.count
		}
		if tail := rb.size - rb.readPos; n > tail {
			n = tail
		}
		copy(samples[read:read+n], rb.buffer[rb.readPos:rb.readPos+n])
		rb.readPos = (rb.readPos + n) % rb.size
		rb.count -= n
		read += n
	}
	rb.mu.Unlock()

	// Zero-fill remaining if underrun
	for i := read; i < len(samples); i++ {
		samples[i] = 0
	}
	if read > 0 {
		signal(rb.writable)
	}
	return read
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns the number of free slots in the buffer
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}

// Size returns the capacity in samples
func (rb *RingBuffer) Size() int { return rb.size }

// Clear drops all buffered samples
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	rb.readPos, rb.writePos, rb.count = 0, 0, 0
	rb.mu.Unlock()
	signal(rb.writable)
}

// WaitReadable waits up to timeout for data to be written. It may return
// early on a stale signal; callers re-check Available.
func (rb *RingBuffer) WaitReadable(timeout time.Duration) bool {
	if rb.Available() > 0 {
		return true
	}
	return wait(rb.readable, timeout)
}

// WaitWritable waits up to timeout for space to be freed
func (rb *RingBuffer) WaitWritable(timeout time.Duration) bool {
	if rb.Free() > 0 {
		return true
	}
	return wait(rb.writable, timeout)
}

func wait(ch chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
