// ABOUTME: Decoded sample buffer with a read cursor
// ABOUTME: Signals refill when the remaining audio drops below a time threshold
package decode

const (
	// DefaultRefillThresholdMs is the low-water mark in milliseconds
	DefaultRefillThresholdMs = 100

	// MaxBufferMs caps configurable buffer durations
	MaxBufferMs = 3000
)

// DefaultBufferMs returns the target buffer duration for a sample rate
func DefaultBufferMs(sampleRate int) int {
	if sampleRate <= 48000 {
		return 500
	}
	return 400
}

// BufferCapacity converts a duration to an interleaved sample count
func BufferCapacity(sampleRate, channels, ms int) int {
	return int(int64(sampleRate) * int64(channels) * int64(ms) / 1000)
}

// Buffer is a FIFO of decoded interleaved samples.
// Capacity is the fill target; Append never drops samples.
type Buffer struct {
	samples     []float32
	cursor      int
	capacity    int
	sampleRate  int
	channels    int
	thresholdMs int
}

// NewBuffer creates a buffer with the given capacity in samples
func NewBuffer(capacity, sampleRate, channels int) *Buffer {
	return &Buffer{
		samples:     make([]float32, 0, capacity),
		capacity:    capacity,
		sampleRate:  sampleRate,
		channels:    channels,
		thresholdMs: DefaultRefillThresholdMs,
	}
}

// Append adds samples after compacting already consumed ones
func (b *Buffer) Append(samples []float32) {
	if b.cursor > 0 {
		n := copy(b.samples, b.samples[b.cursor:])
		b.samples = b.samples[:n]
		b.cursor = 0
	}
	b.samples = append(b.samples, samples...)
}

// Next pops one sample
func (b *Buffer) Next() (float32, bool) {
	if b.cursor >= len(b.samples) {
		return 0, false
	}
	v := b.samples[b.cursor]
	b.cursor++
	return v, true
}

// Read pops up to len(dst) samples and returns how many were copied
func (b *Buffer) Read(dst []float32) int {
	n := copy(dst, b.samples[b.cursor:])
	b.cursor += n
	return n
}

// Clear drops all buffered samples
func (b *Buffer) Clear() {
	b.samples = b.samples[:0]
	b.cursor = 0
}

// Remaining returns the number of unread samples
func (b *Buffer) Remaining() int {
	return len(b.samples) - b.cursor
}

// Capacity returns the fill target in samples
func (b *Buffer) Capacity() int {
	return b.capacity
}

// SetRefillThreshold changes the low-water mark
func (b *Buffer) SetRefillThreshold(ms int) {
	b.thresholdMs = ms
}

// NeedsRefill reports whether fewer than thresholdMs of audio remain
func (b *Buffer) NeedsRefill() bool {
	return int64(b.Remaining())*1000 < int64(b.sampleRate)*int64(b.channels)*int64(b.thresholdMs)
}
