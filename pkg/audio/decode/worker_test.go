// ABOUTME: Tests for the decode worker
// ABOUTME: Covers batch ordering, prompt shutdown, non-blocking stop and producer panics
package decode

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerDeliversAllSamplesInOrder(t *testing.T) {
	path := writeToneWAV(t, 44100, 2, 2)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)

	w := NewWorker(dec)
	defer w.Close()

	assert.Equal(t, 44100, w.SampleRate())
	assert.Equal(t, 2, w.Channels())

	out := readAll(t, w)
	require.Len(t, out, 2*44100*2)
	for n := 0; n < 44100*2; n += 997 {
		want := float32(toneValue(n, 44100)) / 32768
		assert.InDelta(t, want, out[2*n], 1e-6, "frame %d", n)
	}
}

func TestWorkerCloseStopsProducer(t *testing.T) {
	src := &endlessProducer{}
	w := NewWorker(src)

	buf := make([]float32, 100)
	n, err := w.ReadSamples(buf)
	require.NoError(t, err)
	require.Equal(t, 100, n)

	closed := make(chan struct{})
	go func() {
		w.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, src.closed)
	assert.True(t, src.prefilled)
}

func TestWorkerStopDoesNotWaitForSlowDecode(t *testing.T) {
	src := &stalledProducer{entered: make(chan struct{}), release: make(chan struct{})}
	w := NewWorker(src)

	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("decode never started")
	}

	start := time.Now()
	w.Stop()
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	select {
	case <-w.Done():
		t.Fatal("worker exited while the decode call was still running")
	default:
	}

	close(src.release)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after the decode call returned")
	}
	assert.True(t, src.closed.Load())

	// Close after Stop is a no-op join
	assert.NoError(t, w.Close())
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	w := NewWorker(&panickyProducer{})
	defer w.Close()

	n, err := w.ReadSamples(make([]float32, 8))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWorkerNext(t *testing.T) {
	path := writeToneWAV(t, 8000, 1, 0.25)

	dec, err := NewStreamingDecoder(path, Options{})
	require.NoError(t, err)

	w := NewWorker(dec)
	defer w.Close()

	count := 0
	for {
		if _, ok := w.Next(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2000*2, count)
}

type endlessProducer struct {
	prefilled bool
	closed    bool
}

func (p *endlessProducer) SampleRate() int { return 48000 }
func (p *endlessProducer) Channels() int   { return 2 }
func (p *endlessProducer) Prefill() error  { p.prefilled = true; return nil }
func (p *endlessProducer) Close() error    { p.closed = true; return nil }
func (p *endlessProducer) ReadSamples(dst []float32) (int, error) {
	for i := range dst {
		dst[i] = 0.25
	}
	return len(dst), nil
}

// stalledProducer blocks inside ReadSamples until released
type stalledProducer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	closed  atomic.Bool
}

func (p *stalledProducer) SampleRate() int { return 48000 }
func (p *stalledProducer) Channels() int   { return 2 }
func (p *stalledProducer) Prefill() error  { return nil }
func (p *stalledProducer) Close() error    { p.closed.Store(true); return nil }
func (p *stalledProducer) ReadSamples(dst []float32) (int, error) {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return len(dst), nil
}

type panickyProducer struct{}

func (panickyProducer) SampleRate() int                    { return 48000 }
func (panickyProducer) Channels() int                      { return 2 }
func (panickyProducer) Prefill() error                     { return nil }
func (panickyProducer) Close() error                       { return nil }
func (panickyProducer) ReadSamples([]float32) (int, error) { panic("corrupt stream") }
