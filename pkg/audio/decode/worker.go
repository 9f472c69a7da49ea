// ABOUTME: Decode worker running a decoder on its own goroutine
// ABOUTME: Hands sample batches to a pull-style consumer over a channel
package decode

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const (
	// BatchSamples is the number of samples decoded per channel send
	BatchSamples = 16384

	workerQueueDepth = 4
)

// Producer is a decoder the Worker can own
type Producer interface {
	SampleRate() int
	Channels() int
	ReadSamples(dst []float32) (int, error)
	Prefill() error
	Close() error
}

// Worker owns a Producer on a dedicated goroutine. The consumer side is an
// audio.Source and must be used from a single goroutine.
type Worker struct {
	batches    chan []float32
	stopCh     chan struct{}
	done       chan struct{}
	stopped    atomic.Bool
	closeOnce  sync.Once
	sampleRate int
	channels   int

	current []float32
	pos     int
}

// NewWorker starts decoding src in the background. The worker closes src
// when its goroutine exits.
func NewWorker(src Producer) *Worker {
	w := &Worker{
		batches:    make(chan []float32, workerQueueDepth),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		sampleRate: src.SampleRate(),
		channels:   src.Channels(),
	}
	go w.run(src)
	return w
}

func (w *Worker) run(src Producer) {
	defer close(w.done)
	defer close(w.batches)
	defer src.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("decode worker panicked")
		}
	}()

	if err := src.Prefill(); err != nil {
		log.Warn().Err(err).Msg("decode worker prefill")
	}

	for !w.stopped.Load() {
		batch := make([]float32, BatchSamples)
		filled := 0
		var readErr error
		for filled < len(batch) {
			n, err := src.ReadSamples(batch[filled:])
			filled += n
			if err != nil {
				readErr = err
				break
			}
			if w.stopped.Load() {
				return
			}
			if n == 0 {
				break
			}
		}

		if filled > 0 {
			select {
			case w.batches <- batch[:filled]:
			case <-w.stopCh:
				return
			}
		}

		if readErr != nil {
			if readErr != io.EOF {
				log.Warn().Err(readErr).Msg("decode worker stopped")
			}
			return
		}
	}
}

// SampleRate returns the producer's sample rate
func (w *Worker) SampleRate() int { return w.sampleRate }

// Channels returns the producer's channel count
func (w *Worker) Channels() int { return w.channels }

// ReadSamples copies from the current batch, blocking for the next one when
// it runs out. It returns io.EOF once the producer is finished and drained.
func (w *Worker) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if w.pos >= len(w.current) {
		batch, ok := <-w.batches
		if !ok {
			return 0, io.EOF
		}
		w.current = batch
		w.pos = 0
	}
	n := copy(dst, w.current[w.pos:])
	w.pos += n
	return n, nil
}

// Next pops a single sample
func (w *Worker) Next() (float32, bool) {
	var one [1]float32
	n, _ := w.ReadSamples(one[:])
	return one[0], n == 1
}

// Stop asks the producer to exit and returns at once. A decode call already
// in progress finishes on the worker goroutine, which then closes the producer.
func (w *Worker) Stop() {
	w.closeOnce.Do(func() {
		w.stopped.Store(true)
		close(w.stopCh)
	})
}

// Done is closed once the worker goroutine has exited and the producer is closed
func (w *Worker) Done() <-chan struct{} { return w.done }

// Close stops the producer without draining the channel and waits for it to exit
func (w *Worker) Close() error {
	w.Stop()
	<-w.done
	return nil
}
