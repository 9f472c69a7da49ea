// ABOUTME: Oto-based shared-mode output backend
// ABOUTME: Streams float32 PCM to the default device through a persistent player
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio"
)

// oto allows one context per process
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat audio.DeviceFormat
	otoErr    error
)

// OtoBackend plays through oto on the default device only
type OtoBackend struct {
	mu         sync.Mutex
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.DeviceFormat
	encoded    []byte
	pending    atomic.Int64
}

// NewOto creates an oto backend
func NewOto() *OtoBackend {
	return &OtoBackend{}
}

func (o *OtoBackend) DeviceName() string { return "" }

func (o *OtoBackend) Format() audio.DeviceFormat {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.format
}

// Open creates the process-wide oto context on first use. Later opens must
// match its format.
func (o *OtoBackend) Open(format audio.DeviceFormat) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	format.Sample = audio.SampleFormatFloat32

	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		otoFormat = format
		log.Info().Msgf("oto output opened at %s", format)
	})
	if otoErr != nil {
		return otoErr
	}

	if o.player == nil {
		// Create persistent player that reads from the pipe
		o.pipeReader, o.pipeWriter = io.Pipe()
		o.player = otoCtx.NewPlayer(o.pipeReader)
		o.player.Play()
		o.format = otoFormat
	}

	if format != otoFormat {
		return fmt.Errorf("%w: open at %s, requested %s", ErrFormatFixed, otoFormat, format)
	}
	return nil
}

// Write encodes samples and writes them to the player pipe
func (o *OtoBackend) Write(samples []float32) error {
	o.mu.Lock()
	w := o.pipeWriter
	if cap(o.encoded) < len(samples)*4 {
		o.encoded = make([]byte, len(samples)*4)
	}
	buf := o.encoded[:len(samples)*4]
	o.mu.Unlock()

	if w == nil {
		return ErrNotOpen
	}
	for i, v := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	o.pending.Store(int64(len(samples)))
	_, err := w.Write(buf)
	o.pending.Store(0)
	if err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Buffered reports samples still inside the player
func (o *OtoBackend) Buffered() int {
	o.mu.Lock()
	p := o.player
	o.mu.Unlock()
	if p == nil {
		return 0
	}
	return p.BufferedSize()/4 + int(o.pending.Load())
}

// Flush is a no-op; oto cannot drop audio already handed to the player
func (o *OtoBackend) Flush() {}

func (o *OtoBackend) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Pause()
	}
	return nil
}

func (o *OtoBackend) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Play()
	}
	return nil
}

// Close releases the player; the oto context lives for the process
func (o *OtoBackend) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	return nil
}
