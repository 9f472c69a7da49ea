// ABOUTME: Streaming decoder that keeps a bounded sample buffer topped up
// ABOUTME: Handles prefill, incremental refill, seek and lazy reopen of the codec
package decode

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio/remix"
)

const (
	prefillTarget      = 0.95
	prefillMaxAttempts = 200
	prefillFloorAfter  = 10
	fillTarget         = 0.80
	fillMaxPackets     = 50
	maxEmptyFills      = 8
)

// State is the lifecycle of a StreamingDecoder
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateEndOfStream
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateEndOfStream:
		return "end of stream"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Options tunes a StreamingDecoder. Zero values pick defaults.
type Options struct {
	// BufferMs is the buffer duration; 0 selects DefaultBufferMs
	BufferMs int

	// RefillThresholdMs is the low-water mark; 0 selects DefaultRefillThresholdMs
	RefillThresholdMs int

	// DownmixToStereo folds sources with more than two channels to stereo
	DownmixToStereo bool
}

// StreamingDecoder decodes one file incrementally into a Buffer.
// It is not safe for concurrent use; the Worker gives it a single owner.
type StreamingDecoder struct {
	path string
	opts Options

	codec       packetDecoder
	info        streamInfo
	remixer     *remix.Remixer
	outChannels int

	buffer   *Buffer
	state    State
	lastErr  error
	remixBuf []float32

	// decodedFrames counts frames handed to the buffer since the start of the stream
	decodedFrames int64
}

// NewStreamingDecoder probes path and opens its codec
func NewStreamingDecoder(path string, opts Options) (*StreamingDecoder, error) {
	d := &StreamingDecoder{path: path, opts: opts}
	if err := d.open(); err != nil {
		return nil, err
	}
	log.Debug().
		Str("codec", d.info.codec).
		Int("rate", d.info.sampleRate).
		Int("channels", d.info.channels).
		Int("out_channels", d.outChannels).
		Msgf("opened %s", path)
	return d, nil
}

func (d *StreamingDecoder) open() error {
	codec, err := openCodec(d.path)
	if err != nil {
		d.state = StateError
		d.lastErr = err
		return err
	}

	d.codec = codec
	d.info = codec.info()
	d.outChannels, d.remixer = d.channelPolicy(d.info.channels)

	bufferMs := d.opts.BufferMs
	if bufferMs <= 0 {
		bufferMs = DefaultBufferMs(d.info.sampleRate)
	}
	if bufferMs > MaxBufferMs {
		bufferMs = MaxBufferMs
	}
	threshold := d.opts.RefillThresholdMs
	if threshold <= 0 {
		threshold = DefaultRefillThresholdMs
	}

	capacity := BufferCapacity(d.info.sampleRate, d.outChannels, bufferMs)
	if d.buffer == nil || d.buffer.Capacity() != capacity {
		d.buffer = NewBuffer(capacity, d.info.sampleRate, d.outChannels)
	} else {
		d.buffer.Clear()
	}
	d.buffer.SetRefillThreshold(threshold)

	d.state = StateReady
	d.lastErr = nil
	d.decodedFrames = 0
	return nil
}

// channelPolicy picks the output arity: mono is duplicated, stereo passes
// through, and wider layouts are folded only when asked.
func (d *StreamingDecoder) channelPolicy(in int) (int, *remix.Remixer) {
	switch {
	case in == 1:
		return 2, remix.New(1, 2)
	case in > 2 && d.opts.DownmixToStereo:
		return 2, remix.New(in, 2)
	default:
		return in, nil
	}
}

// ensureOpen reopens the codec after a failed seek
func (d *StreamingDecoder) ensureOpen() error {
	if d.state != StateUninitialized {
		return nil
	}
	return d.open()
}

func (d *StreamingDecoder) push(packet []float32) {
	if d.remixer != nil {
		d.remixBuf = d.remixer.Remix(d.remixBuf[:0], packet)
		packet = d.remixBuf
	}
	d.buffer.Append(packet)
	d.decodedFrames += int64(len(packet) / d.outChannels)
}

// fill decodes until the buffer holds target samples, the packet budget is
// spent or the stream ends. A skipped packet is returned as an ErrDecode error
// after the remaining budget is used.
func (d *StreamingDecoder) fill(target, maxPackets int) error {
	if d.state != StateReady {
		return nil
	}

	var decodeErr error
	for i := 0; i < maxPackets && d.buffer.Remaining() < target; i++ {
		packet, err := d.codec.readPacket()
		switch {
		case err == nil:
			d.push(packet)
		case err == io.EOF:
			d.state = StateEndOfStream
			return decodeErr
		case errors.Is(err, ErrDecode):
			log.Debug().Err(err).Msg("skipping undecodable packet")
			decodeErr = err
		default:
			d.state = StateError
			d.lastErr = fmt.Errorf("%w: %v", ErrPacketRead, err)
			return d.lastErr
		}
	}
	return decodeErr
}

func (d *StreamingDecoder) fillBuffer() error {
	return d.fill(int(float64(d.buffer.Capacity())*fillTarget), fillMaxPackets)
}

// Prefill decodes until the buffer is nearly full or the stream ends.
// Transient decode errors are retried; it fails only when less than half the
// buffer could be filled.
func (d *StreamingDecoder) Prefill() error {
	if err := d.ensureOpen(); err != nil {
		return err
	}

	target := int(float64(d.buffer.Capacity()) * prefillTarget)
	floor := d.buffer.Capacity() / 2

	for attempt := 1; attempt <= prefillMaxAttempts; attempt++ {
		if d.buffer.Remaining() >= target || d.state == StateEndOfStream {
			return nil
		}

		err := d.fill(target, fillMaxPackets)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrDecode) {
			if attempt >= prefillFloorAfter && d.buffer.Remaining() < floor {
				return fmt.Errorf("%w: %d of %d samples after %d attempts: %v",
					ErrPrefill, d.buffer.Remaining(), d.buffer.Capacity(), attempt, err)
			}
			continue
		}
		if d.buffer.Remaining() >= floor {
			log.Warn().Err(err).Msg("prefill stopped early")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrPrefill, err)
	}

	if d.buffer.Remaining() < floor && d.state != StateEndOfStream {
		return fmt.Errorf("%w: buffer at %d of %d samples", ErrPrefill, d.buffer.Remaining(), d.buffer.Capacity())
	}
	return nil
}

func (d *StreamingDecoder) refillIfNeeded() {
	if d.state != StateReady || !d.buffer.NeedsRefill() {
		return
	}
	if err := d.fillBuffer(); err != nil && !errors.Is(err, ErrDecode) {
		log.Warn().Err(err).Str("path", d.path).Msg("decode stopped")
	}
}

// Next returns the next sample, refilling first when the buffer runs low.
// It reports false only once the stream is exhausted.
func (d *StreamingDecoder) Next() (float32, bool) {
	if err := d.ensureOpen(); err != nil {
		return 0, false
	}
	for tries := 0; tries < maxEmptyFills; tries++ {
		d.refillIfNeeded()
		if v, ok := d.buffer.Next(); ok {
			return v, true
		}
		if d.state != StateReady {
			return 0, false
		}
	}
	return 0, false
}

// ReadSamples fills dst from the buffer and returns io.EOF once exhausted
func (d *StreamingDecoder) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if err := d.ensureOpen(); err != nil {
		return 0, err
	}

	for tries := 0; tries < maxEmptyFills; tries++ {
		d.refillIfNeeded()
		if n := d.buffer.Read(dst); n > 0 {
			return n, nil
		}
		if d.state != StateReady {
			break
		}
	}

	if d.state == StateError && d.lastErr != nil {
		return 0, d.lastErr
	}
	return 0, io.EOF
}

// Seek moves playback to seconds from the start. The buffer is discarded.
// When seeking fails the decoder drops back to Uninitialized at position 0
// and reopens on next use.
func (d *StreamingDecoder) Seek(seconds float64) error {
	if d.codec == nil {
		d.state = StateUninitialized
	}
	if err := d.ensureOpen(); err != nil {
		return err
	}

	target := int64(math.Max(seconds, 0) * float64(d.info.sampleRate))
	if d.info.totalFrames > 0 && target > d.info.totalFrames {
		target = d.info.totalFrames
	}

	if err := d.seekToFrame(target); err != nil {
		log.Warn().Err(err).Float64("seconds", seconds).Msg("seek failed, decoder will reopen")
		d.reset()
		return err
	}
	return nil
}

func (d *StreamingDecoder) seekToFrame(target int64) error {
	d.buffer.Clear()

	err := d.codec.seekFrame(target)
	if err == nil {
		d.decodedFrames = target
		d.state = StateReady
		return nil
	}
	if !errors.Is(err, errSeekUnsupported) {
		log.Debug().Err(err).Int64("frame", target).Msg("native seek failed, reopening")
	}
	return d.reopenAndSkip(target)
}

// reopenAndSkip decodes from the start and discards up to target
func (d *StreamingDecoder) reopenAndSkip(target int64) error {
	d.codec.close()
	d.codec = nil
	if err := d.open(); err != nil {
		return err
	}

	for d.decodedFrames < target {
		packet, err := d.codec.readPacket()
		switch {
		case err == io.EOF:
			d.state = StateEndOfStream
			return nil
		case errors.Is(err, ErrDecode):
			continue
		case err != nil:
			return fmt.Errorf("%w: %v", ErrPacketRead, err)
		}

		frames := int64(len(packet) / d.info.channels)
		if d.decodedFrames+frames <= target {
			d.decodedFrames += frames
			continue
		}
		skip := int(target-d.decodedFrames) * d.info.channels
		d.decodedFrames = target
		d.push(packet[skip:])
	}
	return nil
}

func (d *StreamingDecoder) reset() {
	if d.codec != nil {
		d.codec.close()
		d.codec = nil
	}
	d.buffer.Clear()
	d.decodedFrames = 0
	d.state = StateUninitialized
}

// Position returns the playback position in seconds, excluding buffered audio
func (d *StreamingDecoder) Position() float64 {
	if d.info.sampleRate == 0 || d.buffer == nil {
		return 0
	}
	frames := d.decodedFrames - int64(d.buffer.Remaining()/d.outChannels)
	if frames < 0 {
		frames = 0
	}
	return float64(frames) / float64(d.info.sampleRate)
}

// Duration returns the stream length in seconds, or 0 when unknown
func (d *StreamingDecoder) Duration() float64 {
	if d.info.sampleRate == 0 {
		return 0
	}
	return float64(d.info.totalFrames) / float64(d.info.sampleRate)
}

// SampleRate returns the native sample rate
func (d *StreamingDecoder) SampleRate() int { return d.info.sampleRate }

// Channels returns the output channel count after the channel policy
func (d *StreamingDecoder) Channels() int { return d.outChannels }

// Codec names the backend in use
func (d *StreamingDecoder) Codec() string { return d.info.codec }

// State returns the lifecycle state
func (d *StreamingDecoder) State() State { return d.state }

// Close releases the file
func (d *StreamingDecoder) Close() error {
	if d.codec == nil {
		return nil
	}
	err := d.codec.close()
	d.codec = nil
	if d.state == StateReady {
		d.state = StateEndOfStream
	}
	return err
}
