// ABOUTME: Chunked windowed-sinc resampler adapter
// ABOUTME: Wraps per-channel float32 engines and pads the final chunk with a fade
package resample

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// ChunkFrames returns the processing chunk size in frames for a source rate
func ChunkFrames(sampleRate int) int {
	switch {
	case sampleRate <= 32000:
		return 512
	case sampleRate <= 64000:
		return 1024
	case sampleRate <= 128000:
		return 2048
	default:
		return 4096
	}
}

// Resampler converts interleaved float32 audio between sample rates
type Resampler struct {
	inputRate   int
	outputRate  int
	channels    int
	chunkFrames int
	engines     []*resampler.SimpleResamplerFloat32
	planar      []float32
}

// New creates a resampler for interleaved audio with the given channel count
func New(inputRate, outputRate, channels int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid resampler parameters: %d -> %d Hz, %d channels", inputRate, outputRate, channels)
	}

	engines := make([]*resampler.SimpleResamplerFloat32, channels)
	for ch := range engines {
		e, err := resampler.NewEngineFloat32(float64(inputRate), float64(outputRate), resampler.QualityHigh)
		if err != nil {
			return nil, fmt.Errorf("failed to create resampler engine: %w", err)
		}
		engines[ch] = e
	}

	return &Resampler{
		inputRate:   inputRate,
		outputRate:  outputRate,
		channels:    channels,
		chunkFrames: ChunkFrames(inputRate),
		engines:     engines,
	}, nil
}

// ChunkSamples returns the interleaved sample count of one processing chunk
func (r *Resampler) ChunkSamples() int {
	return r.chunkFrames * r.channels
}

// InputRate returns the source rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// Process resamples whole interleaved frames from src and appends them to dst
func (r *Resampler) Process(dst, src []float32) ([]float32, error) {
	frames := len(src) / r.channels
	if frames == 0 {
		return dst, nil
	}

	outs := make([][]float32, r.channels)
	for ch, e := range r.engines {
		r.planar = deinterleave(r.planar[:0], src, ch, r.channels, frames)
		out, err := e.Process(r.planar)
		if err != nil {
			return dst, fmt.Errorf("resample channel %d: %w", ch, err)
		}
		outs[ch] = out
	}
	return interleave(dst, outs), nil
}

// Flush drains the filter tails of every channel and appends them to dst
func (r *Resampler) Flush(dst []float32) ([]float32, error) {
	outs := make([][]float32, r.channels)
	for ch, e := range r.engines {
		out, err := e.Flush()
		if err != nil {
			return dst, fmt.Errorf("flush channel %d: %w", ch, err)
		}
		outs[ch] = out
	}
	return interleave(dst, outs), nil
}

// Reset clears all filter state
func (r *Resampler) Reset() {
	for _, e := range r.engines {
		e.Reset()
	}
}

// PadChunk extends a short interleaved chunk to frames by ramping each
// channel's last sample linearly toward zero across the missing tail.
func PadChunk(chunk []float32, channels, frames int) []float32 {
	have := len(chunk) / channels
	if have >= frames || have == 0 {
		return chunk
	}

	last := make([]float32, channels)
	copy(last, chunk[(have-1)*channels:have*channels])

	missing := frames - have
	for i := 0; i < missing; i++ {
		gain := 1 - float32(i)/float32(missing)
		for ch := 0; ch < channels; ch++ {
			chunk = append(chunk, last[ch]*gain)
		}
	}
	return chunk
}

func deinterleave(dst, src []float32, ch, channels, frames int) []float32 {
	for f := 0; f < frames; f++ {
		dst = append(dst, src[f*channels+ch])
	}
	return dst
}

func interleave(dst []float32, outs [][]float32) []float32 {
	frames := len(outs[0])
	for _, o := range outs[1:] {
		if len(o) < frames {
			frames = len(o)
		}
	}
	for f := 0; f < frames; f++ {
		for ch := range outs {
			dst = append(dst, outs[ch][f])
		}
	}
	return dst
}
