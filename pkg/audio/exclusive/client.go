// ABOUTME: Exclusive device client abstraction and format negotiation
// ABOUTME: Lists candidate formats in probe order and picks the first the device accepts
package exclusive

import (
	"fmt"
	"time"

	"github.com/tonearm-audio/tonearm/pkg/audio"
)

// Client is a hardware output opened in exclusive mode. All methods are
// called from the actor goroutine only.
type Client interface {
	// Name returns the device's display name
	Name() string

	// MixFormat returns the device's shared-mode mix rate and channel count
	MixFormat() (audio.DeviceFormat, error)

	// Supports reports whether the device accepts format exclusively
	Supports(format audio.DeviceFormat) bool

	// Open prepares the device at format with its minimum period
	Open(format audio.DeviceFormat) error

	Start() error
	Stop() error

	// WaitReady waits up to timeout for the device to request a period and
	// returns the frames it wants
	WaitReady(timeout time.Duration) (frames int, ok bool)

	// Write hands one period of encoded bytes to the device
	Write(data []byte) error

	Close() error
}

// Opener creates a Client for deviceName, or the default device when empty
type Opener func(deviceName string) (Client, error)

// probeRates follows the mix rate in Candidates
var probeRates = []int{384000, 352800, 192000, 176400, 96000, 88200, 48000, 44100, 32000, 22050, 16000}

// Candidates returns the formats to probe, in order: each rate (mix rate
// first), each channel count (mix count, then stereo), each sample format.
func Candidates(mix audio.DeviceFormat) []audio.DeviceFormat {
	rates := make([]int, 0, len(probeRates)+1)
	if mix.SampleRate > 0 {
		rates = append(rates, mix.SampleRate)
	}
	for _, r := range probeRates {
		if r != mix.SampleRate {
			rates = append(rates, r)
		}
	}

	channels := []int{2}
	if mix.Channels > 0 && mix.Channels != 2 {
		channels = []int{mix.Channels, 2}
	}

	out := make([]audio.DeviceFormat, 0, len(rates)*len(channels)*len(audio.SampleFormats))
	for _, rate := range rates {
		for _, ch := range channels {
			for _, sf := range audio.SampleFormats {
				out = append(out, audio.DeviceFormat{SampleRate: rate, Channels: ch, Sample: sf})
			}
		}
	}
	return out
}

// Negotiate opens c at the first supported candidate
func Negotiate(c Client) (audio.DeviceFormat, error) {
	mix, err := c.MixFormat()
	if err != nil {
		return audio.DeviceFormat{}, fmt.Errorf("query mix format: %w", err)
	}

	for _, format := range Candidates(mix) {
		if !c.Supports(format) {
			continue
		}
		if err := c.Open(format); err != nil {
			return audio.DeviceFormat{}, fmt.Errorf("open %s: %w", format, err)
		}
		return format, nil
	}
	return audio.DeviceFormat{}, fmt.Errorf("%w on %q", ErrUnsupportedFormat, c.Name())
}
