// ABOUTME: Exclusive-mode session start and producer goroutine
// ABOUTME: Converts the pipeline to the device format and pushes it into the actor's ring
package tonearm

import (
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/exclusive"
	"github.com/tonearm-audio/tonearm/pkg/audio/remix"
	"github.com/tonearm-audio/tonearm/pkg/audio/resample"
)

const (
	// backoffWait bounds each producer wait on a full ring
	backoffWait = 20 * time.Millisecond

	// drainPoll is how often the producer checks the ring at end of stream
	drainPoll = 10 * time.Millisecond
)

func (e *Engine) startExclusive(gen uint64, src audio.Source) error {
	h := e.actor
	format := h.Format()

	if err := h.ClearBuffer(); err != nil {
		return err
	}

	var out audio.Source = src
	if out.SampleRate() != format.SampleRate {
		rs, err := resample.NewSource(out, format.SampleRate)
		if err != nil {
			return err
		}
		out = rs
	}
	if out.Channels() != format.Channels {
		out = remix.NewSource(out, format.Channels)
	}

	if err := h.SetVolume(e.volume); err != nil {
		return err
	}
	// The producer treats a stopped device as lost, so start it first
	if err := h.Start(); err != nil {
		return err
	}
	go e.produceExclusive(gen, h, out)
	return nil
}

// deviceRunning reports whether the actor is still draining the ring
func deviceRunning(h *exclusive.Handle) bool {
	st := h.State()
	return st == exclusive.StatePlaying || st == exclusive.StatePaused
}

// produceExclusive feeds h until the source ends, gen is superseded or the
// device stops underneath it. It never waits longer than backoffWait between
// generation checks.
func (e *Engine) produceExclusive(gen uint64, h *exclusive.Handle, src audio.Source) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("exclusive producer panicked")
		}
	}()

	chunk := make([]float32, resample.ChunkFrames(src.SampleRate())*src.Channels())
	for {
		if !e.isCurrent(gen) {
			return
		}
		if !deviceRunning(h) {
			e.deviceLost(gen, h)
			return
		}
		if h.BufferedDuration() > e.config.HighWater {
			time.Sleep(backoffWait)
			continue
		}

		n, err := src.ReadSamples(chunk)
		if n > 0 && !e.push(gen, h, chunk[:n]) {
			if e.isCurrent(gen) {
				e.deviceLost(gen, h)
			}
			return
		}
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Msg("exclusive producer stopped")
			}
			break
		}
	}

	// Let the device play out what is queued
	for h.Buffered() > 0 {
		if !e.isCurrent(gen) {
			return
		}
		if !deviceRunning(h) {
			break
		}
		time.Sleep(drainPoll)
	}
	if !e.isCurrent(gen) {
		return
	}
	if err := h.Stop(); err != nil {
		log.Debug().Err(err).Msg("stop after drain")
	}
	e.trackEnded(gen)
}

// deviceLost ends session gen after the actor stopped on its own, usually
// because a device write failed
func (e *Engine) deviceLost(gen uint64, h *exclusive.Handle) {
	log.Warn().Str("device", h.DeviceName()).Uint64("generation", gen).Msg("exclusive output stopped during playback")
	e.trackEnded(gen)
}

// push writes all of samples unless gen is superseded or the device stops first
func (e *Engine) push(gen uint64, h *exclusive.Handle, samples []float32) bool {
	for len(samples) > 0 {
		if !e.isCurrent(gen) || !deviceRunning(h) {
			return false
		}
		n := h.Push(samples)
		samples = samples[n:]
		if len(samples) > 0 {
			h.WaitWritable(backoffWait)
		}
	}
	return true
}
