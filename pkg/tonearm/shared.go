// ABOUTME: Shared-mode session start and end-of-track watcher
// ABOUTME: Appends the pipeline to the sink and polls for it to drain
package tonearm

import (
	"time"

	"github.com/tonearm-audio/tonearm/pkg/audio"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

// watchInterval is how often the shared watcher polls the sink
const watchInterval = 100 * time.Millisecond

func (e *Engine) startShared(gen uint64, src audio.Source, fadeIn time.Duration) error {
	e.sink.SetVolume(e.volume)
	gated := &gatedSource{Source: src, live: func() bool { return e.isCurrent(gen) }}
	if err := e.sink.Append(gated, fadeIn); err != nil {
		return err
	}
	e.sink.Play()

	go e.watchShared(gen, e.sink)
	return nil
}

// watchShared emits track-ended when sink drains, unless gen is superseded
// first. The sink is passed in because SetDevice may swap e.sink meanwhile.
func (e *Engine) watchShared(gen uint64, sink *output.SharedSink) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for range ticker.C {
		if e.generation.Load() != gen {
			return
		}
		if sink.Empty() && !sink.IsPaused() {
			e.trackEnded(gen)
			return
		}
	}
}
