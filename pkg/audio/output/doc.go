// ABOUTME: Audio output package for shared-mode playback
// ABOUTME: Provides the Backend interface, malgo and oto backends, the shared sink and device catalog
// Package output plays float32 audio through the operating system mixer.
//
// Backends:
//   - MalgoBackend: miniaudio via malgo, any named device, float32 at the source format
//   - OtoBackend: oto on the default device, format fixed at first open
//
// SharedSink queues sources on a Backend and pumps them from its own goroutine,
// applying volume and a short fade-in to each new source.
//
// Example:
//
//	sink := output.NewSharedSink(output.NewMalgo(""))
//	defer sink.Close()
//	err := sink.Append(src, 80*time.Millisecond)
package output
