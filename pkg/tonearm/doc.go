// ABOUTME: High-level tonearm playback API
// ABOUTME: Provides the Engine command surface, device handling and the event stream
// Package tonearm plays local audio files through shared or exclusive output.
//
// This is the main entry point for library users, providing:
//   - Engine: play, seek, pause, volume, device and mode commands
//   - Subscription: spectrum, position, track-ended and device events
//   - Monitor: device add/remove polling with automatic fallback
//
// For lower-level control, see the audio, decode, eq, visualize, output and
// exclusive packages.
//
// Example:
//
//	engine, err := tonearm.NewEngine(tonearm.Config{Volume: 0.8})
//	defer engine.Close()
//	sub := engine.Subscribe()
//	err = engine.Play("/music/track.flac", nil)
//	<-sub.TrackEnded
package tonearm
