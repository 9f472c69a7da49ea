// ABOUTME: Visualization tap for the playback pipeline
// ABOUTME: Spectrum analysis, waveform snapshots and rate-limited position events
// Package visualize observes post-equalizer audio without altering it.
//
// A Stage wraps a source, averages each frame to mono and, once per full
// analysis window, publishes a smoothed 128-bin spectrum and the window's
// waveform. Publication never blocks: if a store is locked the update is
// skipped.
package visualize
