// ABOUTME: Exclusive-mode device package
// ABOUTME: Runs a hardware-exclusive output client behind a single-goroutine actor
// Package exclusive owns an output device in exclusive mode.
//
// One actor goroutine owns the Client. Callers talk to it through a Handle,
// which sends typed commands and waits for exactly one response each. Audio
// reaches the device through a push-side ring buffer that the actor drains
// whenever the device asks for a period.
//
// Initialization negotiates the format by probing sample rate, channel count
// and sample encoding in a fixed order and accepting the first combination the
// device supports.
//
// On platforms without an exclusive API, NewClient returns
// ErrExclusiveUnavailable and callers fall back to shared output.
package exclusive
