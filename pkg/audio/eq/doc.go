// ABOUTME: Ten-band graphic equalizer package
// ABOUTME: Peaking biquads, soft clipping, shared settings and the command controller
// Package eq implements the ten-band equalizer applied between decoding and
// output.
//
// Settings are shared between the controller and any number of running
// Equalizers. The audio path never blocks on them: it polls with TryLoad every
// few hundred samples and keeps its cached coefficients when the lock is busy.
package eq
