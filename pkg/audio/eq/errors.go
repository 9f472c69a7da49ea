// ABOUTME: Sentinel errors for the eq package
// ABOUTME: Band index, gain count and preset lookup failures
package eq

import "errors"

var (
	ErrInvalidBand      = errors.New("eq: invalid band index")
	ErrInvalidGainCount = errors.New("eq: invalid gain count")
	ErrUnknownPreset    = errors.New("eq: unknown preset")
)
