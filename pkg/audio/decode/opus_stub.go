//go:build nolibopusfile

// ABOUTME: Opus backend stub for builds without libopusfile
// ABOUTME: Reports Opus as unsupported so the fallback path is taken
package decode

import (
	"fmt"
	"os"
)

func newOpusCodec(*os.File, []byte) (packetDecoder, error) {
	return nil, fmt.Errorf("%w: built without libopusfile", ErrUnsupportedFormat)
}
