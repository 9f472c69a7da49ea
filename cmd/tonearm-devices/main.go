// ABOUTME: Lists output devices and their exclusive-mode support
// ABOUTME: Optionally negotiates an exclusive format on one device
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tonearm-audio/tonearm/pkg/audio/exclusive"
	"github.com/tonearm-audio/tonearm/pkg/audio/output"
)

var (
	probe   = flag.String("probe", "", "Negotiate an exclusive format on this device")
	verbose = flag.Bool("v", false, "Debug logging")
)

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	catalog, err := output.NewCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open device catalog")
	}
	defer catalog.Close()

	devices, err := catalog.Devices()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list devices")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tDEFAULT\tEXCLUSIVE")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, yesNo(d.IsDefault), yesNo(d.SupportsExclusive))
	}
	w.Flush()

	if *probe == "" {
		return
	}

	client, err := exclusive.NewClient(*probe)
	if err != nil {
		log.Fatal().Err(err).Str("device", *probe).Msg("Exclusive mode unavailable")
	}
	defer client.Close()

	format, err := exclusive.Negotiate(client)
	if err != nil {
		log.Fatal().Err(err).Str("device", *probe).Msg("No exclusive format accepted")
	}
	fmt.Printf("\n%s: %d Hz, %d ch, %s\n", client.Name(), format.SampleRate, format.Channels, format.Sample)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
