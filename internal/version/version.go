// ABOUTME: Build identity reported by the CLI and the log
// ABOUTME: Product, manufacturer and version strings
package version

import "fmt"

const (
	Product      = "tonearm"
	Manufacturer = "Tonearm Audio"
	Version      = "0.3.0"
)

// String formats the identity for -version and the startup log line
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
