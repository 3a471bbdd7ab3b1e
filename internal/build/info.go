// Package build carries version metadata injected at link time.
package build

import "fmt"

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// Info is the JSON form of the build metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Current returns the metadata of the running binary.
func Current() Info {
	return Info{Version: Version, Commit: CommitSHA, BuildDate: BuildDate}
}

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}
