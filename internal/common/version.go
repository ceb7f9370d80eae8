package common

import "fmt"

// Version information (Build and GitCommit set via -ldflags during build)
var (
	Version   = "0.2"
	Build     = "unknown"
	GitCommit = "unknown"
)

// SchemaVersion is the canonical event schema version written to every event
// and reported by /health.
const SchemaVersion = "0.2"

// GetVersion returns the current version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}
