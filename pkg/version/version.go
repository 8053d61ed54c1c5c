// Package version exposes the build stamp injected through -ldflags.
package version

import "fmt"

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Set records the build stamp. Empty values keep the defaults.
func Set(v, c, d string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	if d != "" {
		buildDate = d
	}
}

// Version returns the release version, "dev" for local builds.
func Version() string { return version }

// Commit returns the source commit.
func Commit() string { return commit }

// BuildDate returns when the binary was built.
func BuildDate() string { return buildDate }

// String formats the stamp for the version command.
func String() string {
	return fmt.Sprintf("siteback %s (commit %s, built %s)", version, commit, buildDate)
}
