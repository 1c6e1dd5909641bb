package version

import "fmt"

// Build metadata, overridden with -ldflags "-X" in release builds.
//
//nolint:gochecknoglobals // Linker-injected values must be package variables.
var (
	// Version is the wake-bulb release.
	Version = "0.3.0"
	// Commit is the git revision the binary was built from.
	Commit = "dev"
	// BuildTime is when the binary was built, in UTC.
	BuildTime = "unknown"
)

// Short returns the release number alone, as printed by --version.
func Short() string {
	return Version
}

// Full describes the running build for bug reports.
func Full() string {
	return fmt.Sprintf("wake-bulb %s\ncommit: %s\nbuilt:  %s", Version, Commit, BuildTime)
}
