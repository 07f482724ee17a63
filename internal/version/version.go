// Package version provides build-time version information for anima-bin.
// Version information is injected at build time using ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the tools.
	// Injected at build time via: -ldflags "-X github.com/ivadomed/anima-bin/internal/version.Version=x.y.z".
	Version = "dev"

	// Commit is the git commit hash of the build.
	// Injected at build time via: -ldflags "-X github.com/ivadomed/anima-bin/internal/version.Commit=$(git rev-parse HEAD)".
	Commit = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// Info holds all version information for the application.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns all version information as a structured type.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: GoVersion,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string for the named program.
func String(program string) string {
	info := GetInfo()
	if len(info.Commit) >= 8 && info.Commit != "unknown" {
		return fmt.Sprintf("%s version %s (commit: %s, %s, %s)",
			program, info.Version, info.Commit[:8], info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("%s version %s (%s, %s)", program, info.Version, info.GoVersion, info.Platform)
}

// Generator returns the generator string written into wheel metadata.
func Generator() string {
	return fmt.Sprintf("anima-wheel (%s)", Version)
}
