// Package tag computes wheel compatibility tags for anima-bin archives.
package tag

import (
	"fmt"
	"strings"
)

const (
	// AnyPython declares compatibility with any Python 2 or 3 interpreter.
	// The archives carry native executables only, never importable code.
	AnyPython = "py2.py3"

	// NoABI declares no dependency on a Python binary interface.
	NoABI = "none"

	// AnyPlatform is the platform of an archive without native payload.
	AnyPlatform = "any"
)

// Tag is the three-part compatibility tag embedded in a wheel filename.
type Tag struct {
	Python   string
	ABI      string
	Platform string
}

// Pure is the tag of an archive that ships no native payload at all.
var Pure = Tag{Python: "py3", ABI: NoABI, Platform: AnyPlatform}

// platformLabels maps the operating-system labels accepted in PLATFORM to
// the platform tag baked into the archive name. Matching is case-sensitive.
var platformLabels = map[string]string{
	"Windows": "win_amd64",
	"macOS":   "macosx_10_15_x86_64",
	"OSX":     "macosx_10_15_x86_64",
	"Ubuntu":  "linux_x86_64",
}

// String returns the dash-joined form, e.g. "py2.py3-none-linux_x86_64".
func (t Tag) String() string {
	return t.Python + "-" + t.ABI + "-" + t.Platform
}

// Parse splits a "python-abi-platform" tag string.
func Parse(s string) (Tag, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Tag{}, fmt.Errorf("invalid tag %q: expected python-abi-platform", s)
	}
	for _, p := range parts {
		if p == "" {
			return Tag{}, fmt.Errorf("invalid tag %q: empty component", s)
		}
	}
	return Tag{Python: parts[0], ABI: parts[1], Platform: parts[2]}, nil
}

// PlatformForLabel returns the platform tag for a recognised OS label.
func PlatformForLabel(label string) (string, bool) {
	plat, ok := platformLabels[label]
	return plat, ok
}

// Labels returns the recognised OS labels in a stable order.
func Labels() []string {
	return []string{"Windows", "macOS", "OSX", "Ubuntu"}
}

// Override rewrites a detected tag for an archive that holds a native binary.
// Python and ABI are always forced to AnyPython and NoABI. The platform is
// replaced only when label is recognised; otherwise the detected platform is kept.
func Override(detected Tag, label string) Tag {
	out := Tag{
		Python:   AnyPython,
		ABI:      NoABI,
		Platform: detected.Platform,
	}
	if plat, ok := PlatformForLabel(label); ok {
		out.Platform = plat
	}
	return out
}
