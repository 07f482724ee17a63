// Package wheel writes binary distribution archives in the wheel format.
//
// Only the parts of the format anima-bin needs are supported: metadata,
// data-scheme payload files (scripts and data) and the RECORD manifest.
package wheel

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ivadomed/anima-bin/internal/tag"
)

// MetadataVersion is the core metadata version written to METADATA.
const MetadataVersion = "2.1"

var nameEscape = regexp.MustCompile(`[^A-Za-z0-9.]+`)

// ProjectURL is a labelled Project-URL entry.
type ProjectURL struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Metadata is the core metadata of one distribution.
type Metadata struct {
	Name        string
	Version     string
	Summary     string
	HomePage    string
	Author      string
	License     string
	ProjectURLs []ProjectURL
	Requires    []string

	// LicenseFile is the base name of the license file shipped in dist-info.
	LicenseFile string

	// Description is the long description, written as the message body.
	Description            string
	DescriptionContentType string
}

// EscapeName escapes a distribution name for use in file names.
func EscapeName(name string) string {
	return nameEscape.ReplaceAllString(name, "_")
}

// EscapeVersion escapes a version for use in file names. Only "-" is
// replaced, since it separates the file name components; "+" and "." of
// local versions must survive so installers read back the same version.
func EscapeVersion(version string) string {
	return strings.ReplaceAll(version, "-", "_")
}

// Filename returns the wheel file name for a distribution.
func Filename(name, version string, t tag.Tag) string {
	return fmt.Sprintf("%s-%s-%s.whl", EscapeName(name), EscapeVersion(version), t)
}

// DistInfoDir returns the name of the .dist-info directory.
func DistInfoDir(name, version string) string {
	return fmt.Sprintf("%s-%s.dist-info", EscapeName(name), EscapeVersion(version))
}

// DataDir returns the name of the .data directory.
func DataDir(name, version string) string {
	return fmt.Sprintf("%s-%s.data", EscapeName(name), EscapeVersion(version))
}

// Validate checks the fields required by the metadata format.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metadata: name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("metadata: version is required")
	}
	for _, field := range []string{m.Name, m.Version, m.Summary, m.HomePage, m.Author, m.License} {
		if strings.ContainsAny(field, "\r\n") {
			return fmt.Errorf("metadata: field %q must be a single line", field)
		}
	}
	return nil
}

// Bytes renders METADATA in its RFC 822 style form.
func (m Metadata) Bytes() []byte {
	var b bytes.Buffer
	header := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}

	header("Metadata-Version", MetadataVersion)
	header("Name", m.Name)
	header("Version", m.Version)
	header("Summary", m.Summary)
	header("Home-page", m.HomePage)
	header("Author", m.Author)
	header("License", m.License)
	for _, u := range m.ProjectURLs {
		header("Project-URL", u.Label+", "+u.URL)
	}
	for _, r := range m.Requires {
		header("Requires-Dist", r)
	}
	header("Description-Content-Type", m.DescriptionContentType)
	header("License-File", m.LicenseFile)

	if m.Description != "" {
		b.WriteString("\n")
		b.WriteString(m.Description)
		if !strings.HasSuffix(m.Description, "\n") {
			b.WriteString("\n")
		}
	}
	return b.Bytes()
}

// wheelFile renders the WHEEL file. Compressed tag sets such as
// "py2.py3-none-any" are expanded into one Tag line per combination.
func wheelFile(generator string, pure bool, t tag.Tag) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Wheel-Version: 1.0\n")
	fmt.Fprintf(&b, "Generator: %s\n", generator)
	fmt.Fprintf(&b, "Root-Is-Purelib: %t\n", pure)
	for _, py := range strings.Split(t.Python, ".") {
		for _, abi := range strings.Split(t.ABI, ".") {
			for _, plat := range strings.Split(t.Platform, ".") {
				fmt.Fprintf(&b, "Tag: %s-%s-%s\n", py, abi, plat)
			}
		}
	}
	return b.Bytes()
}
