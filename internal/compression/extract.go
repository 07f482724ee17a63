// Package compression extracts pre-built ANIMA binaries from upstream
// release archives into the directory the wheels are built from.
package compression

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/ulikunitz/xz"

	"github.com/ivadomed/anima-bin/internal/security"
)

// DefaultMaxFileSize limits the decompressed size of a single binary.
const DefaultMaxFileSize = 512 * 1024 * 1024

// ErrNoMatches is returned when an archive holds no file matching the patterns.
var ErrNoMatches = errors.New("no matching binaries in archive")

// ExtractResult contains the result of an extraction operation.
type ExtractResult struct {
	// Paths of the extracted binaries, in archive order.
	Paths []string
	// Whether the input was an archive (true) or a single file (false)
	WasArchive bool
}

// Extractor pulls binaries out of release archives.
type Extractor struct {
	// Patterns are doublestar patterns matched against each file's base name.
	Patterns []string
	// MaxFileSize caps each extracted file. Zero uses DefaultMaxFileSize.
	MaxFileSize int64
	Logger      hclog.Logger
}

// Extract detects the format of data from source's file name and extracts
// every matching regular file into destDir, flattened and made executable.
// It handles:
// - Tar archives (.tar, .tar.gz, .tgz, .tar.xz, .txz, .tar.bz2, .tbz, .tbz2)
// - Zip archives (.zip)
// - Standalone compressed files (.gz, .xz, .bz2)
// - Raw uncompressed binaries
func (e *Extractor) Extract(data []byte, source, destDir string) (*ExtractResult, error) {
	name := path.Base(filepath.ToSlash(source))
	lower := strings.ToLower(name)

	switch {
	case hasAnySuffix(lower, ".tar.gz", ".tgz"):
		gzr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		return e.extractTar(gzr, destDir)
	case hasAnySuffix(lower, ".tar.xz", ".txz"):
		xzr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return e.extractTar(xzr, destDir)
	case hasAnySuffix(lower, ".tar.bz2", ".tbz", ".tbz2"):
		return e.extractTar(bzip2.NewReader(bytes.NewReader(data)), destDir)
	case strings.HasSuffix(lower, ".tar"):
		return e.extractTar(bytes.NewReader(data), destDir)
	case strings.HasSuffix(lower, ".zip"):
		return e.extractZip(data, destDir)
	case strings.HasSuffix(lower, ".gz"):
		gzr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		return e.single(gzr, name[:len(name)-len(".gz")], destDir)
	case strings.HasSuffix(lower, ".xz"):
		xzr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return e.single(xzr, name[:len(name)-len(".xz")], destDir)
	case strings.HasSuffix(lower, ".bz2"):
		return e.single(bzip2.NewReader(bytes.NewReader(data)), name[:len(name)-len(".bz2")], destDir)
	}

	return e.single(bytes.NewReader(data), name, destDir)
}

// Match reports whether an archive member's base name is selected.
func (e *Extractor) Match(member string) bool {
	base := path.Base(strings.ReplaceAll(member, `\`, "/"))
	for _, p := range e.Patterns {
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

// single handles a standalone (possibly compressed) binary.
func (e *Extractor) single(r io.Reader, name, destDir string) (*ExtractResult, error) {
	if !e.Match(name) {
		return nil, fmt.Errorf("%w: %s does not match %v", ErrNoMatches, name, e.Patterns)
	}
	dest, err := e.writeBinary(r, name, destDir)
	if err != nil {
		return nil, err
	}
	return &ExtractResult{Paths: []string{dest}, WasArchive: false}, nil
}

// writeBinary copies r into destDir/name with the size limit applied.
func (e *Extractor) writeBinary(r io.Reader, name, destDir string) (string, error) {
	if err := security.ValidateBinaryName(name); err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, name)

	out, err := os.Create(destPath) // #nosec G304 - destination is inside the chosen bin directory
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}

	limitedReader := security.NewLimitedReader(r, e.maxFileSize())
	_, copyErr := io.Copy(out, limitedReader)
	closeErr := out.Close()

	if copyErr != nil {
		return "", fmt.Errorf("failed to extract %s: %w", name, copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, closeErr)
	}

	if err := os.Chmod(destPath, 0o755); err != nil { // #nosec G302 - wrapped binaries need execute permission
		return "", fmt.Errorf("failed to make %s executable: %w", name, err)
	}

	e.logger().Debug("extracted binary", "path", destPath)
	return destPath, nil
}

func (e *Extractor) maxFileSize() int64 {
	if e.MaxFileSize > 0 {
		return e.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (e *Extractor) logger() hclog.Logger {
	if e.Logger == nil {
		return hclog.NewNullLogger()
	}
	return e.Logger
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
