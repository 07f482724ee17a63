// Package security provides validation helpers for paths and URLs that come
// from archives, environment variables and command-line flags.
package security

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ErrSizeLimit is returned by LimitedReader when the stream is longer than its budget.
var ErrSizeLimit = errors.New("decompression size limit exceeded")

// ValidateHTTPURL validates an HTTP(S) URL for safe downloads.
// Only allows HTTPS from non-local hosts.
func ValidateHTTPURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("only HTTPS URLs are allowed (got %s)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	host := strings.ToLower(parsed.Hostname())
	if isLocalOrPrivateHost(host) {
		return fmt.Errorf("URL cannot point to local or private hosts: %s", host)
	}

	return nil
}

// ValidateFilePath validates a file path within an archive to prevent directory traversal.
func ValidateFilePath(filePath, baseDir string) error {
	if filePath == "" {
		return fmt.Errorf("empty file path")
	}

	if strings.Contains(filePath, "..") {
		return fmt.Errorf("file path contains directory traversal (..) - not allowed")
	}

	if filepath.IsAbs(filePath) || strings.HasPrefix(filePath, "/") {
		return fmt.Errorf("absolute paths in archives are not allowed")
	}

	finalPath := filepath.Join(baseDir, filePath)
	cleanFinal := filepath.Clean(finalPath)
	cleanBase := filepath.Clean(baseDir)

	if !strings.HasPrefix(cleanFinal, cleanBase+string(filepath.Separator)) &&
		cleanFinal != cleanBase {
		return fmt.Errorf("file path would escape base directory")
	}

	return nil
}

// ValidateArchiveName validates the name of an entry written into an archive.
// Names use forward slashes, are relative and contain no "." or ".." segments.
func ValidateArchiveName(name string) error {
	if name == "" {
		return fmt.Errorf("empty archive entry name")
	}
	if strings.Contains(name, `\`) {
		return fmt.Errorf("archive entry %q must use forward slashes", name)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("archive entry %q must be relative", name)
	}
	if path.Clean(name) != name {
		return fmt.Errorf("archive entry %q is not in canonical form", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("archive entry %q contains directory traversal", name)
		}
	}
	return nil
}

// ValidateBinaryName validates a wrapped binary name taken from the
// environment or a directory listing. It must be a single path component.
func ValidateBinaryName(name string) error {
	if name == "" {
		return fmt.Errorf("empty binary name")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid binary name %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("binary name %q must not contain path separators", name)
	}
	return nil
}

// LimitedReader wraps an io.Reader and limits the total bytes that can be read.
// This prevents decompression bomb attacks when extracting archives.
type LimitedReader struct {
	R         io.Reader
	Remaining int64
}

// Read implements io.Reader with size limits.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Remaining <= 0 {
		return 0, l.pastLimit()
	}
	if int64(len(p)) > l.Remaining {
		p = p[:l.Remaining]
	}
	n, err := l.R.Read(p)
	l.Remaining -= int64(n)
	return n, err
}

// pastLimit distinguishes a stream that ends exactly at the limit (io.EOF)
// from one that has more data (ErrSizeLimit).
func (l *LimitedReader) pastLimit() error {
	var next [1]byte
	for {
		n, err := l.R.Read(next[:])
		if n > 0 {
			return ErrSizeLimit
		}
		if err != nil {
			return err
		}
	}
}

// NewLimitedReader creates a new LimitedReader with the specified size limit.
func NewLimitedReader(r io.Reader, maxBytes int64) *LimitedReader {
	return &LimitedReader{
		R:         r,
		Remaining: maxBytes,
	}
}

// isLocalOrPrivateHost checks if a hostname is localhost or a private,
// loopback or link-local IP address.
func isLocalOrPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	addr, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
