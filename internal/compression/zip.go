package compression

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/ivadomed/anima-bin/internal/security"
)

// extractZip extracts every matching regular file from a zip archive.
func (e *Extractor) extractZip(data []byte, destDir string) (*ExtractResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zip reader: %w", err)
	}

	result := &ExtractResult{WasArchive: true}
	seen := make(map[string]string)

	for _, f := range zr.File {
		// Archives made on Windows may use backslashes.
		member := strings.ReplaceAll(f.Name, `\`, "/")
		if !f.Mode().IsRegular() || !e.Match(member) {
			continue
		}
		if err := security.ValidateFilePath(member, destDir); err != nil {
			return nil, fmt.Errorf("refusing archive member %q: %w", f.Name, err)
		}

		base := path.Base(member)
		if prev, ok := seen[base]; ok {
			return nil, fmt.Errorf("archive contains %s twice (%s and %s)", base, prev, member)
		}
		seen[base] = member

		dest, err := e.extractZipFile(f, base, destDir)
		if err != nil {
			return nil, err
		}
		result.Paths = append(result.Paths, dest)
	}

	if len(result.Paths) == 0 {
		return nil, fmt.Errorf("%w (patterns: %v)", ErrNoMatches, e.Patterns)
	}
	return result, nil
}

func (e *Extractor) extractZipFile(f *zip.File, base, destDir string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file in archive: %w", err)
	}
	defer rc.Close()

	return e.writeBinary(rc, base, destDir)
}
