package compression

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/ivadomed/anima-bin/internal/security"
)

// extractTar extracts every matching regular file from a tar stream.
func (e *Extractor) extractTar(r io.Reader, destDir string) (*ExtractResult, error) {
	tr := tar.NewReader(r)
	result := &ExtractResult{WasArchive: true}
	seen := make(map[string]string)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar archive: %w", err)
		}

		if header.Typeflag != tar.TypeReg || !e.Match(header.Name) {
			continue
		}
		if err := security.ValidateFilePath(header.Name, destDir); err != nil {
			return nil, fmt.Errorf("refusing archive member %q: %w", header.Name, err)
		}

		base := path.Base(header.Name)
		if prev, ok := seen[base]; ok {
			return nil, fmt.Errorf("archive contains %s twice (%s and %s)", base, prev, header.Name)
		}
		seen[base] = header.Name

		dest, err := e.writeBinary(tr, base, destDir)
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
