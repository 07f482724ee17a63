package wheel

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/ivadomed/anima-bin/internal/security"
	"github.com/ivadomed/anima-bin/internal/tag"
)

// Data schemes understood by installers for files under the .data directory.
const (
	SchemeScripts = "scripts"
	SchemeData    = "data"
)

// DefaultModTime is the timestamp of every entry unless overridden. It is the
// earliest time a zip header can represent.
var DefaultModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options configures a Writer.
type Options struct {
	Tag tag.Tag
	// Pure sets Root-Is-Purelib.
	Pure bool
	// Generator is written to the WHEEL file.
	Generator string
	// ModTime is applied to every entry. Zero means DefaultModTime.
	ModTime time.Time
}

type recordEntry struct {
	name string
	hash string
	size int64
}

// Writer streams a wheel archive. Payload files are added first; Close
// appends the dist-info files and the RECORD.
type Writer struct {
	zw       *zip.Writer
	meta     Metadata
	opts     Options
	distInfo string
	data     string
	records  []recordEntry
	seen     map[string]bool
	closed   bool
}

// NewWriter creates a Writer that writes the archive to w.
func NewWriter(w io.Writer, meta Metadata, opts Options) (*Writer, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if opts.ModTime.IsZero() || opts.ModTime.Before(DefaultModTime) {
		opts.ModTime = DefaultModTime
	}
	if opts.Generator == "" {
		opts.Generator = "anima-wheel"
	}
	return &Writer{
		zw:       zip.NewWriter(w),
		meta:     meta,
		opts:     opts,
		distInfo: DistInfoDir(meta.Name, meta.Version),
		data:     DataDir(meta.Name, meta.Version),
		seen:     make(map[string]bool),
	}, nil
}

// DataPath returns the archive path of a file installed under a data scheme.
func (w *Writer) DataPath(scheme, name string) string {
	return path.Join(w.data, scheme, name)
}

// DistInfoPath returns the archive path of a file inside .dist-info.
func (w *Writer) DistInfoPath(name string) string {
	return path.Join(w.distInfo, name)
}

// AddBytes adds an in-memory file.
func (w *Writer) AddBytes(name string, data []byte, mode fs.FileMode) error {
	return w.add(name, mode, func(dst io.Writer) (int64, error) {
		n, err := dst.Write(data)
		return int64(n), err
	})
}

// AddFile adds the file at src under name, streaming its content.
func (w *Writer) AddFile(name, src string, mode fs.FileMode) error {
	f, err := os.Open(src) // #nosec G304 - build inputs are chosen by the user
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	return w.add(name, mode, func(dst io.Writer) (int64, error) {
		return io.Copy(dst, f)
	})
}

func (w *Writer) add(name string, mode fs.FileMode, write func(io.Writer) (int64, error)) error {
	if w.closed {
		return fmt.Errorf("wheel writer is closed")
	}
	if err := security.ValidateArchiveName(name); err != nil {
		return err
	}
	if w.seen[name] {
		return fmt.Errorf("duplicate archive entry %q", name)
	}
	w.seen[name] = true

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.opts.ModTime,
	}
	header.SetMode(mode)

	out, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}

	h := sha256.New()
	size, err := write(io.MultiWriter(out, h))
	if err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}

	w.records = append(w.records, recordEntry{name: name, hash: digest(h), size: size})
	return nil
}

// Close writes METADATA, WHEEL and RECORD and finishes the archive.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	if err := w.AddBytes(w.DistInfoPath("METADATA"), w.meta.Bytes(), 0o644); err != nil {
		return err
	}
	if err := w.AddBytes(w.DistInfoPath("WHEEL"), wheelFile(w.opts.Generator, w.opts.Pure, w.opts.Tag), 0o644); err != nil {
		return err
	}
	if err := w.writeRecord(); err != nil {
		return err
	}

	w.closed = true
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("failed to finish wheel archive: %w", err)
	}
	return nil
}

func (w *Writer) writeRecord() error {
	name := w.DistInfoPath("RECORD")
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.opts.ModTime,
	}
	header.SetMode(0o644)

	out, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}

	cw := csv.NewWriter(out)
	for _, r := range w.records {
		if err := cw.Write([]string{r.name, "sha256=" + r.hash, fmt.Sprint(r.size)}); err != nil {
			return fmt.Errorf("failed to write RECORD: %w", err)
		}
	}
	// RECORD cannot hash itself.
	if err := cw.Write([]string{name, "", ""}); err != nil {
		return fmt.Errorf("failed to write RECORD: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// digest encodes a hash the way RECORD expects: urlsafe base64, no padding.
func digest(h hash.Hash) string {
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
