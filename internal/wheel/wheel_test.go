package wheel

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivadomed/anima-bin/internal/tag"
)

func testMetadata() Metadata {
	return Metadata{
		Name:     "ivadomed-animaA",
		Version:  "4.2",
		Summary:  "ANIMA medical image processing program: animaA",
		HomePage: "https://github.com/ivadomed/anima-bin/",
		Author:   "Inria",
		License:  "AGPL 3+",
		ProjectURLs: []ProjectURL{
			{Label: "Homepage", URL: "https://github.com/ivadomed/anima-bin/"},
		},
		LicenseFile:            "License.txt",
		Description:            "# anima-bin\n",
		DescriptionContentType: "text/markdown",
	}
}

func readZip(t *testing.T, data []byte) map[string]*zip.File {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open wheel: %v", err)
	}
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return files
}

func readEntry(t *testing.T, f *zip.File) []byte {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("failed to open %s: %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read %s: %v", f.Name, err)
	}
	return data
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name, version string
		tag           tag.Tag
		expected      string
	}{
		{"ivadomed-animaA", "4.2", tag.Tag{Python: "py2.py3", ABI: "none", Platform: "linux_x86_64"}, "ivadomed_animaA-4.2-py2.py3-none-linux_x86_64.whl"},
		{"ivadomed-anima-bin", "4.2", tag.Pure, "ivadomed_anima_bin-4.2-py3-none-any.whl"},
		{"ivadomed-animaA", "4.3.dev2+gabc1234", tag.Pure, "ivadomed_animaA-4.3.dev2+gabc1234-py3-none-any.whl"},
		{"ivadomed-animaA", "4.3.dev2+gabc1234.d20261017", tag.Pure, "ivadomed_animaA-4.3.dev2+gabc1234.d20261017-py3-none-any.whl"},
		{"ivadomed-animaA", "4.2-rc1", tag.Pure, "ivadomed_animaA-4.2_rc1-py3-none-any.whl"},
	}
	for _, tt := range tests {
		if got := Filename(tt.name, tt.version, tt.tag); got != tt.expected {
			t.Errorf("Filename(%q, %q) = %q, want %q", tt.name, tt.version, got, tt.expected)
		}
	}
}

func TestMetadataBytes(t *testing.T) {
	m := testMetadata()
	m.Requires = []string{"ivadomed-animaA==4.2", "ivadomed-animaB==4.2"}
	got := string(m.Bytes())

	for _, line := range []string{
		"Metadata-Version: 2.1\n",
		"Name: ivadomed-animaA\n",
		"Version: 4.2\n",
		"Author: Inria\n",
		"License: AGPL 3+\n",
		"Project-URL: Homepage, https://github.com/ivadomed/anima-bin/\n",
		"Requires-Dist: ivadomed-animaA==4.2\n",
		"Requires-Dist: ivadomed-animaB==4.2\n",
		"Description-Content-Type: text/markdown\n",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("METADATA missing %q:\n%s", line, got)
		}
	}
	if !strings.HasSuffix(got, "\n\n# anima-bin\n") {
		t.Errorf("METADATA body not appended after a blank line:\n%s", got)
	}
}

func TestMetadataValidate(t *testing.T) {
	m := testMetadata()
	m.Summary = "two\nlines"
	if err := m.Validate(); err == nil {
		t.Error("expected error for multi-line summary")
	}
	if err := (Metadata{Version: "1"}).Validate(); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestWheelFileExpandsTags(t *testing.T) {
	got := string(wheelFile("anima-wheel (test)", false, tag.Tag{Python: "py2.py3", ABI: "none", Platform: "win_amd64"}))
	want := "Wheel-Version: 1.0\n" +
		"Generator: anima-wheel (test)\n" +
		"Root-Is-Purelib: false\n" +
		"Tag: py2-none-win_amd64\n" +
		"Tag: py3-none-win_amd64\n"
	if got != want {
		t.Errorf("WHEEL =\n%s\nwant\n%s", got, want)
	}
}

func TestWriterProducesValidRecord(t *testing.T) {
	src := filepath.Join(t.TempDir(), "animaA")
	payload := []byte("\x7fELF fake binary")
	if err := os.WriteFile(src, payload, 0o755); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, testMetadata(), Options{
		Tag: tag.Tag{Python: "py2.py3", ABI: "none", Platform: "linux_x86_64"},
	})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	script := w.DataPath(SchemeScripts, "animaA")
	data := w.DataPath(SchemeData, "libexec/anima/animaA")
	if err := w.AddBytes(script, []byte("dispatcher"), 0o755); err != nil {
		t.Fatalf("AddBytes failed: %v", err)
	}
	if err := w.AddFile(data, src, 0o755); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if err := w.AddBytes(w.DistInfoPath("License.txt"), []byte("AGPL"), 0o644); err != nil {
		t.Fatalf("AddBytes failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	files := readZip(t, buf.Bytes())
	for _, name := range []string{
		"ivadomed_animaA-4.2.data/scripts/animaA",
		"ivadomed_animaA-4.2.data/data/libexec/anima/animaA",
		"ivadomed_animaA-4.2.dist-info/License.txt",
		"ivadomed_animaA-4.2.dist-info/METADATA",
		"ivadomed_animaA-4.2.dist-info/WHEEL",
		"ivadomed_animaA-4.2.dist-info/RECORD",
	} {
		if _, ok := files[name]; !ok {
			t.Errorf("wheel missing %s", name)
		}
	}

	if mode := files[data].Mode(); mode.Perm() != 0o755 {
		t.Errorf("payload mode = %v, want 0755", mode)
	}
	if !files[data].Modified.Equal(DefaultModTime) {
		t.Errorf("payload mtime = %v, want %v", files[data].Modified, DefaultModTime)
	}

	rows, err := csv.NewReader(bytes.NewReader(readEntry(t, files["ivadomed_animaA-4.2.dist-info/RECORD"]))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse RECORD: %v", err)
	}
	if len(rows) != len(files) {
		t.Errorf("RECORD has %d rows, archive has %d files", len(rows), len(files))
	}
	for _, row := range rows {
		name, hashField := row[0], row[1]
		if strings.HasSuffix(name, "/RECORD") {
			if hashField != "" || row[2] != "" {
				t.Errorf("RECORD line for itself must be empty, got %v", row)
			}
			continue
		}
		sum := sha256.Sum256(readEntry(t, files[name]))
		want := "sha256=" + base64.RawURLEncoding.EncodeToString(sum[:])
		if hashField != want {
			t.Errorf("RECORD hash for %s = %s, want %s", name, hashField, want)
		}
	}
}

func TestWriterKeepsLocalVersion(t *testing.T) {
	const ver = "4.3.dev2+gabc1234"
	meta := testMetadata()
	meta.Version = ver

	name := Filename(meta.Name, ver, tag.Pure)
	fileVersion := strings.Split(strings.TrimSuffix(name, ".whl"), "-")[1]
	if fileVersion != ver {
		t.Errorf("file name version = %q, want %q", fileVersion, ver)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, meta, Options{Tag: tag.Pure, Pure: true})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.AddBytes(w.DataPath(SchemeScripts, "animaA"), []byte("dispatcher"), 0o755); err != nil {
		t.Fatalf("AddBytes failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	files := readZip(t, buf.Bytes())
	for _, entry := range []string{
		"ivadomed_animaA-4.3.dev2+gabc1234.data/scripts/animaA",
		"ivadomed_animaA-4.3.dev2+gabc1234.dist-info/METADATA",
		"ivadomed_animaA-4.3.dev2+gabc1234.dist-info/RECORD",
	} {
		if _, ok := files[entry]; !ok {
			t.Errorf("wheel missing %s", entry)
		}
	}

	metadata := string(readEntry(t, files["ivadomed_animaA-4.3.dev2+gabc1234.dist-info/METADATA"]))
	if !strings.Contains(metadata, "Version: "+ver+"\n") {
		t.Errorf("METADATA does not carry version %s:\n%s", ver, metadata)
	}
}

func TestWriterRejectsBadEntries(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testMetadata(), Options{Tag: tag.Pure, Pure: true})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	if err := w.AddBytes("../evil", nil, 0o644); err == nil {
		t.Error("expected error for traversal entry")
	}
	if err := w.AddBytes("a.txt", nil, 0o644); err != nil {
		t.Fatalf("AddBytes failed: %v", err)
	}
	if err := w.AddBytes("a.txt", nil, 0o644); err == nil {
		t.Error("expected error for duplicate entry")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.AddBytes("b.txt", nil, 0o644); err == nil {
		t.Error("expected error after Close")
	}
}

func TestWriterIsReproducible(t *testing.T) {
	build := func() []byte {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, testMetadata(), Options{
			Tag:     tag.Pure,
			Pure:    true,
			ModTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("NewWriter failed: %v", err)
		}
		if err := w.AddBytes("x.txt", []byte("x"), 0o644); err != nil {
			t.Fatalf("AddBytes failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		return buf.Bytes()
	}

	if !bytes.Equal(build(), build()) {
		t.Error("two builds with identical input differ")
	}
}
