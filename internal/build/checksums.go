package build

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumsFile is written next to the wheels it describes.
const ChecksumsFile = "checksums.yaml"

// Checksums records BLAKE3 digests of built wheels, keyed by file name.
type Checksums struct {
	Algorithm string            `yaml:"algorithm"`
	Files     map[string]string `yaml:"files"`
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	f, err := os.Open(filePath) // #nosec G304 - hashing files we just built
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksums hashes wheels and merges them into dir/checksums.yaml,
// keeping entries for wheels built by earlier runs.
func WriteChecksums(dir string, wheels []string) (string, error) {
	sums, err := ReadChecksums(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if sums == nil {
		sums = &Checksums{}
	}
	sums.Algorithm = "blake3"
	if sums.Files == nil {
		sums.Files = make(map[string]string)
	}

	for _, w := range wheels {
		sum, err := ComputeBlake3Hash(w)
		if err != nil {
			return "", fmt.Errorf("failed to hash %s: %w", filepath.Base(w), err)
		}
		sums.Files[filepath.Base(w)] = sum
	}

	data, err := yaml.Marshal(sums)
	if err != nil {
		return "", fmt.Errorf("failed to encode checksums: %w", err)
	}
	out := filepath.Join(dir, ChecksumsFile)
	if err := os.WriteFile(out, data, 0o644); err != nil { // #nosec G306 - checksums are published with the wheels
		return "", fmt.Errorf("failed to write checksums: %w", err)
	}
	return out, nil
}

// ReadChecksums loads dir/checksums.yaml.
func ReadChecksums(dir string) (*Checksums, error) {
	data, err := os.ReadFile(filepath.Join(dir, ChecksumsFile))
	if err != nil {
		return nil, err
	}
	var sums Checksums
	if err := yaml.Unmarshal(data, &sums); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ChecksumsFile, err)
	}
	return &sums, nil
}

// VerifyChecksums re-hashes every wheel listed in dir/checksums.yaml and
// returns the names of those that are missing or differ.
func VerifyChecksums(dir string) ([]string, error) {
	sums, err := ReadChecksums(dir)
	if err != nil {
		return nil, err
	}
	if sums.Algorithm != "blake3" {
		return nil, fmt.Errorf("unsupported checksum algorithm %q", sums.Algorithm)
	}

	names := make([]string, 0, len(sums.Files))
	for name := range sums.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	var bad []string
	for _, name := range names {
		actual, err := ComputeBlake3Hash(filepath.Join(dir, name))
		if err != nil || actual != sums.Files[name] {
			bad = append(bad, name)
		}
	}
	return bad, nil
}
