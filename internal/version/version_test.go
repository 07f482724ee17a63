package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	Version, Commit = "4.2.0", "unknown"
	got := String("anima-wheel")
	if !strings.HasPrefix(got, "anima-wheel version 4.2.0 (") {
		t.Errorf("String() = %q", got)
	}

	Commit = "0123456789abcdef"
	got = String("anima-wheel")
	if !strings.Contains(got, "commit: 01234567,") {
		t.Errorf("String() = %q, want short commit", got)
	}

	Commit = "abc"
	if strings.Contains(String("anima-wheel"), "commit") {
		t.Error("short commit should not be printed")
	}
}

func TestGenerator(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.0.0"
	if got := Generator(); got != "anima-wheel (1.0.0)" {
		t.Errorf("Generator() = %q", got)
	}
}
