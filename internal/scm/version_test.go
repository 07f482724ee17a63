package scm

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, 5, 1, 15, 4, 5, 0, time.UTC)

func TestParseDescribe(t *testing.T) {
	tests := []struct {
		out      string
		expected Description
	}{
		{"v4.2-0-g1a2b3c4", Description{Tag: "v4.2", Distance: 0, Node: "1a2b3c4"}},
		{"4.2.1-12-gdeadbeef-dirty", Description{Tag: "4.2.1", Distance: 12, Node: "deadbeef", Dirty: true}},
		{"release-4-2-3-gabc1234", Description{Tag: "release-4-2", Distance: 3, Node: "abc1234"}},
	}

	for _, tt := range tests {
		got, err := ParseDescribe(tt.out)
		if err != nil {
			t.Errorf("ParseDescribe(%q) failed: %v", tt.out, err)
			continue
		}
		if *got != tt.expected {
			t.Errorf("ParseDescribe(%q) = %+v, want %+v", tt.out, *got, tt.expected)
		}
	}

	for _, bad := range []string{"", "v4.2", "1a2b3c4", "v4.2-x-g123"} {
		if _, err := ParseDescribe(bad); err == nil {
			t.Errorf("ParseDescribe(%q) expected error", bad)
		}
	}
}

func TestDescriptionVersion(t *testing.T) {
	tests := []struct {
		name     string
		desc     Description
		expected string
	}{
		{"exact tag", Description{Tag: "v4.2", Node: "1a2b3c4"}, "4.2"},
		{"exact tag without prefix", Description{Tag: "4.2.1", Node: "1a2b3c4"}, "4.2.1"},
		{"after tag", Description{Tag: "v4.2", Distance: 3, Node: "1a2b3c4"}, "4.3.dev3+g1a2b3c4"},
		{"dirty on tag", Description{Tag: "v4.2", Node: "1a2b3c4", Dirty: true}, "4.3.dev0+g1a2b3c4.d20240501"},
		{"dirty after tag", Description{Tag: "v4.2.9", Distance: 1, Node: "abc", Dirty: true}, "4.2.10.dev1+gabc.d20240501"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.desc.Version(testNow)
			if err != nil {
				t.Fatalf("Version failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Version = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDescriptionVersionNonNumericTag(t *testing.T) {
	d := Description{Tag: "v4.2-beta", Distance: 2, Node: "abc"}
	if _, err := d.Version(testNow); err == nil {
		t.Error("expected error for tag without numeric last component")
	}
}

func TestResolveUsesGit(t *testing.T) {
	mock := &MockProcessRunner{
		RunFunc: func(_ context.Context, _, _ string, _ []string, _ io.Reader) ([]byte, []byte, error) {
			return []byte("v4.2-2-gfeedbee\n"), nil, nil
		},
	}

	got, err := Resolve(context.Background(), mock, "/src/anima-bin", "", testNow)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "4.3.dev2+gfeedbee" {
		t.Errorf("Resolve = %q", got)
	}
	if mock.LastPath != "git" || mock.LastDir != "/src/anima-bin" {
		t.Errorf("ran %q in %q", mock.LastPath, mock.LastDir)
	}
	if strings.Join(mock.LastArgs, " ") != "describe --tags --long --dirty --match *[0-9]*" {
		t.Errorf("unexpected git args: %v", mock.LastArgs)
	}
}

func TestResolveOverrideSkipsGit(t *testing.T) {
	mock := &MockProcessRunner{}

	got, err := Resolve(context.Background(), mock, ".", "4.2", testNow)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "4.2" {
		t.Errorf("Resolve = %q, want 4.2", got)
	}
	if mock.CallCount != 0 {
		t.Errorf("expected git not to run, got %d calls", mock.CallCount)
	}
}

func TestResolveGitFailure(t *testing.T) {
	mock := &MockProcessRunner{
		RunFunc: func(_ context.Context, _, _ string, _ []string, _ io.Reader) ([]byte, []byte, error) {
			return nil, []byte("fatal: No names found, cannot describe anything.\n"), errors.New("exit status 128")
		},
	}

	_, err := Resolve(context.Background(), mock, ".", "", testNow)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "No names found") {
		t.Errorf("error does not carry git stderr: %v", err)
	}
}
