//go:build windows

package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const (
	modeEnv = "ANIMA_DISPATCH_TEST_MODE"
	selfEnv = "ANIMA_DISPATCH_TEST_SELF"
	codeEnv = "ANIMA_DISPATCH_TEST_CODE"
)

// TestMain lets the test binary stand in for both the dispatcher and the
// wrapped binary it spawns.
func TestMain(m *testing.M) {
	switch os.Getenv(modeEnv) {
	case "echo":
		_ = json.NewEncoder(os.Stdout).Encode(os.Args)
		code, _ := strconv.Atoi(os.Getenv(codeEnv))
		os.Exit(code)
	case "dispatch":
		d := &Dispatcher{Self: os.Getenv(selfEnv), Execer: NewExecer()}
		env := []string{modeEnv + "=echo"}
		for _, kv := range os.Environ() {
			if !strings.HasPrefix(strings.ToUpper(kv), modeEnv+"=") {
				env = append(env, kv)
			}
		}
		os.Exit(d.Main(os.Args, env, os.Stderr))
	}
	os.Exit(m.Run())
}

// installEcho lays out <root>\bin and <root>\libexec\anima with a copy of
// the test binary installed as name.exe, and returns the dispatcher path.
func installEcho(t *testing.T, name string) (self, target string) {
	t.Helper()
	root := t.TempDir()
	binDir := filepath.Join(root, "libexec", "anima")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("Failed to create bin dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		t.Fatalf("Failed to create scripts dir: %v", err)
	}

	testExe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	data, err := os.ReadFile(testExe)
	if err != nil {
		t.Fatalf("Failed to read test binary: %v", err)
	}
	target = filepath.Join(binDir, name+".exe")
	if err := os.WriteFile(target, data, 0o755); err != nil {
		t.Fatalf("Failed to install wrapped binary: %v", err)
	}
	return filepath.Join(root, "bin", "anima-exec.exe"), target
}

func runDispatcher(t *testing.T, self string, code int, argv ...string) (stdout, stderr string, exit int) {
	t.Helper()
	testExe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}

	cmd := exec.Command(testExe)
	cmd.Args = argv
	cmd.Env = append(os.Environ(), modeEnv+"=dispatch", selfEnv+"="+self, codeEnv+"="+strconv.Itoa(code))
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	err = cmd.Run()
	exitErr := &exec.ExitError{}
	if errors.As(err, &exitErr) {
		return out.String(), errOut.String(), exitErr.ExitCode()
	}
	if err != nil {
		t.Fatalf("failed to run dispatcher: %v", err)
	}
	return out.String(), errOut.String(), 0
}

func TestSpawnEndToEnd(t *testing.T) {
	self, _ := installEcho(t, "animaEcho")

	stdout, stderr, code := runDispatcher(t, self, 0, `C:\caller\chosen\animaEcho`, "-i", "in put.nii")
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}

	var got []string
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("failed to decode wrapped binary output %q: %v", stdout, err)
	}
	want := []string{"animaEcho", "-i", "in put.nii"}
	if strings.Join(got, "\x00") != strings.Join(want, "\x00") {
		t.Errorf("wrapped binary saw %q, want %q", got, want)
	}
}

func TestSpawnPropagatesExitCode(t *testing.T) {
	self, _ := installEcho(t, "animaEcho")

	for _, want := range []int{1, 3, 42} {
		_, stderr, code := runDispatcher(t, self, want, "animaEcho")
		if code != want {
			t.Errorf("exit code = %d, want %d (stderr: %s)", code, want, stderr)
		}
	}
}

func TestRealExecerReportsChildExitCode(t *testing.T) {
	_, target := installEcho(t, "animaEcho")

	got := -1
	r := &RealExecer{exit: func(code int) { got = code }}
	env := append(os.Environ(), modeEnv+"=echo", codeEnv+"=7")
	if err := r.Exec(target, []string{"animaEcho"}, env); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if got != 7 {
		t.Errorf("exit code = %d, want 7", got)
	}
}

func TestSpawnMissingTargetFails(t *testing.T) {
	self, _ := installEcho(t, "animaEcho")

	_, stderr, code := runDispatcher(t, self, 0, "animaMissing", "x")
	if code != ExitNotFound {
		t.Errorf("exit code = %d, want %d", code, ExitNotFound)
	}
	if !strings.Contains(stderr, "animaMissing") {
		t.Errorf("stderr does not name the command: %q", stderr)
	}
}

func TestRealExecerMissingFile(t *testing.T) {
	err := NewExecer().Exec(filepath.Join(t.TempDir(), "nope.exe"), []string{"nope"}, nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if ExitCode(err) != ExitNotFound {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitNotFound)
	}
}
