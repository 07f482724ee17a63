// Package dispatch turns the running process into the wrapped ANIMA binary
// whose name it was invoked under.
//
// Every console command installed by an anima-bin wheel is a copy of the
// same dispatcher executable. The dispatcher looks at argv[0], strips any
// directory prefix from it, and execs the same-named binary from a fixed
// directory next to its own installed location:
//
//	<prefix>/bin/animaDenoising            (dispatcher)
//	<prefix>/libexec/anima/animaDenoising  (wrapped binary)
//
// Only this one lookup strategy is supported. Installations that split
// scripts and data across different roots cannot be resolved.
package dispatch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hashicorp/go-hclog"
)

// BinDir is the directory holding the wrapped binaries, relative to the
// directory containing the dispatcher itself.
var BinDir = filepath.Join("..", "libexec", "anima")

// ErrInvalidName is returned when argv[0] has no usable final component.
var ErrInvalidName = errors.New("invalid invocation name")

// Dispatcher resolves and execs wrapped binaries.
type Dispatcher struct {
	// Self is the resolved path of the dispatcher's own executable.
	Self string
	// BinDir is joined onto the directory of Self. Defaults to BinDir.
	BinDir string
	// GOOS controls executable naming. Defaults to runtime.GOOS.
	GOOS string
	// Execer performs the process replacement.
	Execer Execer
	// Logger receives a single debug line per dispatch.
	Logger hclog.Logger
}

// New creates a Dispatcher for the running executable.
func New(logger hclog.Logger) (*Dispatcher, error) {
	self, err := SelfPath()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Dispatcher{
		Self:   self,
		BinDir: BinDir,
		GOOS:   runtime.GOOS,
		Execer: NewExecer(),
		Logger: logger,
	}, nil
}

// SelfPath returns the path of the running executable with symlinks resolved,
// so a command symlinked onto $PATH still finds its real install directory.
func SelfPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate dispatcher executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve dispatcher executable: %w", err)
	}
	return resolved, nil
}

// Sanitize returns a copy of args whose first element is reduced to its
// final path component. The caller controls argv[0], and the wrapped binary
// must never see the path it was reached through.
func Sanitize(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty argument list", ErrInvalidName)
	}
	name := filepath.Base(args[0])
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, args[0])
	}

	out := make([]string, len(args))
	copy(out, args)
	out[0] = name
	return out, nil
}

// Resolve returns the path of the wrapped binary for a sanitized name.
func (d *Dispatcher) Resolve(name string) string {
	binDir := d.BinDir
	if binDir == "" {
		binDir = BinDir
	}
	return filepath.Join(filepath.Dir(d.Self), binDir, ExecutableName(name, d.goos()))
}

// Run sanitizes args, resolves the target and execs it with env.
// It only returns if the exec failed.
func (d *Dispatcher) Run(args, env []string) error {
	argv, err := Sanitize(args)
	if err != nil {
		return err
	}
	target := d.Resolve(argv[0])

	if d.Logger != nil && d.Logger.IsDebug() {
		d.Logger.Debug("dispatching", "name", argv[0], "target", target, "args", len(argv)-1, "parent", parentName())
	}

	return d.Execer.Exec(target, argv, env)
}

func (d *Dispatcher) goos() string {
	if d.GOOS == "" {
		return runtime.GOOS
	}
	return d.GOOS
}

// ExecutableName computes the file name of a wrapped binary invoked as name
// on goos. Windows shells drop ".exe" from argv[0], so it is put back.
func ExecutableName(name, goos string) string {
	if goos == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}

// Main runs the dispatcher for the current process and returns the exit
// status to use if the exec failed. Debug output goes to stderr when
// ANIMA_EXEC_DEBUG is set.
func Main(args, env []string, stderr io.Writer) int {
	d, err := New(NewLogger(stderr))
	if err != nil {
		fmt.Fprintf(stderr, "anima-exec: %v\n", err)
		return ExitCannotExecute
	}
	return d.Main(args, env, stderr)
}

// Main runs d and reports a failed exec on stderr.
func (d *Dispatcher) Main(args, env []string, stderr io.Writer) int {
	if err := d.Run(args, env); err != nil {
		name := "anima-exec"
		if len(args) > 0 {
			name = filepath.Base(args[0])
		}
		fmt.Fprintf(stderr, "anima-exec: %s: %v\n", name, err)
		return ExitCode(err)
	}
	return 0
}
