//go:build windows

package dispatch

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
)

// RealExecer emulates process replacement on Windows, which has no execve:
// the wrapped binary runs as a child sharing the console and stdio, and the
// dispatcher exits with the child's exit code.
type RealExecer struct {
	exit func(code int)
}

func newRealExecer() *RealExecer {
	return &RealExecer{exit: os.Exit}
}

// Exec implements Execer.
func (r *RealExecer) Exec(path string, argv, env []string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	cmd := exec.Command(path)
	cmd.Args = argv
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Ctrl+C reaches every process attached to the console, so the child
	// already receives it. The dispatcher only has to survive until the
	// child is done.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	if err := cmd.Start(); err != nil {
		return &os.PathError{Op: "exec", Path: path, Err: err}
	}

	err := cmd.Wait()
	exitErr := &exec.ExitError{}
	switch {
	case err == nil:
		r.exit(0)
	case errors.As(err, &exitErr):
		r.exit(exitErr.ExitCode())
	default:
		return err
	}
	return nil
}
