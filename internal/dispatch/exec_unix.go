//go:build unix

package dispatch

import (
	"os"
	"syscall"
)

// RealExecer replaces the process image with execve(2). Stdio, the process
// ID and signal dispositions carry over to the wrapped binary.
type RealExecer struct{}

func newRealExecer() *RealExecer {
	return &RealExecer{}
}

// Exec implements Execer.
func (r *RealExecer) Exec(path string, argv, env []string) error {
	if err := syscall.Exec(path, argv, env); err != nil {
		return &os.PathError{Op: "exec", Path: path, Err: err}
	}
	return nil
}
