package dispatch

import (
	"errors"
	"io/fs"
)

// Exit statuses used when the wrapped binary could not be started,
// following the shell conventions for "not found" and "not executable".
const (
	ExitNotFound      = 127
	ExitCannotExecute = 126
)

// Execer defines an interface for replacing the current process.
// This abstraction allows for dependency injection and easier testing.
type Execer interface {
	// Exec replaces the running process with path, passing argv and env.
	// It returns only on failure.
	Exec(path string, argv, env []string) error
}

// NewExecer creates the platform's process-replacing Execer.
func NewExecer() Execer {
	return newRealExecer()
}

// ExitCode maps an exec failure to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, fs.ErrNotExist) {
		return ExitNotFound
	}
	return ExitCannotExecute
}
