package scm

import (
	"context"
	"io"
)

// MockProcessRunner is a mock implementation of ProcessRunner for testing.
type MockProcessRunner struct {
	// RunFunc allows tests to provide custom behavior
	RunFunc func(ctx context.Context, dir, path string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)

	// CallCount tracks how many times Run was called
	CallCount int

	// LastDir stores the last working directory passed to Run
	LastDir string

	// LastPath stores the last path passed to Run
	LastPath string

	// LastArgs stores the last args passed to Run
	LastArgs []string
}

// Run executes the mock behavior.
func (m *MockProcessRunner) Run(ctx context.Context, dir, path string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	m.CallCount++
	m.LastDir = dir
	m.LastPath = path
	m.LastArgs = args

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if m.RunFunc != nil {
		return m.RunFunc(ctx, dir, path, args, stdin)
	}

	return nil, nil, nil
}
