package dispatch

// MockExecer is a mock implementation of Execer for testing.
type MockExecer struct {
	// ExecFunc allows tests to provide custom behavior
	ExecFunc func(path string, argv, env []string) error

	// CallCount tracks how many times Exec was called
	CallCount int

	// LastPath stores the last path passed to Exec
	LastPath string

	// LastArgv stores the last argv passed to Exec
	LastArgv []string

	// LastEnv stores the last env passed to Exec
	LastEnv []string
}

// Exec records the call and runs ExecFunc if set.
func (m *MockExecer) Exec(path string, argv, env []string) error {
	m.CallCount++
	m.LastPath = path
	m.LastArgv = argv
	m.LastEnv = env

	if m.ExecFunc != nil {
		return m.ExecFunc(path, argv, env)
	}
	return nil
}
