package dispatch

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-ps"
)

// DebugEnv enables a debug line on stderr describing each dispatch.
const DebugEnv = "ANIMA_EXEC_DEBUG"

// NewLogger returns the dispatcher's logger. It is silent unless DebugEnv
// is set, so wrapped binaries see exactly the output they produce themselves.
func NewLogger(out io.Writer) hclog.Logger {
	if !debugEnabled(os.Getenv(DebugEnv)) {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "anima-exec",
		Output: out,
		Level:  hclog.Debug,
	})
}

func debugEnabled(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// parentName returns the executable name of the parent process, or "" if
// it cannot be determined.
func parentName() string {
	p, err := ps.FindProcess(os.Getppid())
	if err != nil || p == nil {
		return ""
	}
	return p.Executable()
}
