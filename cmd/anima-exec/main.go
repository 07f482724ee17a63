// anima-exec - console command dispatcher for anima-bin wheels
//
// Every console command installed by an anima-bin wheel is this program.
// It execs the ANIMA binary of the same name from <prefix>/libexec/anima,
// forwarding all arguments. It has no flags of its own.
package main

import (
	"os"

	"github.com/ivadomed/anima-bin/internal/dispatch"
)

func main() {
	os.Exit(dispatch.Main(os.Args, os.Environ(), os.Stderr))
}
