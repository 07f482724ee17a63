// anima-wheel packages pre-built ANIMA executables as Python wheels.
//
// Each binary is shipped in its own wheel together with a copy of the
// anima-exec dispatcher installed as its console command. An umbrella wheel
// depends on every binary wheel at the same version.
package main

import (
	"os"

	"github.com/ivadomed/anima-bin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
