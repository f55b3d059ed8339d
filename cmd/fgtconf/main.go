// fgtconf parses, shows, exports and compares FortiGate configuration files.
package main

import (
	"os"

	"github.com/psaab/fgtconf/cmd/fgtconf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
