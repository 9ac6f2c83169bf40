// Command connector runs the demo connector and queries running connectors.
package main

import (
	"os"
)

var version = "dev"

func main() {
	if err := newRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
