// Command pdf-renew runs the renewal workflow from the command line.
package main

import (
	"fmt"
	"os"
)

var version = "dev" // This will be set by build flags

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
