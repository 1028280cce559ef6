// Command instbench runs the instrumented matmul benchmarks from the
// command line, or serves them to a host process over the cinterop bridge.
package main

import (
	"fmt"
	"os"

	"github.com/nersc/instbench/errors"
)

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err != errNoResult {
			fmt.Fprintln(os.Stderr, "instbench:", errors.GetMessage(err))
		}
		os.Exit(1)
	}
}
