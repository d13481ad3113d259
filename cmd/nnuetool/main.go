// Command nnuetool generates, inspects, verifies and benchmarks quantized
// NNUE layer stacks, and keeps network files in a local store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
