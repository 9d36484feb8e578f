// Command postbench checks POST label providers against each other and
// against fixed test vectors, and benchmarks them.
package main

import (
	"os"

	"github.com/roach88/postbench/internal/cli"
)

func main() {
	os.Exit(cli.Execute(&cli.Env{}, os.Args[1:]))
}
