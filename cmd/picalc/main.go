// Command picalc benchmarks arbitrary-precision libraries by computing
// decimals of Pi with spigot-style series, locally or across cooperating
// processes. Run with -h for the full flag reference.
package main

import (
	"context"
	"os"

	"github.com/hpcbench/picalc/internal/app"
	apperrors "github.com/hpcbench/picalc/internal/errors"
)

func main() {
	os.Exit(run())
}

// run keeps os.Exit out of the call path so deferred cleanup inside the
// application always executes.
func run() int {
	// Fast path so --version works in any position, before flag parsing
	// can object to anything else on the command line.
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		return apperrors.ExitSuccess
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			return apperrors.ExitSuccess
		}
		// ParseConfig has already reported the problem on stderr.
		return apperrors.ExitCodeFor(err)
	}

	return application.Run(context.Background(), os.Stdout)
}
