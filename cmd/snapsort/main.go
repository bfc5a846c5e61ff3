package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"snapsort/internal/deps"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps failures to the documented exit codes: 2 for a broken
// environment, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, deps.ErrMissingDependency) {
		return 2
	}
	return 1
}
