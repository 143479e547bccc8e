package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"warden/internal/launcher"
)

// Exit codes automation can branch on without parsing output.
const (
	exitOK             = 0
	exitFailure        = 1
	exitDisabled       = 2
	exitAlreadyRunning = 3
	exitNotRunning     = 4
)

func main() {
	cmd := newRootCommand()
	os.Exit(run(cmd.Execute()))
}

func run(err error) int {
	if err == nil {
		return exitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.message != "" {
			fmt.Fprintln(os.Stderr, exit.message)
		}
		return exit.code
	}

	var running *launcher.AlreadyRunningError
	switch {
	case errors.As(err, &running):
		fmt.Fprintln(os.Stderr, err)
		return exitAlreadyRunning
	case errors.Is(err, launcher.ErrNotRunning), errors.Is(err, launcher.ErrStalePid):
		fmt.Fprintln(os.Stderr, err)
		return exitNotRunning
	case errors.Is(err, context.Canceled):
		return exitFailure
	}

	fmt.Fprintln(os.Stderr, err)
	return exitFailure
}

// exitError carries a specific exit code out of a command. An empty message
// means the command already reported the outcome on stdout.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}
