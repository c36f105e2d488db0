package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/distaudit/cmd/cli"
	"github.com/temirov/distaudit/internal/audit"
)

const (
	exitErrorTemplateConstant        = "%v\n"
	failureExitCodeConstant          = 1
	differencesFoundExitCodeConstant = 2
)

// main executes the distaudit command-line application.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
	if errors.Is(executionError, audit.ErrDifferencesDetected) {
		os.Exit(differencesFoundExitCodeConstant)
	}
	os.Exit(failureExitCodeConstant)
}
