package main

import (
	"fmt"
	"os"

	"github.com/fuzzhead/fuzzhead/cmd"
	"github.com/fuzzhead/fuzzhead/cmd/exitcodes"
)

func main() {
	// Run our root CLI command, which contains all underlying command logic and will handle parsing/invocation.
	err := cmd.Execute()

	// Obtain the actual error and exit code from the error, if any.
	err, exitCode := exitcodes.GetInnerErrorAndExitCode(err)

	// If we have an error that was not already reported through the logger, print it.
	if err != nil && exitCode != exitcodes.ExitCodeHandledError && exitCode != exitcodes.ExitCodeSetupError {
		fmt.Println(err)
	}

	// If we have a non-success exit code, exit with it.
	if exitCode != exitcodes.ExitCodeSuccess {
		os.Exit(exitCode)
	}
}
