package main

import (
	"fmt"
	"os"

	"github.com/kira-id/auto-readme-generator-in-batch/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the readme-batch command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
