// Package main is the entry point for the truffaldino CLI.
package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/thoreinstein/truffaldino/cmd/truffaldino/commands"
	"github.com/thoreinstein/truffaldino/internal/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var exitErr *errors.ExitError
		if stderrors.As(err, &exitErr) {
			if exitErr.Suggestion != "" {
				fmt.Fprintf(os.Stderr, "Hint: %s\n", exitErr.Suggestion)
			}
			os.Exit(exitErr.Code)
		}
		os.Exit(errors.ExitUser)
	}
}
