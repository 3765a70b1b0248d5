// Package editor provides utilities for launching the user's preferred text editor.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/cockroachdb/errors"
)

// Open launches the user's preferred editor for the given path and blocks
// until it exits or ctx expires. An explicit override (from configuration)
// wins; otherwise the chain is $EDITOR, $VISUAL, nano, vi.
func Open(ctx context.Context, path, override string) error {
	editorCmd := detectEditor(override)

	fmt.Printf("Opening: %s\n", path)

	cmd := exec.CommandContext(ctx, editorCmd, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "editor session expired")
		}
		return errors.Wrap(err, "running editor")
	}

	return nil
}

// detectEditor returns the editor command to use based on the override,
// environment variables, and available binaries.
func detectEditor(override string) string {
	if override != "" {
		return override
	}

	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}

	// $VISUAL for full-screen editors
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}

	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}

	// vi is available on all Unix systems
	return "vi"
}
