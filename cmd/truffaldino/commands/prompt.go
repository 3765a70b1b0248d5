package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/truffaldino/internal/apps"
	trerrors "github.com/thoreinstein/truffaldino/internal/errors"
	"github.com/thoreinstein/truffaldino/internal/prompt"
)

var (
	promptFrom string
	promptTo   []string
)

func init() {
	promptSyncCmd.Flags().StringVar(&promptFrom, "from", "", "source application")
	promptSyncCmd.Flags().StringSliceVar(&promptTo, "to", nil,
		"target application(s) (default: all other prompt-capable apps)")
	promptCmd.AddCommand(promptSyncCmd)
	rootCmd.AddCommand(promptCmd)
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage system prompt files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var promptSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy a system prompt file to other applications",
	Long: `Copy one application's system prompt file to other applications that
keep one. Prompts are copied byte for byte; existing target prompts are
snapshotted first.`,
	Example: `  # Copy Cursor's prompt everywhere it applies
  truffaldino prompt sync --from cursor

  # Copy only to Cline
  truffaldino prompt sync --from cursor --to cline`,
	RunE: runPromptSync,
}

func runPromptSync(cmd *cobra.Command, _ []string) error {
	return runPromptSyncWithWriter(cmd.OutOrStdout())
}

func runPromptSyncWithWriter(w io.Writer) error {
	if promptFrom == "" {
		return trerrors.NewUserError(errors.New("--from is required"),
			fmt.Sprintf("Prompt-capable applications: %s", strings.Join(promptApps(), ", ")))
	}

	source, err := apps.Get(promptFrom)
	if err != nil {
		return trerrors.NewUserError(err,
			fmt.Sprintf("Valid applications: %s", strings.Join(apps.IDs(), ", ")))
	}
	if !source.SupportsPrompt {
		return trerrors.NewUserError(
			errors.Wrapf(prompt.ErrPromptUnsupported, "%s", source.ID),
			fmt.Sprintf("Prompt-capable applications: %s", strings.Join(promptApps(), ", ")))
	}

	var targets []apps.Descriptor
	if len(promptTo) > 0 {
		for _, id := range promptTo {
			desc, err := apps.Get(id)
			if err != nil {
				return trerrors.NewUserError(err,
					fmt.Sprintf("Valid applications: %s", strings.Join(apps.IDs(), ", ")))
			}
			targets = append(targets, desc)
		}
	} else {
		for _, desc := range apps.All() {
			if desc.SupportsPrompt && desc.ID != source.ID {
				targets = append(targets, desc)
			}
		}
	}
	if len(targets) == 0 {
		return trerrors.NewUserError(errors.New("no target applications"), "")
	}

	store := backupStore()
	failed := false
	for _, target := range targets {
		result, err := prompt.Copy(store, source, target)
		if err != nil {
			failed = true
			errorColor.Fprintf(w, "✗ %s: %v\n", target.ID, err)
			continue
		}
		successColor.Fprintf(w, "✓ %s (%d bytes)\n", target.ID, result.Size)
		if result.Snapshot != nil {
			dimColor.Fprintf(w, "  previous prompt snapshotted: %s\n", result.Snapshot.Timestamp)
		}
	}

	if failed {
		return trerrors.NewExitError(errors.New("one or more prompt copies failed"), trerrors.ExitSystem)
	}
	return nil
}

// promptApps lists the IDs of applications that keep a system prompt file.
func promptApps() []string {
	var ids []string
	for _, d := range apps.All() {
		if d.SupportsPrompt {
			ids = append(ids, d.ID)
		}
	}
	return ids
}
