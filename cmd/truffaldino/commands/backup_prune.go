package commands

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	trerrors "github.com/thoreinstein/truffaldino/internal/errors"
)

var backupPruneKeep int

func init() {
	backupPruneCmd.Flags().IntVar(&backupPruneKeep, "keep", 0,
		"number of snapshots to keep (default: retention_count from config)")
	backupCmd.AddCommand(backupPruneCmd)
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune <app>",
	Short: "Remove old snapshots for an application",
	Long: `Remove an application's oldest snapshots, keeping only the most
recent ones. Retention also runs automatically after every sync; prune
is for reclaiming space sooner or with a tighter count.`,
	Example: `  # Keep only the 3 most recent Cline snapshots
  truffaldino backup prune cline --keep 3

  See Also:
    truffaldino backup list - List snapshots`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupPrune,
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	return runBackupPruneWithWriter(cmd.OutOrStdout(), args[0])
}

func runBackupPruneWithWriter(w io.Writer, app string) error {
	desc, fileID, err := backupTarget(app)
	if err != nil {
		return err
	}

	keep := backupPruneKeep
	if keep == 0 {
		keep = appConfig.RetentionCount
	}
	if keep < 1 {
		return trerrors.NewUserError(errors.Newf("--keep must be positive, got %d", keep), "")
	}

	store := backupStore()

	before, err := store.List(fileID)
	if err != nil {
		return err
	}
	if err := store.Retain(fileID, keep); err != nil {
		return err
	}

	removed := len(before) - keep
	if removed < 0 {
		removed = 0
	}
	if removed == 0 {
		fmt.Fprintf(w, "Nothing to prune for %s (%d snapshot(s), keeping %d)\n",
			desc.ID, len(before), keep)
		return nil
	}

	successColor.Fprintf(w, "✓ Pruned %d snapshot(s) for %s, %d remaining\n",
		removed, desc.ID, keep)
	return nil
}
