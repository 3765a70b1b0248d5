package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/truffaldino/internal/apps"
	trerrors "github.com/thoreinstein/truffaldino/internal/errors"
	"github.com/thoreinstein/truffaldino/internal/model"
	"github.com/thoreinstein/truffaldino/internal/version"
)

func init() {
	backupCmd.AddCommand(backupRestoreCmd)
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <app> [timestamp]",
	Short: "Restore an application's configuration from a snapshot",
	Long: `Restore an application's MCP configuration from a retained snapshot.

Without a timestamp the most recent snapshot is used. The current
configuration is snapshotted before the restore, so a restore can itself
be undone.`,
	Example: `  # Restore the most recent Claude Desktop snapshot
  truffaldino backup restore claude-desktop

  # Restore a specific snapshot
  truffaldino backup restore claude-desktop 20260823T101500.123456789

  # List snapshots first
  truffaldino backup list claude-desktop

  See Also:
    truffaldino backup list - List snapshots`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runBackupRestore,
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	return runBackupRestoreWithWriter(cmd, args, cmd.OutOrStdout())
}

func runBackupRestoreWithWriter(cmd *cobra.Command, args []string, w io.Writer) error {
	desc, fileID, err := backupTarget(args[0])
	if err != nil {
		return err
	}

	store := backupStore()

	var timestamp string
	if len(args) > 1 {
		timestamp = args[1]
	} else {
		records, err := store.List(fileID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return trerrors.NewUserError(
				errors.Wrapf(version.ErrVersionNotFound, "no snapshots for %s", desc.ID),
				"Snapshots are created the first time truffaldino writes this configuration")
		}
		timestamp = records[len(records)-1].Timestamp
		fmt.Fprintf(w, "Using most recent snapshot: %s\n", timestamp)
	}

	if desc.Format == apps.FormatCLI {
		if err := restoreThroughCLI(cmd, store, desc, fileID, timestamp); err != nil {
			return err
		}
	} else {
		if _, err := store.Restore(fileID, timestamp); err != nil {
			return err
		}
	}

	successColor.Fprintf(w, "✓ Restored %s configuration from snapshot %s\n", desc.Name, timestamp)
	return nil
}

// restoreThroughCLI replays a snapshot into a CLI-managed application. The
// snapshot holds the canonical JSON of the configuration rather than a file,
// so the restore goes back through the adapter.
func restoreThroughCLI(cmd *cobra.Command, store *version.Store, desc apps.Descriptor, fileID, timestamp string) error {
	data, err := store.Content(fileID, timestamp)
	if err != nil {
		return err
	}

	var cfg model.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return errors.Wrap(err, "parsing snapshot content")
	}

	ad, err := apps.NewAdapter(desc, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Preserve the state being replaced, same as a file restore does.
	current, err := ad.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "loading current configuration")
	}
	currentJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling current configuration")
	}
	if _, err := store.Snapshot(fileID, currentJSON); err != nil {
		return errors.Wrap(err, "snapshotting current configuration")
	}

	return ad.Save(ctx, &cfg)
}
