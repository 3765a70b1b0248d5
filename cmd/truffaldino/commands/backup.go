package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/truffaldino/internal/apps"
	trerrors "github.com/thoreinstein/truffaldino/internal/errors"
	"github.com/thoreinstein/truffaldino/internal/sync"
	"github.com/thoreinstein/truffaldino/internal/version"
)

func init() {
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage configuration snapshots",
	Long: `Manage the configuration snapshots truffaldino takes before every
write. Snapshots are kept per application, newest last, and trimmed to
the configured retention count.`,
	Example: `  # List snapshots for an application
  truffaldino backup list claude-desktop

  # Restore the most recent snapshot
  truffaldino backup restore claude-desktop

  # Restore a specific snapshot
  truffaldino backup restore claude-desktop 20260823T101500.123456789

  # Trim old snapshots, keeping the 3 most recent
  truffaldino backup prune claude-desktop --keep 3

  See Also:
    truffaldino backup list    - List snapshots
    truffaldino backup restore - Restore a snapshot
    truffaldino backup prune   - Remove old snapshots`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// backupStore builds the snapshot store from the loaded configuration.
func backupStore() *version.Store {
	return version.NewStore(
		version.WithRootDir(appConfig.VersionsDir),
		version.WithRetention(appConfig.RetentionCount),
	)
}

// backupTarget resolves an application argument to its descriptor and
// version-store file identity.
func backupTarget(id string) (apps.Descriptor, string, error) {
	desc, err := apps.Get(id)
	if err != nil {
		return apps.Descriptor{}, "", trerrors.NewUserError(err,
			fmt.Sprintf("Valid applications: %s", strings.Join(apps.IDs(), ", ")))
	}
	return desc, sync.FileID(desc), nil
}
