package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var backupListJSON bool

func init() {
	backupListCmd.Flags().BoolVar(&backupListJSON, "json", false, "Output in JSON format")
	backupCmd.AddCommand(backupListCmd)
}

var backupListCmd = &cobra.Command{
	Use:   "list <app>",
	Short: "List snapshots for an application",
	Long: `List the configuration snapshots retained for an application, oldest
first. Each snapshot records when it was taken, its size, and a content
hash used to verify it on restore.`,
	Example: `  # List snapshots for Cursor
  truffaldino backup list cursor

  # Output as JSON
  truffaldino backup list cursor --json

  See Also:
    truffaldino backup restore - Restore a snapshot
    truffaldino backup prune   - Remove old snapshots`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupList,
}

func runBackupList(cmd *cobra.Command, args []string) error {
	return runBackupListWithWriter(cmd.OutOrStdout(), args[0])
}

func runBackupListWithWriter(w io.Writer, app string) error {
	desc, fileID, err := backupTarget(app)
	if err != nil {
		return err
	}

	records, err := backupStore().List(fileID)
	if err != nil {
		return err
	}

	if backupListJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	headerColor.Fprintf(w, "Snapshots for %s\n", desc.Name)
	dimColor.Fprintf(w, "  %s\n\n", fileID)

	if len(records) == 0 {
		fmt.Fprintln(w, "No snapshots available.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Snapshots are created automatically before truffaldino writes a configuration.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TIMESTAMP\tCREATED\tSIZE\tSHA256")
	for _, r := range records {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
			successColor.Sprint(r.Timestamp),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Size,
			truncate(r.SHA256, 12))
	}
	return tw.Flush()
}
