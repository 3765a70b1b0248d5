package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/truffaldino/internal/apps"
)

var appsJSON bool

func init() {
	appsCmd.Flags().BoolVar(&appsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(appsCmd)
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List supported applications and their detection status",
	Long: `List every application truffaldino can synchronize, whether it was
detected on this machine, and where its MCP configuration lives.`,
	Example: `  # Show detection status
  truffaldino apps

  # Output as JSON
  truffaldino apps --json`,
	RunE: runApps,
}

// appOutput is one row of the JSON listing.
type appOutput struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Format     apps.Format `json:"format"`
	Status     apps.Status `json:"status"`
	ConfigPath string      `json:"config_path,omitempty"`
	Prompt     bool        `json:"supports_prompt"`
}

func runApps(cmd *cobra.Command, _ []string) error {
	return runAppsWithWriter(cmd.OutOrStdout())
}

func runAppsWithWriter(w io.Writer) error {
	if appsJSON {
		output := make([]appOutput, 0, len(apps.All()))
		for _, d := range apps.All() {
			output = append(output, appOutput{
				ID:         d.ID,
				Name:       d.Name,
				Format:     d.Format,
				Status:     apps.Detect(d, nil),
				ConfigPath: d.ConfigPath(),
				Prompt:     d.SupportsPrompt,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	headerColor.Fprintln(w, "Supported applications")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tSTATUS\tFORMAT\tCONFIG")
	for _, d := range apps.All() {
		status := apps.Detect(d, nil)
		label := dimColor.Sprint(string(status))
		if status == apps.StatusInstalled {
			label = successColor.Sprint(string(status))
		}

		location := d.ConfigPath()
		if location == "" && d.Format == apps.FormatCLI {
			location = "(via " + d.Binary + " CLI)"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", d.ID, label, d.Format, truncate(location, 60))
	}
	return tw.Flush()
}
