package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	"github.com/thoreinstein/truffaldino/internal/apps"
	"github.com/thoreinstein/truffaldino/internal/conflict"
	"github.com/thoreinstein/truffaldino/internal/editor"
	trerrors "github.com/thoreinstein/truffaldino/internal/errors"
	"github.com/thoreinstein/truffaldino/internal/logging"
	"github.com/thoreinstein/truffaldino/internal/paths"
	"github.com/thoreinstein/truffaldino/internal/sync"
	"github.com/thoreinstein/truffaldino/internal/version"
)

var (
	syncFrom    string
	syncTo      []string
	syncMode    string
	syncYes     bool
	syncTimeout time.Duration
	syncOutput  string
)

// maxResolveAttempts bounds the edit-parse loop for a single conflict file.
const maxResolveAttempts = 3

// editTimeout bounds a single editor session. Editing is interactive, so the
// bound is generous; it only catches an abandoned session.
const editTimeout = 30 * time.Minute

func init() {
	syncCmd.Flags().StringVar(&syncFrom, "from", "", "source application (interactive picker when omitted)")
	syncCmd.Flags().StringSliceVar(&syncTo, "to", nil, "target application(s) (default: all other installed apps)")
	syncCmd.Flags().StringVar(&syncMode, "mode", "", "sync mode: merge, replace, smart (default: from config)")
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "skip confirmation prompts")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 0, "bound for external commands (default: from config)")
	syncCmd.Flags().StringVarP(&syncOutput, "output", "o", "text", "output format: text, json, yaml")

	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize MCP servers from one application to others",
	Long: `Synchronize MCP server configurations from a source application to
one or more target applications.

Every target file is snapshotted before it is written; use
'truffaldino backup restore' to undo a sync.

Modes:
  merge    add servers the target is missing; never change or remove
           anything the target already has
  replace  make each target identical to the source, dropping servers
           only the target had (requires confirmation or --yes)
  smart    merge, plus walk through conflicting definitions in your
           editor and keep the side you choose`,
	Example: `  # Pick source interactively, sync to all other installed apps
  truffaldino sync

  # Push Claude Desktop's servers everywhere, adding missing ones only
  truffaldino sync --from claude-desktop --mode merge

  # Make Cline identical to Cursor without prompting
  truffaldino sync --from cursor --to cline --mode replace --yes

  See Also:
    truffaldino apps        - List detected applications
    truffaldino backup list - Inspect pre-sync snapshots`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	mode, err := resolveMode()
	if err != nil {
		return err
	}

	source, err := resolveSource()
	if err != nil {
		return err
	}

	targets, err := resolveTargets(source)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return trerrors.NewUserError(errors.New("no target applications"),
			"Install another supported application or pass --to explicitly")
	}

	store := version.NewStore(
		version.WithRootDir(appConfig.VersionsDir),
		version.WithRetention(appConfig.RetentionCount),
	)
	timeout := syncTimeout
	if timeout == 0 {
		timeout = appConfig.CommandTimeout
	}

	engine := sync.NewEngine(
		sync.WithStore(store),
		sync.WithLogger(logger),
		sync.WithTimeout(timeout),
	)

	plan, err := engine.Plan(ctx, source, targets, mode)
	if err != nil {
		if errors.Is(err, adapter.ErrAdapterUnavailable) {
			return trerrors.NewUserError(err,
				fmt.Sprintf("Is %s installed? Run 'truffaldino apps' to check", source.ID))
		}
		return err
	}

	resolutions := sync.Resolutions{}
	if mode == sync.ModeSmart && plan.HasConflicts() {
		if syncYes {
			return trerrors.NewUserError(errors.New("conflicts require interactive resolution"),
				"Drop --yes to resolve conflicts in your editor, or use --mode merge")
		}
		for _, tp := range plan.Targets {
			if len(tp.Conflicts) == 0 {
				continue
			}
			choices, err := resolveConflicts(ctx, w, tp)
			if err != nil {
				return err
			}
			resolutions[tp.App] = choices
		}
	}

	ack := syncYes
	if mode == sync.ModeReplace && !ack {
		warnColor.Fprintf(w, "Replace mode drops servers that exist only in the targets.\n")
		if !confirm(cmd.InOrStdin(), w, "Continue?") {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
		ack = true
	}

	report := engine.Apply(ctx, plan, resolutions, sync.ApplyOptions{AcknowledgeDestructive: ack})

	if err := renderReport(w, report); err != nil {
		return err
	}
	if !report.Succeeded() {
		return trerrors.NewExitError(errors.New("one or more targets failed"), trerrors.ExitSystem)
	}
	return nil
}

// resolveMode picks the sync mode from the flag or the config default.
func resolveMode() (sync.Mode, error) {
	raw := syncMode
	if raw == "" {
		raw = appConfig.DefaultMode
	}
	mode, err := sync.ParseMode(raw)
	if err != nil {
		return "", trerrors.NewUserError(err, "Valid modes: merge, replace, smart")
	}
	return mode, nil
}

// resolveSource returns the source descriptor from --from, or runs the
// interactive picker over installed applications.
func resolveSource() (apps.Descriptor, error) {
	if syncFrom != "" {
		desc, err := apps.Get(syncFrom)
		if err != nil {
			return apps.Descriptor{}, trerrors.NewUserError(err,
				fmt.Sprintf("Valid applications: %s", strings.Join(apps.IDs(), ", ")))
		}
		return desc, nil
	}

	installed := installedApps()
	if len(installed) == 0 {
		return apps.Descriptor{}, trerrors.NewUserError(errors.New("no supported applications detected"),
			"Run 'truffaldino apps' to see what is supported")
	}
	return pickApp("source", installed)
}

// resolveTargets returns the target descriptors from --to, or every other
// installed application.
func resolveTargets(source apps.Descriptor) ([]apps.Descriptor, error) {
	if len(syncTo) > 0 {
		targets := make([]apps.Descriptor, 0, len(syncTo))
		for _, id := range syncTo {
			desc, err := apps.Get(id)
			if err != nil {
				return nil, trerrors.NewUserError(err,
					fmt.Sprintf("Valid applications: %s", strings.Join(apps.IDs(), ", ")))
			}
			if desc.ID == source.ID {
				return nil, trerrors.NewUserError(
					errors.Newf("%s is the source and cannot also be a target", desc.ID), "")
			}
			targets = append(targets, desc)
		}
		return targets, nil
	}

	var targets []apps.Descriptor
	for _, desc := range installedApps() {
		if desc.ID != source.ID {
			targets = append(targets, desc)
		}
	}
	return targets, nil
}

// installedApps returns the MCP-capable applications detected on this machine.
func installedApps() []apps.Descriptor {
	var installed []apps.Descriptor
	for _, desc := range apps.All() {
		if !desc.SupportsMCP {
			continue
		}
		if apps.Detect(desc, nil) == apps.StatusInstalled {
			installed = append(installed, desc)
		}
	}
	return installed
}

// pickApp runs the fuzzy picker over candidates.
func pickApp(label string, candidates []apps.Descriptor) (apps.Descriptor, error) {
	idx, err := fuzzyfinder.Find(
		candidates,
		func(i int) string {
			return fmt.Sprintf("%s (%s)", candidates[i].Name, candidates[i].ID)
		},
		fuzzyfinder.WithPromptString(label+"> "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			d := candidates[i]
			location := d.ConfigPath()
			if location == "" {
				location = "(managed through " + d.Binary + " CLI)"
			}
			return fmt.Sprintf("Name: %s\nFormat: %s\nConfig: %s", d.Name, d.Format, location)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return apps.Descriptor{}, trerrors.NewUserError(errors.New("no application selected"), "")
		}
		return apps.Descriptor{}, errors.Wrap(err, "interactive selection failed")
	}
	return candidates[idx], nil
}

// resolveConflicts writes the conflict artifact for one target, opens the
// editor, and parses the decisions back. Recoverable parse errors re-open
// the same file so the user's partial edits survive.
func resolveConflicts(ctx context.Context, w io.Writer, tp *sync.TargetPlan) (map[string]conflict.Choice, error) {
	path := paths.ConflictFile()

	text, err := conflict.Render(tp.Conflicts)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return nil, errors.Wrap(err, "writing conflict file")
	}

	fmt.Fprintf(w, "%d conflicting server(s) for %s\n", len(tp.Conflicts), tp.App)

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		editCtx, cancel := context.WithTimeout(ctx, editTimeout)
		err := editor.Open(editCtx, path, appConfig.Editor)
		cancel()
		if err != nil {
			return nil, err
		}

		edited, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading conflict file")
		}

		choices, err := conflict.Parse(string(edited), tp.Conflicts)
		if err == nil {
			_ = os.Remove(path)
			return choices, nil
		}
		if !errors.Is(err, conflict.ErrAmbiguousResolution) && !errors.Is(err, conflict.ErrUnknownServerName) {
			return nil, err
		}
		warnColor.Fprintf(w, "Resolution not usable: %v\n", err)
		if attempt < maxResolveAttempts {
			fmt.Fprintln(w, "Re-opening the editor; uncomment exactly one KEEP line per server.")
		}
	}

	return nil, trerrors.NewUserError(
		errors.Wrapf(conflict.ErrAmbiguousResolution, "after %d attempts", maxResolveAttempts),
		"Re-run the sync when ready to resolve the conflicts")
}

// renderReport writes the sync report in the selected output format.
func renderReport(w io.Writer, report *sync.Report) error {
	switch syncOutput {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return errors.Wrap(err, "rendering report")
		}
		_, err = w.Write(data)
		return err
	case "text":
		renderReportText(w, report)
		return nil
	default:
		return trerrors.NewUserError(errors.Newf("invalid output format %q", syncOutput),
			"Valid formats: text, json, yaml")
	}
}

func renderReportText(w io.Writer, report *sync.Report) {
	headerColor.Fprintf(w, "Sync from %s (%s mode)\n\n", report.SourceApp, report.Mode)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  TARGET\tSTATE\tADDED\tUNCHANGED\tCONFLICTS\tTARGET-ONLY")
	for _, t := range report.Targets {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\t%d\t%d\n",
			t.App, stateLabel(t.State), t.Added, t.Unchanged, t.Conflicting, t.TargetOnly)
	}
	tw.Flush()

	for _, t := range report.Targets {
		if t.Snapshot != nil {
			dimColor.Fprintf(w, "  snapshot %s: %s\n", t.App, t.Snapshot.Timestamp)
		}
		if t.Error != "" {
			errorColor.Fprintf(w, "  %s: %s\n", t.App, truncate(t.Error, 120))
		}
	}
}

// stateLabel colors a target state for terminal output.
func stateLabel(s sync.State) string {
	switch s {
	case sync.StateWritten:
		return successColor.Sprint(string(s))
	case sync.StateSkipped:
		return dimColor.Sprint(string(s))
	case sync.StateFailed:
		return errorColor.Sprint(string(s))
	default:
		return string(s)
	}
}
