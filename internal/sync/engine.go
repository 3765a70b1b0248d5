// Package sync orchestrates format adapters, the diff engine, the conflict
// resolver, and the version store into one synchronization operation with a
// defined outcome per target.
//
// The operation is two-phase: Plan loads and diffs without touching anything;
// Apply resolves, backs up, and writes. The gap between them is where callers
// run the human conflict-resolution step, so the engine never blocks on an
// editor.
package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	"github.com/thoreinstein/truffaldino/internal/apps"
	"github.com/thoreinstein/truffaldino/internal/conflict"
	"github.com/thoreinstein/truffaldino/internal/diff"
	"github.com/thoreinstein/truffaldino/internal/logging"
	"github.com/thoreinstein/truffaldino/internal/model"
	"github.com/thoreinstein/truffaldino/internal/paths"
	"github.com/thoreinstein/truffaldino/internal/version"
)

// Sentinel errors for sync operations.
var (
	// ErrUnresolvedConflicts indicates smart mode found conflicting entries
	// and no resolution was supplied. The target file is untouched.
	ErrUnresolvedConflicts = errors.New("unresolved conflicts")

	// ErrLockContention indicates another sync holds the target's lock.
	// Callers may retry with backoff.
	ErrLockContention = errors.New("target locked by another sync")

	// ErrDestructiveNotAcknowledged indicates a replace-mode plan was
	// applied without the caller acknowledging the destructive flag.
	ErrDestructiveNotAcknowledged = errors.New("destructive operation not acknowledged")

	// ErrEmptySource indicates the source has no MCP servers to sync.
	ErrEmptySource = errors.New("source has no MCP servers")
)

// Resolutions maps target app ID to the per-name choices for its conflicts.
type Resolutions map[string]map[string]conflict.Choice

// ApplyOptions controls plan application.
type ApplyOptions struct {
	// AcknowledgeDestructive must be set to apply plans whose Destructive
	// flag is true. Interactive callers set it after confirmation;
	// automated callers set it deliberately.
	AcknowledgeDestructive bool
}

// Engine runs sync operations. It is designed for single-process, sequential
// execution per invocation; the per-target file lock guards against
// overlapping processes.
type Engine struct {
	store   *version.Store
	runner  adapter.Runner
	logger  *slog.Logger
	lockDir string
	timeout time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStore sets the version store used for pre-write snapshots.
func WithStore(store *version.Store) EngineOption {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithRunner sets the command runner for CLI-driven adapters.
func WithRunner(r adapter.Runner) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLockDir sets the directory holding per-target lock files.
func WithLockDir(dir string) EngineOption {
	return func(e *Engine) {
		if dir != "" {
			e.lockDir = dir
		}
	}
}

// WithTimeout bounds each external operation (adapter loads and saves).
// Zero means the caller's context is the only bound.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a sync engine with the given options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		store:   version.NewStore(),
		runner:  adapter.ExecRunner{},
		logger:  logging.Default(),
		lockDir: filepath.Join(paths.DataHome(), paths.AppName, "locks"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan loads the source and every target and computes their differences.
// Nothing is written. Targets whose application is not installed are marked
// SKIPPED rather than failing the plan.
func (e *Engine) Plan(ctx context.Context, source apps.Descriptor, targets []apps.Descriptor, mode Mode) (*Plan, error) {
	sourceCfg, err := e.load(ctx, source)
	if err != nil {
		return nil, errors.Wrapf(err, "loading source %s", source.ID)
	}
	if sourceCfg.Len() == 0 {
		return nil, errors.Wrapf(ErrEmptySource, "%s", source.ID)
	}

	plan := &Plan{
		SourceApp: source.ID,
		Mode:      mode,
		Source:    sourceCfg,
	}

	for _, target := range targets {
		tp := &TargetPlan{
			App:         target.ID,
			State:       StateLoaded,
			Destructive: mode == ModeReplace,
			desc:        target,
		}
		plan.Targets = append(plan.Targets, tp)

		targetCfg, err := e.load(ctx, target)
		if err != nil {
			if errors.Is(err, adapter.ErrAdapterUnavailable) {
				e.logger.Info("skipping target, application not installed", slog.String("app", target.ID))
				tp.State = StateSkipped
			} else {
				tp.State = StateFailed
			}
			tp.Err = err
			continue
		}

		tp.Target = targetCfg
		tp.Diff = diff.Compute(sourceCfg, targetCfg)
		tp.State = StateDiffed

		for _, name := range tp.Diff.Conflicting {
			tp.Conflicts = append(tp.Conflicts, conflict.Conflict{
				Name:   name,
				Source: sourceCfg.Get(name),
				Target: targetCfg.Get(name),
			})
		}

		e.logger.Debug("planned target",
			slog.String("app", target.ID),
			slog.Int("added", len(tp.Diff.Added)),
			slog.Int("unchanged", len(tp.Diff.Unchanged)),
			slog.Int("conflicting", len(tp.Diff.Conflicting)),
			slog.Int("target_only", len(tp.Diff.TargetOnly)),
		)
	}

	return plan, nil
}

// Apply executes a plan. Each target independently walks
// RESOLVED → BACKED_UP → WRITTEN; a failure on one target never blocks the
// others, and every failure strictly precedes that target's write.
func (e *Engine) Apply(ctx context.Context, plan *Plan, resolutions Resolutions, opts ApplyOptions) *Report {
	report := &Report{
		SourceApp: plan.SourceApp,
		Mode:      plan.Mode,
	}

	for _, tp := range plan.Targets {
		tr := TargetReport{
			App:         tp.App,
			Added:       len(tp.Diff.Added),
			Unchanged:   len(tp.Diff.Unchanged),
			Conflicting: len(tp.Diff.Conflicting),
			TargetOnly:  len(tp.Diff.TargetOnly),
		}

		if tp.State == StateSkipped || tp.State == StateFailed {
			tr.State = tp.State
			if tp.Err != nil {
				tr.Error = tp.Err.Error()
			}
			report.Targets = append(report.Targets, tr)
			continue
		}

		snapshot, err := e.applyTarget(ctx, plan, tp, resolutions[tp.App], opts)
		tr.Snapshot = snapshot
		if err != nil {
			tp.State = StateFailed
			tr.Error = err.Error()
			e.logger.Error("sync failed",
				slog.String("app", tp.App),
				slog.String("error", err.Error()),
			)
		}
		tr.State = tp.State
		report.Targets = append(report.Targets, tr)
	}

	return report
}

// Run composes Plan and Apply for callers without a conflict-resolution
// step. Smart-mode plans with conflicts fail per target, leaving files
// untouched.
func (e *Engine) Run(ctx context.Context, source apps.Descriptor, targets []apps.Descriptor, mode Mode, opts ApplyOptions) (*Report, error) {
	plan, err := e.Plan(ctx, source, targets, mode)
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, plan, nil, opts), nil
}

// applyTarget runs one target through resolution, backup, and write.
// The returned snapshot record is non-nil once the backup step succeeded,
// even if the subsequent write failed; the caller surfaces it so the user
// can find the pre-write state.
func (e *Engine) applyTarget(ctx context.Context, plan *Plan, tp *TargetPlan, choices map[string]conflict.Choice, opts ApplyOptions) (*version.Record, error) {
	if tp.Destructive && !opts.AcknowledgeDestructive {
		return nil, errors.Wrapf(ErrDestructiveNotAcknowledged, "target %s", tp.App)
	}

	result, err := e.resolve(plan, tp, choices)
	if err != nil {
		return nil, err
	}
	tp.State = StateResolved

	ad, err := apps.NewAdapter(tp.desc, e.runner)
	if err != nil {
		return nil, err
	}

	// The lock covers the backup-then-write critical section so two
	// overlapping syncs cannot interleave between snapshot and save.
	unlock, err := e.lockTarget(ad)
	if err != nil {
		return nil, err
	}
	defer unlock()

	snapshot, err := e.backup(ctx, ad, tp)
	if err != nil {
		return nil, errors.Wrap(err, "pre-write backup")
	}
	tp.State = StateBackedUp

	saveCtx, cancel := e.bound(ctx)
	defer cancel()
	if err := ad.Save(saveCtx, result); err != nil {
		return snapshot, errors.Wrapf(err, "writing %s", tp.App)
	}
	tp.State = StateWritten

	e.logger.Info("target synced",
		slog.String("app", tp.App),
		slog.Int("servers", result.Len()),
	)
	return snapshot, nil
}

// resolve computes the configuration the target should end up with.
func (e *Engine) resolve(plan *Plan, tp *TargetPlan, choices map[string]conflict.Choice) (*model.Config, error) {
	switch plan.Mode {
	case ModeReplace:
		return plan.Source.Clone(), nil

	case ModeMerge:
		return mergeAdded(plan.Source, tp), nil

	case ModeSmart:
		result := mergeAdded(plan.Source, tp)
		for _, name := range tp.Diff.Conflicting {
			choice, ok := choices[name]
			if !ok {
				return nil, errors.Wrapf(ErrUnresolvedConflicts, "server %q", name)
			}
			if choice == conflict.ChoiceSource {
				result.Set(plan.Source.Get(name).Clone())
			}
		}
		return result, nil

	default:
		return nil, errors.Newf("invalid sync mode %q", plan.Mode)
	}
}

// mergeAdded returns target ∪ (source entries in the Added set). Conflicting
// and target-only entries stay as the target has them.
func mergeAdded(source *model.Config, tp *TargetPlan) *model.Config {
	result := tp.Target.Clone()
	for _, name := range tp.Diff.Added {
		result.Set(source.Get(name).Clone())
	}
	return result
}

// backup snapshots the target's pre-write state. File-backed targets store
// the raw file bytes; CLI-driven targets have no file, so the canonical JSON
// of the loaded state is stored instead. A target with no existing file has
// nothing to preserve.
func (e *Engine) backup(_ context.Context, ad adapter.Adapter, tp *TargetPlan) (*version.Record, error) {
	fileID := ad.Path()

	var data []byte
	if fileID == "" {
		fileID = cliFileID(tp.App)
		var err error
		data, err = json.MarshalIndent(tp.Target, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "marshaling CLI state")
		}
	} else {
		var err error
		data, err = os.ReadFile(fileID)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, errors.Wrap(err, "reading target file")
		}
	}

	record, err := e.store.Snapshot(fileID, data)
	if err != nil {
		return nil, err
	}
	if err := e.store.Retain(fileID, e.store.Retention()); err != nil {
		e.logger.Warn("snapshot retention failed",
			slog.String("file", fileID),
			slog.String("error", err.Error()),
		)
	}
	return record, nil
}

// lockTarget takes the exclusive per-target lock. The returned function
// releases it and must run on every exit path.
func (e *Engine) lockTarget(ad adapter.Adapter) (func(), error) {
	if err := os.MkdirAll(e.lockDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating lock directory")
	}

	identity := ad.Path()
	if identity == "" {
		identity = cliFileID(ad.App())
	}

	fl := flock.New(filepath.Join(e.lockDir, lockName(identity)))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring target lock")
	}
	if !locked {
		return nil, errors.Wrapf(ErrLockContention, "%s", identity)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			e.logger.Warn("releasing target lock failed", slog.String("error", err.Error()))
		}
	}, nil
}

// load builds the descriptor's adapter and reads its configuration under the
// engine's operation bound.
func (e *Engine) load(ctx context.Context, desc apps.Descriptor) (*model.Config, error) {
	ad, err := apps.NewAdapter(desc, e.runner)
	if err != nil {
		return nil, err
	}
	loadCtx, cancel := e.bound(ctx)
	defer cancel()
	return ad.Load(loadCtx)
}

// bound derives a context limited by the engine timeout, if one is set.
func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

// FileID returns the version-store identity for an application's
// configuration: the config file path, or a pseudo identity for CLI-driven
// applications that have no file.
func FileID(d apps.Descriptor) string {
	if path := d.ConfigPath(); path != "" {
		return path
	}
	return cliFileID(d.ID)
}

// cliFileID is the pseudo file identity used to version CLI-driven targets.
func cliFileID(app string) string {
	return "cli:" + app
}

// lockName flattens a file identity into a lock file name.
func lockName(identity string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "")
	return replacer.Replace(filepath.Clean(identity)) + ".lock"
}
