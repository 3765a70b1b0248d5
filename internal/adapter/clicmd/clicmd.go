// Package clicmd implements the format adapter for applications configured
// through their own CLI rather than a file (Claude Code). Load shells the
// listing subcommand; Save issues the minimal add/remove invocations needed
// to reach the desired state, since the underlying tool has no wholesale
// replace primitive.
package clicmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	"github.com/thoreinstein/truffaldino/internal/model"
)

// DefaultBinary is the external command driving the adapter.
const DefaultBinary = "claude"

// Adapter drives an application's own CLI. The external binary and scope are
// fixed at construction; command execution goes through an adapter.Runner so
// tests never shell out.
type Adapter struct {
	app    string
	binary string
	scope  string
	runner adapter.Runner
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBinary overrides the external command name.
func WithBinary(binary string) Option {
	return func(a *Adapter) {
		if binary != "" {
			a.binary = binary
		}
	}
}

// WithScope overrides the configuration scope passed to the CLI.
func WithScope(scope string) Option {
	return func(a *Adapter) {
		if scope != "" {
			a.scope = scope
		}
	}
}

// New creates an adapter for the given application using runner.
func New(app string, runner adapter.Runner, opts ...Option) *Adapter {
	a := &Adapter{
		app:    app,
		binary: DefaultBinary,
		scope:  "user",
		runner: runner,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// App implements adapter.Adapter.
func (a *Adapter) App() string { return a.app }

// Path implements adapter.Adapter. CLI-driven applications have no config
// file the engine could snapshot directly.
func (a *Adapter) Path() string { return "" }

// Load implements adapter.Adapter. A missing external binary reports
// ErrAdapterUnavailable so callers can skip the application as not installed.
func (a *Adapter) Load(ctx context.Context) (*model.Config, error) {
	if !a.runner.LookPath(a.binary) {
		return nil, errors.Wrapf(adapter.ErrAdapterUnavailable, "%s not found in PATH", a.binary)
	}

	out, err := a.runner.Run(ctx, a.binary, "mcp", "list", "--scope", a.scope)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s servers", a.app)
	}
	return parseList(out)
}

// Save implements adapter.Adapter. The current CLI-reported state is listed
// first; then entries are removed and added one by one until it matches cfg.
// Changed entries are removed before re-adding, so each name is touched at
// most once per direction.
func (a *Adapter) Save(ctx context.Context, cfg *model.Config) error {
	current, err := a.Load(ctx)
	if err != nil {
		return err
	}

	var removes, adds []string
	for _, name := range current.Names() {
		switch {
		case !cfg.Has(name):
			removes = append(removes, name)
		case !sameInvocation(current.Get(name), cfg.Get(name)):
			removes = append(removes, name)
			adds = append(adds, name)
		}
	}
	for _, name := range cfg.Names() {
		if !current.Has(name) {
			adds = append(adds, name)
		}
	}

	for _, name := range removes {
		if _, err := a.runner.Run(ctx, a.binary, "mcp", "remove", "--scope", a.scope, name); err != nil {
			return errors.Wrapf(err, "removing server %q", name)
		}
	}

	for _, name := range adds {
		args := a.addArgs(cfg.Get(name))
		if _, err := a.runner.Run(ctx, a.binary, args...); err != nil {
			return errors.Wrapf(err, "adding server %q", name)
		}
	}
	return nil
}

// addArgs builds the add invocation for one entry. Environment variables are
// passed as repeated --env flags in sorted key order for reproducibility.
func (a *Adapter) addArgs(entry *model.Entry) []string {
	args := []string{"mcp", "add", "--scope", a.scope}

	keys := make([]string, 0, len(entry.Env))
	for k := range entry.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--env", fmt.Sprintf("%s=%s", k, entry.Env[k]))
	}

	args = append(args, entry.Name, entry.Command)
	args = append(args, entry.Args...)
	return args
}

// sameInvocation compares only what the listing output can report: command
// and arguments. Env never round-trips through the CLI listing, so it cannot
// participate without re-adding every server on every sync.
func sameInvocation(current, desired *model.Entry) bool {
	if current.Command != desired.Command {
		return false
	}
	if len(current.Args) != len(desired.Args) {
		return false
	}
	for i := range current.Args {
		if current.Args[i] != desired.Args[i] {
			return false
		}
	}
	return true
}

// parseList converts listing output into a configuration. Expected line
// format: "name: command arg1 arg2". Lines that do not match are skipped;
// the CLI prints informational lines alongside server entries.
func parseList(out []byte) (*model.Config, error) {
	cfg := model.NewConfig()

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "No MCP servers") {
			continue
		}
		name, rest, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}

		entry := &model.Entry{
			Name:    strings.TrimSpace(name),
			Command: fields[0],
		}
		if len(fields) > 1 {
			entry.Args = fields[1:]
		}
		cfg.Set(entry)
	}
	return cfg, nil
}
