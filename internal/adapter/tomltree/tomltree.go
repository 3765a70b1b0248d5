// Package tomltree implements the format adapter for applications that keep
// MCP servers inside a larger TOML settings document (Gemini CLI style),
// under [mcp.servers.<name>] tables.
package tomltree

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	"github.com/thoreinstein/truffaldino/internal/model"
	"github.com/thoreinstein/truffaldino/pkg/fileutil"
)

// Adapter reads and writes a TOML settings file, replacing only the
// mcp.servers subtree and keeping every sibling setting.
//
// TOML tables carry no usable ordering, so entries load in sorted name
// order; this keeps repeated loads deterministic.
type Adapter struct {
	app  string
	path string
}

// New creates an adapter for the given application bound to path.
func New(app, path string) *Adapter {
	return &Adapter{app: app, path: path}
}

// App implements adapter.Adapter.
func (a *Adapter) App() string { return a.app }

// Path implements adapter.Adapter.
func (a *Adapter) Path() string { return a.path }

// Load implements adapter.Adapter.
func (a *Adapter) Load(_ context.Context) (*model.Config, error) {
	doc, err := a.readDoc()
	if err != nil {
		return nil, err
	}

	cfg := model.NewConfig()
	servers := serversTable(doc)
	if servers == nil {
		return cfg, nil
	}

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		table, ok := servers[name].(map[string]any)
		if !ok {
			return nil, adapter.NewFormatError(a.path, 0,
				errors.Newf("server %q is not a table", name))
		}
		entry, err := entryFromTable(name, table)
		if err != nil {
			return nil, adapter.NewFormatError(a.path, 0, err)
		}
		cfg.Set(entry)
	}
	return cfg, nil
}

// Save implements adapter.Adapter.
func (a *Adapter) Save(_ context.Context, cfg *model.Config) error {
	doc, err := a.readDoc()
	if err != nil {
		return err
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	servers := make(map[string]any, cfg.Len())
	for _, entry := range cfg.Entries() {
		table, err := tableFromEntry(entry)
		if err != nil {
			return err
		}
		servers[entry.Name] = table
	}

	mcp, ok := doc["mcp"].(map[string]any)
	if !ok {
		mcp = make(map[string]any)
		doc["mcp"] = mcp
	}
	mcp["servers"] = servers

	out, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshaling settings")
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteFile(a.path, out, 0o644)
}

// readDoc returns the decoded settings document, or nil when the file does
// not exist.
func (a *Adapter) readDoc() (map[string]any, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s config", a.app)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		line := 0
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			line, _ = derr.Position()
		}
		return nil, adapter.NewFormatError(a.path, line, err)
	}
	return doc, nil
}

func serversTable(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	mcp, ok := doc["mcp"].(map[string]any)
	if !ok {
		return nil
	}
	servers, ok := mcp["servers"].(map[string]any)
	if !ok {
		return nil
	}
	return servers
}

func entryFromTable(name string, table map[string]any) (*model.Entry, error) {
	entry := &model.Entry{Name: name}

	for key, val := range table {
		switch key {
		case "command":
			s, ok := val.(string)
			if !ok {
				return nil, errors.Newf("server %q: command is not a string", name)
			}
			entry.Command = s
		case "args":
			args, err := stringSlice(val)
			if err != nil {
				return nil, errors.Wrapf(err, "server %q: args", name)
			}
			entry.Args = args
		case "env":
			envTable, ok := val.(map[string]any)
			if !ok {
				return nil, errors.Newf("server %q: env is not a table", name)
			}
			entry.Env = make(map[string]string, len(envTable))
			for k, v := range envTable {
				s, ok := v.(string)
				if !ok {
					return nil, errors.Newf("server %q: env %q is not a string", name, k)
				}
				entry.Env[k] = s
			}
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				return nil, errors.Wrapf(err, "server %q: field %q", name, key)
			}
			if entry.Extra == nil {
				entry.Extra = make(map[string]json.RawMessage)
			}
			entry.Extra[key] = raw
		}
	}
	return entry, nil
}

func tableFromEntry(entry *model.Entry) (map[string]any, error) {
	table := make(map[string]any)
	for key, raw := range entry.Extra {
		var val any
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, errors.Wrapf(err, "server %q: field %q", entry.Name, key)
		}
		table[key] = val
	}
	if entry.Command != "" {
		table["command"] = entry.Command
	}
	if len(entry.Args) > 0 {
		table["args"] = entry.Args
	}
	if len(entry.Env) > 0 {
		env := make(map[string]any, len(entry.Env))
		for k, v := range entry.Env {
			env[k] = v
		}
		table["env"] = env
	}
	return table, nil
}

func stringSlice(val any) ([]string, error) {
	items, ok := val.([]any)
	if !ok {
		return nil, errors.New("not an array")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errors.Newf("element %v is not a string", item)
		}
		out = append(out, s)
	}
	return out, nil
}
