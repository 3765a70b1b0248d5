// Package jsonfile implements the format adapter for applications that keep
// MCP servers as a JSON object keyed by server name (Claude Desktop, Cline,
// Cursor and similar).
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	"github.com/thoreinstein/truffaldino/internal/model"
	"github.com/thoreinstein/truffaldino/pkg/fileutil"
)

// DefaultServersKey is the conventional top-level key holding the server map.
const DefaultServersKey = "mcpServers"

// Adapter reads and writes a JSON config file, touching only the servers
// section and preserving every sibling top-level key verbatim.
type Adapter struct {
	app        string
	path       string
	serversKey string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithServersKey overrides the top-level key holding the server map.
func WithServersKey(key string) Option {
	return func(a *Adapter) {
		if key != "" {
			a.serversKey = key
		}
	}
}

// New creates an adapter for the given application bound to path.
func New(app, path string, opts ...Option) *Adapter {
	a := &Adapter{
		app:        app,
		path:       path,
		serversKey: DefaultServersKey,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// App implements adapter.Adapter.
func (a *Adapter) App() string { return a.app }

// Path implements adapter.Adapter.
func (a *Adapter) Path() string { return a.path }

// Load implements adapter.Adapter. A missing file is a valid empty
// configuration, not an error.
func (a *Adapter) Load(_ context.Context) (*model.Config, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewConfig(), nil
		}
		return nil, errors.Wrapf(err, "reading %s config", a.app)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, adapter.NewFormatError(a.path, lineOf(data, err), err)
	}

	section, ok := doc[a.serversKey]
	if !ok {
		return model.NewConfig(), nil
	}

	cfg, err := parseServers(section)
	if err != nil {
		return nil, adapter.NewFormatError(a.path, lineOf(data, err), err)
	}
	return cfg, nil
}

// Save implements adapter.Adapter. The existing file is re-read so sibling
// keys survive; only the servers section is replaced. The write is atomic.
func (a *Adapter) Save(_ context.Context, cfg *model.Config) error {
	doc := make(map[string]json.RawMessage)

	data, err := os.ReadFile(a.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return adapter.NewFormatError(a.path, lineOf(data, err), err)
		}
	case os.IsNotExist(err):
		// New file; start from an empty document.
	default:
		return errors.Wrapf(err, "reading %s config", a.app)
	}

	section, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling servers")
	}
	doc[a.serversKey] = section

	out, err := marshalDoc(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteFile(a.path, out, 0o644)
}

// parseServers decodes the server object with a token stream so entries keep
// the file's key order.
func parseServers(section json.RawMessage) (*model.Config, error) {
	cfg := model.NewConfig()

	dec := json.NewDecoder(bytes.NewReader(section))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("servers section is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("non-string server name")
		}

		var entry model.Entry
		if err := dec.Decode(&entry); err != nil {
			return nil, errors.Wrapf(err, "server %q", name)
		}
		entry.Name = name
		if cfg.Has(name) {
			return nil, errors.Newf("duplicate server name %q", name)
		}
		cfg.Set(&entry)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// marshalDoc renders the document with sorted sibling keys and 2-space
// indentation so repeated saves of the same state are byte-identical.
func marshalDoc(doc map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(doc[k])
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, errors.Wrap(err, "formatting config")
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// lineOf derives a 1-based line number from a JSON error's byte offset,
// or 0 when the error carries none.
func lineOf(data []byte, err error) int {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError

	var offset int64
	switch {
	case errors.As(err, &syn):
		offset = syn.Offset
	case errors.As(err, &typ):
		offset = typ.Offset
	default:
		return 0
	}
	if offset <= 0 || offset > int64(len(data)) {
		return 0
	}
	return 1 + bytes.Count(data[:offset], []byte{'\n'})
}
