// Package xmltree implements the format adapter for IntelliJ-style options
// XML, where server entries live under a fixed component element and every
// sibling component must survive a save untouched.
package xmltree

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	"github.com/thoreinstein/truffaldino/internal/model"
	"github.com/thoreinstein/truffaldino/pkg/fileutil"
)

// ComponentName is the options component owning the MCP server list.
const ComponentName = "LLMMcpServers"

// Adapter reads and writes an IntelliJ options document. Only the servers
// section of the owning component is rewritten; other components, their
// attributes, and document structure are preserved.
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
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewConfig(), nil
		}
		return nil, errors.Wrapf(err, "reading %s config", a.app)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, adapter.NewFormatError(a.path, 0, err)
	}

	cfg := model.NewConfig()
	servers := findServersElement(doc)
	if servers == nil {
		return cfg, nil
	}

	for _, el := range servers.SelectElements("server") {
		entry, err := entryFromElement(el)
		if err != nil {
			return nil, adapter.NewFormatError(a.path, 0, err)
		}
		if cfg.Has(entry.Name) {
			return nil, adapter.NewFormatError(a.path, 0,
				errors.Newf("duplicate server name %q", entry.Name))
		}
		cfg.Set(entry)
	}
	return cfg, nil
}

// Save implements adapter.Adapter. The servers element is rebuilt in the
// configuration's insertion order; every other part of the document is left
// as read.
func (a *Adapter) Save(_ context.Context, cfg *model.Config) error {
	doc := etree.NewDocument()

	data, err := os.ReadFile(a.path)
	switch {
	case err == nil:
		if err := doc.ReadFromBytes(data); err != nil {
			return adapter.NewFormatError(a.path, 0, err)
		}
	case os.IsNotExist(err):
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	default:
		return errors.Wrapf(err, "reading %s config", a.app)
	}

	root := doc.Root()
	if root == nil {
		root = doc.CreateElement("application")
	}

	component := findComponent(root)
	if component == nil {
		component = root.CreateElement("component")
		component.CreateAttr("name", ComponentName)
	}

	if old := component.SelectElement("servers"); old != nil {
		component.RemoveChild(old)
	}
	servers := component.CreateElement("servers")
	for _, entry := range cfg.Entries() {
		elementFromEntry(servers, entry)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return errors.Wrap(err, "serializing options document")
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteFile(a.path, out, 0o644)
}

func findComponent(root *etree.Element) *etree.Element {
	for _, c := range root.SelectElements("component") {
		if c.SelectAttrValue("name", "") == ComponentName {
			return c
		}
	}
	return nil
}

func findServersElement(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	component := findComponent(root)
	if component == nil {
		return nil
	}
	return component.SelectElement("servers")
}

// entryFromElement converts a server element to a canonical entry. Known
// attributes map to canonical fields; anything else is kept in Extra so it
// survives the round-trip.
func entryFromElement(el *etree.Element) (*model.Entry, error) {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return nil, errors.New("server element missing name attribute")
	}

	entry := &model.Entry{
		Name:    name,
		Command: el.SelectAttrValue("command", ""),
	}
	if args := el.SelectAttrValue("args", ""); args != "" {
		entry.Args = strings.Fields(args)
	}

	for _, env := range el.SelectElements("env") {
		key := env.SelectAttrValue("key", "")
		if key == "" {
			return nil, errors.Newf("server %q: env element missing key", name)
		}
		if entry.Env == nil {
			entry.Env = make(map[string]string)
		}
		entry.Env[key] = env.SelectAttrValue("value", "")
	}

	for _, attr := range el.Attr {
		switch attr.Key {
		case "name", "command", "args":
			continue
		}
		if entry.Extra == nil {
			entry.Extra = make(map[string]json.RawMessage)
		}
		raw, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		entry.Extra[attr.Key] = raw
	}

	return entry, nil
}

func elementFromEntry(servers *etree.Element, entry *model.Entry) {
	el := servers.CreateElement("server")
	el.CreateAttr("name", entry.Name)
	el.CreateAttr("command", entry.Command)
	if len(entry.Args) > 0 {
		el.CreateAttr("args", strings.Join(entry.Args, " "))
	}

	// Extra holds attributes captured on load; only string values can be
	// represented as XML attributes.
	extraKeys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		extraKeys = append(extraKeys, k)
	}
	// Deterministic attribute order across saves.
	for _, k := range sortedStrings(extraKeys) {
		var s string
		if err := json.Unmarshal(entry.Extra[k], &s); err == nil {
			el.CreateAttr(k, s)
		}
	}

	for _, key := range sortedKeys(entry.Env) {
		env := el.CreateElement("env")
		env.CreateAttr("key", key)
		env.CreateAttr("value", entry.Env[key])
	}
}

func sortedStrings(s []string) []string {
	slices.Sort(s)
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
