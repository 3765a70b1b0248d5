package apps

import (
	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	"github.com/thoreinstein/truffaldino/internal/adapter/clicmd"
	"github.com/thoreinstein/truffaldino/internal/adapter/jsonfile"
	"github.com/thoreinstein/truffaldino/internal/adapter/tomltree"
	"github.com/thoreinstein/truffaldino/internal/adapter/xmltree"
	trerrors "github.com/thoreinstein/truffaldino/internal/errors"
)

// All returns every supported application descriptor in display order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// IDs returns the supported application identifiers in display order.
func IDs() []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.ID)
	}
	return out
}

// Get returns the descriptor for id.
func Get(id string) (Descriptor, error) {
	for _, d := range descriptors {
		if d.ID == id {
			return d, nil
		}
	}
	return Descriptor{}, errors.Wrapf(trerrors.ErrUnknownApp, "%q", id)
}

// Valid reports whether id names a supported application.
func Valid(id string) bool {
	_, err := Get(id)
	return err == nil
}

// NewAdapter resolves the descriptor's locator and builds the matching
// format adapter variant. The runner is used only by CLI-driven variants.
func NewAdapter(d Descriptor, runner adapter.Runner) (adapter.Adapter, error) {
	switch d.Format {
	case FormatJSON:
		path := d.ConfigPath()
		if path == "" {
			return nil, errors.Wrapf(adapter.ErrAdapterUnavailable, "%s: no config path for this platform", d.ID)
		}
		return jsonfile.New(d.ID, path), nil

	case FormatXML:
		path := d.ConfigPath()
		if path == "" {
			return nil, errors.Wrapf(adapter.ErrAdapterUnavailable, "%s: installation not found", d.ID)
		}
		return xmltree.New(d.ID, path), nil

	case FormatTOML:
		path := d.ConfigPath()
		if path == "" {
			return nil, errors.Wrapf(adapter.ErrAdapterUnavailable, "%s: no config path for this platform", d.ID)
		}
		return tomltree.New(d.ID, path), nil

	case FormatCLI:
		if runner == nil {
			runner = adapter.ExecRunner{}
		}
		return clicmd.New(d.ID, runner, clicmd.WithBinary(d.Binary)), nil

	default:
		return nil, errors.Newf("unsupported format %q for %s", d.Format, d.ID)
	}
}
