// Package adapter defines the contract between the sync engine and the
// per-application codecs that translate native configuration formats to and
// from the canonical model.
//
// Adapters form a small closed set of variants: a JSON map file, a TOML
// settings tree, an XML option tree, and a CLI-driven variant that has no
// file at all. Adding an application means adding one variant (or reusing an
// existing one) plus one descriptor; diff and version logic never change.
package adapter

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/model"
)

// Adapter loads and saves one application's MCP configuration.
//
// The locator (file path or command prefix) is bound at construction, so a
// built adapter is self-contained. Implementations must treat a missing
// native file as a valid empty configuration, and must never discard native
// fields or sibling sections they do not understand.
type Adapter interface {
	// App returns the application identifier this adapter serves.
	App() string

	// Path returns the native config file path, or "" for variants that
	// have no file (CLI-driven applications).
	Path() string

	// Load reads the application's current configuration.
	Load(ctx context.Context) (*model.Config, error)

	// Save persists cfg in the application's native format. For file-backed
	// variants the write replaces only the MCP section; everything else in
	// the file is preserved byte-comparable. The CLI variant issues the
	// minimal add/remove commands needed to reach cfg.
	Save(ctx context.Context, cfg *model.Config) error
}

// ErrAdapterUnavailable indicates the application's external command is not
// installed. Callers treat this as "skip this target", not a sync failure.
var ErrAdapterUnavailable = errors.New("application not available")

// FormatError reports malformed native configuration content. It is local to
// one adapter call: the affected target is aborted, others proceed.
type FormatError struct {
	// Path is the native file the error was found in ("" for CLI output).
	Path string

	// Line is the 1-based line of the problem, or 0 when not derivable.
	Line int

	// Err is the underlying parse error.
	Err error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("malformed config %s:%d: %v", e.Path, e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("malformed config %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("malformed config: %v", e.Err)
	}
}

// Unwrap returns the underlying parse error.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewFormatError wraps a parse failure with its location.
func NewFormatError(path string, line int, err error) *FormatError {
	return &FormatError{Path: path, Line: line, Err: err}
}
