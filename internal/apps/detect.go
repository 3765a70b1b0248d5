package apps

import (
	"os"
	"path/filepath"

	"github.com/thoreinstein/truffaldino/internal/adapter"
)

// Status reports whether an application appears to be installed.
type Status string

const (
	// StatusInstalled means the application's config location or binary exists.
	StatusInstalled Status = "installed"

	// StatusNotInstalled means no trace of the application was found.
	StatusNotInstalled Status = "not installed"
)

// Detect checks whether the described application is present on this machine.
//
// CLI-driven applications are detected by binary lookup. File-backed ones are
// detected by their config file, or its parent directory for applications
// that create the file lazily.
func Detect(d Descriptor, runner adapter.Runner) Status {
	if runner == nil {
		runner = adapter.ExecRunner{}
	}

	switch d.Format {
	case FormatCLI:
		if runner.LookPath(d.Binary) {
			return StatusInstalled
		}
		return StatusNotInstalled

	case FormatXML:
		// The options directory only exists for a real installation.
		if d.ConfigPath() != "" {
			return StatusInstalled
		}
		return StatusNotInstalled

	default:
		path := d.ConfigPath()
		if path == "" {
			return StatusNotInstalled
		}
		if _, err := os.Stat(path); err == nil {
			return StatusInstalled
		}
		// Some applications create their config on first MCP use; the
		// parent directory is evidence enough.
		if _, err := os.Stat(filepath.Dir(path)); err == nil {
			return StatusInstalled
		}
		return StatusNotInstalled
	}
}
