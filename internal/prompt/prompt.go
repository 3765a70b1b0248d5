// Package prompt copies system prompt files between applications. Prompts
// are opaque text; the copy is byte for byte with no merge semantics, and
// the destination is snapshotted before it is overwritten.
package prompt

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/apps"
	"github.com/thoreinstein/truffaldino/internal/version"
	"github.com/thoreinstein/truffaldino/pkg/fileutil"
)

// Sentinel errors for prompt operations.
var (
	// ErrPromptUnsupported indicates the application has no system prompt file.
	ErrPromptUnsupported = errors.New("application does not support prompt files")

	// ErrPromptMissing indicates the source prompt file does not exist.
	ErrPromptMissing = errors.New("source prompt file not found")
)

// Result describes one completed prompt copy.
type Result struct {
	SourceApp string          `json:"source_app" yaml:"source_app"`
	TargetApp string          `json:"target_app" yaml:"target_app"`
	Path      string          `json:"path" yaml:"path"`
	Size      int64           `json:"size" yaml:"size"`
	Snapshot  *version.Record `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

// Copy reads the source application's prompt file and writes it to the
// target's prompt path. If the target file already exists its content is
// snapshotted first.
func Copy(store *version.Store, source, target apps.Descriptor) (*Result, error) {
	sourcePath := promptPath(source)
	if sourcePath == "" {
		return nil, errors.Wrapf(ErrPromptUnsupported, "%s", source.ID)
	}
	targetPath := promptPath(target)
	if targetPath == "" {
		return nil, errors.Wrapf(ErrPromptUnsupported, "%s", target.ID)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrPromptMissing, "%s (%s)", source.ID, sourcePath)
		}
		return nil, errors.Wrap(err, "reading source prompt")
	}

	result := &Result{
		SourceApp: source.ID,
		TargetApp: target.ID,
		Path:      targetPath,
		Size:      int64(len(data)),
	}

	current, err := os.ReadFile(targetPath)
	switch {
	case err == nil:
		record, err := store.Snapshot(targetPath, current)
		if err != nil {
			return nil, errors.Wrap(err, "snapshotting target prompt")
		}
		result.Snapshot = record
		if err := store.Retain(targetPath, store.Retention()); err != nil {
			return nil, errors.Wrap(err, "trimming prompt snapshots")
		}
	case os.IsNotExist(err):
		// Nothing to preserve.
	default:
		return nil, errors.Wrap(err, "reading target prompt")
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating target directory")
	}
	if err := fileutil.AtomicWriteFile(targetPath, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "writing target prompt")
	}

	return result, nil
}

// promptPath resolves the descriptor's prompt file, honoring the capability
// flag so a path is never invented for an app without prompt support.
func promptPath(d apps.Descriptor) string {
	if !d.SupportsPrompt {
		return ""
	}
	return d.PromptPath()
}
