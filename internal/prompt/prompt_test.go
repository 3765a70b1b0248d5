package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/apps"
	"github.com/thoreinstein/truffaldino/internal/version"
)

func promptSetup(t *testing.T) (*version.Store, apps.Descriptor, apps.Descriptor) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	source, err := apps.Get(apps.Cursor)
	if err != nil {
		t.Fatal(err)
	}
	target, err := apps.Get(apps.Cline)
	if err != nil {
		t.Fatal(err)
	}
	return version.NewStore(version.WithRootDir(t.TempDir())), source, target
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCopy_ByteForByte(t *testing.T) {
	store, source, target := promptSetup(t)

	content := []byte("You are a careful engineer.\nNever guess.\n")
	writeFile(t, source.PromptPath(), content)

	result, err := Copy(store, source, target)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", result.Size, len(content))
	}
	if result.Snapshot != nil {
		t.Error("no snapshot expected when the target prompt did not exist")
	}

	got, err := os.ReadFile(target.PromptPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("target prompt = %q, want %q", got, content)
	}
}

func TestCopy_SnapshotsExistingTarget(t *testing.T) {
	store, source, target := promptSetup(t)

	writeFile(t, source.PromptPath(), []byte("new prompt"))
	old := []byte("old prompt")
	writeFile(t, target.PromptPath(), old)

	result, err := Copy(store, source, target)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if result.Snapshot == nil {
		t.Fatal("existing target prompt must be snapshotted")
	}

	preserved, err := store.Content(target.PromptPath(), result.Snapshot.Timestamp)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if string(preserved) != string(old) {
		t.Errorf("snapshot = %q, want the previous prompt %q", preserved, old)
	}
}

func TestCopy_MissingSource(t *testing.T) {
	store, source, target := promptSetup(t)

	_, err := Copy(store, source, target)
	if !errors.Is(err, ErrPromptMissing) {
		t.Errorf("Copy() error = %v, want ErrPromptMissing", err)
	}
}

func TestCopy_UnsupportedApp(t *testing.T) {
	store, source, _ := promptSetup(t)

	gemini, err := apps.Get(apps.Gemini)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Copy(store, gemini, source); !errors.Is(err, ErrPromptUnsupported) {
		t.Errorf("Copy(from unsupported) error = %v, want ErrPromptUnsupported", err)
	}
	if _, err := Copy(store, source, gemini); !errors.Is(err, ErrPromptUnsupported) {
		t.Errorf("Copy(to unsupported) error = %v, want ErrPromptUnsupported", err)
	}
}
