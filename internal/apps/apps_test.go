package apps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/adapter"
	trerrors "github.com/thoreinstein/truffaldino/internal/errors"
)

func TestGet(t *testing.T) {
	for _, id := range IDs() {
		d, err := Get(id)
		if err != nil {
			t.Errorf("Get(%q) error = %v", id, err)
		}
		if d.ID != id {
			t.Errorf("Get(%q).ID = %q", id, d.ID)
		}
	}

	_, err := Get("emacs")
	if !errors.Is(err, trerrors.ErrUnknownApp) {
		t.Errorf("Get(emacs) error = %v, want ErrUnknownApp", err)
	}
}

func TestValid(t *testing.T) {
	if !Valid(ClaudeDesktop) {
		t.Error("Valid(claude-desktop) = false")
	}
	if Valid("nonsense") {
		t.Error("Valid(nonsense) = true")
	}
}

func TestDescriptors_Consistency(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range All() {
		if seen[d.ID] {
			t.Errorf("duplicate descriptor ID %q", d.ID)
		}
		seen[d.ID] = true

		if d.Format == FormatCLI && d.Binary == "" {
			t.Errorf("%s: CLI format requires a binary", d.ID)
		}
		if d.Format != FormatCLI && d.configPath == nil {
			t.Errorf("%s: file-backed format requires a config path", d.ID)
		}
		if d.SupportsPrompt && d.promptPath == nil {
			t.Errorf("%s: prompt support requires a prompt path", d.ID)
		}
	}
}

func TestNewAdapter_Variants(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		id       string
		wantPath bool
	}{
		{ClaudeDesktop, true},
		{Cline, true},
		{Cursor, true},
		{Gemini, true},
		{ClaudeCode, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			d, err := Get(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			ad, err := NewAdapter(d, stubRunner{})
			if err != nil {
				t.Fatalf("NewAdapter() error = %v", err)
			}
			if ad.App() != tt.id {
				t.Errorf("App() = %q, want %q", ad.App(), tt.id)
			}
			if got := ad.Path() != ""; got != tt.wantPath {
				t.Errorf("Path() set = %v, want %v", got, tt.wantPath)
			}
		})
	}
}

func TestNewAdapter_IntelliJWithoutInstall(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	d, err := Get(IntelliJ)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewAdapter(d, nil)
	if !errors.Is(err, adapter.ErrAdapterUnavailable) {
		t.Errorf("NewAdapter(intellij, no install) error = %v, want ErrAdapterUnavailable", err)
	}
}

func TestIntelliJ_NewestInstallWins(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	base := filepath.Join(home, ".config", "JetBrains")
	for _, v := range []string{"IntelliJIdea2024.1", "IntelliJIdea2024.3"} {
		if err := os.MkdirAll(filepath.Join(base, v, "options"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	d, err := Get(IntelliJ)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(base, "IntelliJIdea2024.3", "options", "llm.mcpServers.xml")
	if got := d.ConfigPath(); got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestDetect(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cline, err := Get(Cline)
	if err != nil {
		t.Fatal(err)
	}

	if got := Detect(cline, stubRunner{}); got != StatusNotInstalled {
		t.Errorf("Detect(no trace) = %q, want not installed", got)
	}

	// The parent directory alone counts as installed; the config file is
	// created lazily on first MCP use.
	if err := os.MkdirAll(filepath.Join(home, ".cline"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := Detect(cline, stubRunner{}); got != StatusInstalled {
		t.Errorf("Detect(config dir) = %q, want installed", got)
	}

	cli, err := Get(ClaudeCode)
	if err != nil {
		t.Fatal(err)
	}
	if got := Detect(cli, stubRunner{}); got != StatusNotInstalled {
		t.Errorf("Detect(cli, binary absent) = %q, want not installed", got)
	}
	if got := Detect(cli, stubRunner{lookPath: true}); got != StatusInstalled {
		t.Errorf("Detect(cli, binary present) = %q, want installed", got)
	}
}

type stubRunner struct {
	lookPath bool
}

func (stubRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (s stubRunner) LookPath(string) bool { return s.lookPath }
