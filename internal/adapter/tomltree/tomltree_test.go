package tomltree

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/thoreinstein/truffaldino/internal/model"
)

const settingsDoc = `theme = "dark"

[telemetry]
enabled = false

[mcp.servers.github]
command = "npx"
args = ["-y", "server-github"]
trust = true

[mcp.servers.github.env]
TOKEN = "t"

[mcp.servers.files]
command = "mcp-files"
`

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ParsesServers(t *testing.T) {
	a := New("gemini", writeSettings(t, settingsDoc))

	cfg, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// TOML tables are unordered; entries load in sorted name order.
	if got := cfg.Names(); !slices.Equal(got, []string{"files", "github"}) {
		t.Fatalf("Names() = %v, want [files github]", got)
	}

	github := cfg.Get("github")
	if github.Command != "npx" {
		t.Errorf("Command = %q, want npx", github.Command)
	}
	if !slices.Equal(github.Args, []string{"-y", "server-github"}) {
		t.Errorf("Args = %v, want [-y server-github]", github.Args)
	}
	if github.Env["TOKEN"] != "t" {
		t.Errorf("Env[TOKEN] = %q, want t", github.Env["TOKEN"])
	}
	if _, ok := github.Extra["trust"]; !ok {
		t.Error("Extra missing 'trust' field")
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	a := New("gemini", filepath.Join(t.TempDir(), "absent.toml"))

	cfg, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cfg.Len())
	}
}

func TestLoad_NoServersTableIsEmpty(t *testing.T) {
	a := New("gemini", writeSettings(t, `theme = "dark"`))

	cfg, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cfg.Len())
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	a := New("gemini", writeSettings(t, "theme = \"dark\n"))

	if _, err := a.Load(context.Background()); err == nil {
		t.Error("Load() of malformed TOML should fail")
	}
}

func TestSave_PreservesSiblingSettings(t *testing.T) {
	path := writeSettings(t, settingsDoc)
	a := New("gemini", path)

	cfg := model.NewConfig()
	cfg.Set(&model.Entry{Name: "fresh", Command: "new-server"})

	if err := a.Save(context.Background(), cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)

	for _, want := range []string{"theme", "telemetry", "fresh"} {
		if !strings.Contains(text, want) {
			t.Errorf("saved file missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "github") {
		t.Errorf("replaced server still present:\n%s", text)
	}
}

func TestRoundTrip(t *testing.T) {
	a := New("gemini", writeSettings(t, settingsDoc))
	ctx := context.Background()

	cfg, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := a.Save(ctx, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	again, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after save error = %v", err)
	}
	if !cfg.Equal(again) {
		t.Error("config changed across a load/save/load round-trip")
	}
}

func TestSave_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	a := New("gemini", path)

	cfg := model.NewConfig()
	cfg.Set(&model.Entry{Name: "a", Command: "x", Env: map[string]string{"K": "v"}})

	if err := a.Save(context.Background(), cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Has("a") || loaded.Get("a").Env["K"] != "v" {
		t.Errorf("created file does not round-trip the entry: %+v", loaded.Get("a"))
	}
}
