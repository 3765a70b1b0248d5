package xmltree

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/thoreinstein/truffaldino/internal/model"
)

const optionsDoc = `<?xml version="1.0" encoding="UTF-8"?>
<application>
  <component name="EditorSettings">
    <option name="fontSize" value="14"/>
  </component>
  <component name="LLMMcpServers">
    <servers>
      <server name="github" command="npx" args="-y server-github" timeout="30">
        <env key="TOKEN" value="t"/>
      </server>
      <server name="files" command="mcp-files"/>
    </servers>
  </component>
</application>
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llm.mcpServers.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ParsesServers(t *testing.T) {
	a := New("intellij", writeDoc(t, optionsDoc))

	cfg, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Names(); !slices.Equal(got, []string{"github", "files"}) {
		t.Fatalf("Names() = %v, want [github files]", got)
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
	// Unknown attribute captured for round-trip.
	if _, ok := github.Extra["timeout"]; !ok {
		t.Error("Extra missing 'timeout' attribute")
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	a := New("intellij", filepath.Join(t.TempDir(), "absent.xml"))

	cfg, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cfg.Len())
	}
}

func TestLoad_NoComponentIsEmpty(t *testing.T) {
	a := New("intellij", writeDoc(t, `<application><component name="Other"/></application>`))

	cfg, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cfg.Len())
	}
}

func TestLoad_MalformedXML(t *testing.T) {
	a := New("intellij", writeDoc(t, `<application><component`))

	if _, err := a.Load(context.Background()); err == nil {
		t.Error("Load() of malformed XML should fail")
	}
}

func TestSave_PreservesSiblingComponents(t *testing.T) {
	path := writeDoc(t, optionsDoc)
	a := New("intellij", path)

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

	if !strings.Contains(text, `name="EditorSettings"`) {
		t.Errorf("sibling component lost:\n%s", text)
	}
	if !strings.Contains(text, `name="fontSize"`) {
		t.Errorf("sibling component content lost:\n%s", text)
	}
	if !strings.Contains(text, `name="fresh"`) {
		t.Errorf("new server missing:\n%s", text)
	}
	if strings.Contains(text, `name="github"`) {
		t.Errorf("replaced server still present:\n%s", text)
	}
}

func TestSave_CreatesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "llm.mcpServers.xml")
	a := New("intellij", path)

	cfg := model.NewConfig()
	cfg.Set(&model.Entry{Name: "a", Command: "x", Env: map[string]string{"K": "v"}})

	if err := a.Save(context.Background(), cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{ComponentName, `name="a"`, `key="K"`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("created document missing %s:\n%s", want, out)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	a := New("intellij", writeDoc(t, optionsDoc))
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

func TestLoad_DuplicateNamesRejected(t *testing.T) {
	doc := `<application><component name="LLMMcpServers"><servers>
		<server name="a" command="1"/>
		<server name="a" command="2"/>
	</servers></component></application>`
	a := New("intellij", writeDoc(t, doc))

	if _, err := a.Load(context.Background()); err == nil {
		t.Error("Load() with duplicate server names should fail")
	}
}
