package conflict

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/model"
)

func sampleConflicts() []Conflict {
	return []Conflict{
		{
			Name:   "github",
			Source: &model.Entry{Name: "github", Command: "npx", Args: []string{"-y", "server-github"}},
			Target: &model.Entry{Name: "github", Command: "node", Args: []string{"github.js"}},
		},
		{
			Name:   "postgres",
			Source: &model.Entry{Name: "postgres", Command: "pg-mcp"},
			Target: &model.Entry{Name: "postgres", Command: "pg-mcp", Env: map[string]string{"DSN": "x"}},
		},
	}
}

func TestRender_Deterministic(t *testing.T) {
	conflicts := sampleConflicts()

	a, err := Render(conflicts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	b, err := Render(conflicts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if a != b {
		t.Error("Render() is not deterministic for identical input")
	}

	for _, want := range []string{"## Server: github", "## Server: postgres", "# KEEP: source", "# KEEP: target"} {
		if !strings.Contains(a, want) {
			t.Errorf("artifact missing %q", want)
		}
	}
}

func TestRender_NothingPreSelected(t *testing.T) {
	text, err := Render(sampleConflicts())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// Every KEEP line must start commented.
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, keepPrefix) {
			t.Errorf("artifact pre-selects a choice: %q", line)
		}
	}
}

func TestParse_ValidResolution(t *testing.T) {
	conflicts := sampleConflicts()
	text, err := Render(conflicts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// Uncomment one KEEP per server: source for github, target for postgres.
	edited := uncommentKeep(text, "github", "source")
	edited = uncommentKeep(edited, "postgres", "target")

	choices, err := Parse(edited, conflicts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if choices["github"] != ChoiceSource {
		t.Errorf("github choice = %q, want source", choices["github"])
	}
	if choices["postgres"] != ChoiceTarget {
		t.Errorf("postgres choice = %q, want target", choices["postgres"])
	}
}

func TestParse_NoChoiceIsAmbiguous(t *testing.T) {
	conflicts := sampleConflicts()
	text, err := Render(conflicts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	_, err = Parse(text, conflicts)
	if !errors.Is(err, ErrAmbiguousResolution) {
		t.Errorf("Parse(unedited) error = %v, want ErrAmbiguousResolution", err)
	}
}

func TestParse_BothChoicesIsAmbiguous(t *testing.T) {
	conflicts := sampleConflicts()[:1]
	text, err := Render(conflicts)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	edited := strings.ReplaceAll(text, "# KEEP: source", "KEEP: source")
	edited = strings.ReplaceAll(edited, "# KEEP: target", "KEEP: target")

	_, err = Parse(edited, conflicts)
	if !errors.Is(err, ErrAmbiguousResolution) {
		t.Errorf("Parse(both uncommented) error = %v, want ErrAmbiguousResolution", err)
	}
}

func TestParse_UnknownServerName(t *testing.T) {
	conflicts := sampleConflicts()[:1]
	text := "## Server: invented\nKEEP: source\n"

	_, err := Parse(text, conflicts)
	if !errors.Is(err, ErrUnknownServerName) {
		t.Errorf("Parse(unknown name) error = %v, want ErrUnknownServerName", err)
	}
}

func TestParse_InvalidChoiceValue(t *testing.T) {
	conflicts := sampleConflicts()[:1]
	text := "## Server: github\nKEEP: both\n"

	_, err := Parse(text, conflicts)
	if !errors.Is(err, ErrAmbiguousResolution) {
		t.Errorf("Parse(invalid choice) error = %v, want ErrAmbiguousResolution", err)
	}
}

// uncommentKeep uncomments the KEEP line with the given choice inside the
// named server's section.
func uncommentKeep(text, server, choice string) string {
	lines := strings.Split(text, "\n")
	inSection := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, serverHeading) {
			inSection = strings.TrimSpace(strings.TrimPrefix(trimmed, serverHeading)) == server
			continue
		}
		if inSection && trimmed == "# "+keepPrefix+" "+choice {
			lines[i] = keepPrefix + " " + choice
		}
	}
	return strings.Join(lines, "\n")
}
