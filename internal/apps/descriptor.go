// Package apps defines the static descriptors for every supported AI
// application and resolves their platform-specific configuration locators.
// The engine never touches platform path differences; they end here.
package apps

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/thoreinstein/truffaldino/internal/paths"
)

// Format tags the adapter variant an application uses.
type Format string

const (
	// FormatJSON is a JSON object keyed by server name.
	FormatJSON Format = "json"

	// FormatXML is an IntelliJ-style options document.
	FormatXML Format = "xml"

	// FormatTOML is a TOML settings tree with [mcp.servers.*] tables.
	FormatTOML Format = "toml"

	// FormatCLI has no file; the application is driven through its own CLI.
	FormatCLI Format = "cli"
)

// Application identifiers.
const (
	ClaudeDesktop = "claude-desktop"
	ClaudeCode    = "claude-code"
	Cline         = "cline"
	Cursor        = "cursor"
	IntelliJ      = "intellij"
	Gemini        = "gemini"
)

// Descriptor holds the static metadata for one supported application.
// Descriptors are defined once and never mutated at runtime.
type Descriptor struct {
	// ID is the stable application identifier.
	ID string

	// Name is the human-readable application name.
	Name string

	// Format selects the adapter variant.
	Format Format

	// SupportsMCP reports whether the application has MCP configuration.
	SupportsMCP bool

	// SupportsPrompt reports whether the application has a system prompt file.
	SupportsPrompt bool

	// Binary is the external command for FormatCLI applications.
	Binary string

	// configPath resolves the config file for the current platform,
	// or "" when unresolvable (unsupported OS, missing install).
	configPath func() string

	// promptPath resolves the system prompt file, or "".
	promptPath func() string
}

// ConfigPath returns the application's config file path for the current
// platform, or "" for CLI-driven applications and unsupported platforms.
func (d Descriptor) ConfigPath() string {
	if d.configPath == nil {
		return ""
	}
	return d.configPath()
}

// PromptPath returns the application's system prompt path, or "".
func (d Descriptor) PromptPath() string {
	if d.promptPath == nil {
		return ""
	}
	return d.promptPath()
}

// descriptors lists supported applications in the canonical display order.
var descriptors = []Descriptor{
	{
		ID:          ClaudeDesktop,
		Name:        "Claude Desktop",
		Format:      FormatJSON,
		SupportsMCP: true,
		configPath: func() string {
			switch runtime.GOOS {
			case "darwin":
				return filepath.Join(paths.Home(), "Library", "Application Support", "Claude", "claude_desktop_config.json")
			case "windows":
				return filepath.Join(paths.Home(), "AppData", "Roaming", "Claude", "config.json")
			default:
				return filepath.Join(paths.Home(), ".config", "claude", "config.json")
			}
		},
	},
	{
		ID:          ClaudeCode,
		Name:        "Claude Code",
		Format:      FormatCLI,
		SupportsMCP: true,
		Binary:      "claude",
	},
	{
		ID:             Cline,
		Name:           "Cline",
		Format:         FormatJSON,
		SupportsMCP:    true,
		SupportsPrompt: true,
		configPath: func() string {
			return filepath.Join(paths.Home(), ".cline", "mcp_settings.json")
		},
		promptPath: func() string {
			return filepath.Join(paths.Home(), ".cline", "system_prompt.txt")
		},
	},
	{
		ID:             Cursor,
		Name:           "Cursor",
		Format:         FormatJSON,
		SupportsMCP:    true,
		SupportsPrompt: true,
		configPath: func() string {
			return filepath.Join(paths.Home(), ".cursor", "mcp_config.json")
		},
		promptPath: func() string {
			return filepath.Join(paths.Home(), ".cursor", "system_prompt.txt")
		},
	},
	{
		ID:             IntelliJ,
		Name:           "IntelliJ IDEA",
		Format:         FormatXML,
		SupportsMCP:    true,
		SupportsPrompt: true,
		configPath: func() string {
			dir := intellijOptionsDir()
			if dir == "" {
				return ""
			}
			return filepath.Join(dir, "llm.mcpServers.xml")
		},
		promptPath: func() string {
			dir := intellijOptionsDir()
			if dir == "" {
				return ""
			}
			return filepath.Join(dir, "ai_assistant_system_prompt.txt")
		},
	},
	{
		ID:          Gemini,
		Name:        "Gemini CLI",
		Format:      FormatTOML,
		SupportsMCP: true,
		configPath: func() string {
			return filepath.Join(paths.Home(), ".gemini", "settings.toml")
		},
	},
}

// jetbrainsBaseDir returns the JetBrains configuration root for the current
// platform.
func jetbrainsBaseDir() string {
	home := paths.Home()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "JetBrains")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "JetBrains")
	default:
		return filepath.Join(home, ".config", "JetBrains")
	}
}

// intellijOptionsDir locates the options directory of the most recent
// IntelliJ IDEA installation, or "" when none is found.
func intellijOptionsDir() string {
	base := jetbrainsBaseDir()
	if base == "" {
		return ""
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return ""
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "IntelliJIdea") {
			versions = append(versions, entry.Name())
		}
	}
	if len(versions) == 0 {
		return ""
	}

	// Version directories sort lexically (IntelliJIdea2024.3 > IntelliJIdea2024.1).
	sort.Strings(versions)
	return filepath.Join(base, versions[len(versions)-1], "options")
}
