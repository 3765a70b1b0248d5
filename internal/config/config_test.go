package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	Init()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.RetentionCount != 10 {
		t.Errorf("RetentionCount = %d, want 10", cfg.RetentionCount)
	}
	if cfg.DefaultMode != "smart" {
		t.Errorf("DefaultMode = %q, want smart", cfg.DefaultMode)
	}
	if cfg.CommandTimeout != 30*time.Second {
		t.Errorf("CommandTimeout = %v, want 30s", cfg.CommandTimeout)
	}
	if cfg.VersionsDir == "" {
		t.Error("VersionsDir should default to a non-empty path")
	}
}

func TestLoad_FromFile(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
retention_count: 3
default_mode: merge
command_timeout: 10s
editor: hx
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RetentionCount != 3 {
		t.Errorf("RetentionCount = %d, want 3", cfg.RetentionCount)
	}
	if cfg.DefaultMode != "merge" {
		t.Errorf("DefaultMode = %q, want merge", cfg.DefaultMode)
	}
	if cfg.CommandTimeout != 10*time.Second {
		t.Errorf("CommandTimeout = %v, want 10s", cfg.CommandTimeout)
	}
	if cfg.Editor != "hx" {
		t.Errorf("Editor = %q, want hx", cfg.Editor)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("Load() with explicit missing path should fail")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"bad mode", "version: 1\ndefault_mode: overwrite\n"},
		{"bad retention", "version: 1\nretention_count: 0\n"},
		{"bad timeout", "version: 1\ncommand_timeout: -1s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)

			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should reject invalid config")
			}
		})
	}
}
