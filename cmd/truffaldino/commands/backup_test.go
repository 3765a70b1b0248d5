package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/thoreinstein/truffaldino/internal/config"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	prev := appConfig
	appConfig = &config.Config{
		Version:        1,
		VersionsDir:    t.TempDir(),
		RetentionCount: 10,
		DefaultMode:    "smart",
		CommandTimeout: 30 * time.Second,
	}
	t.Cleanup(func() { appConfig = prev })
}

func TestRunBackupList_Empty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setTestConfig(t)

	var buf bytes.Buffer
	if err := runBackupListWithWriter(&buf, "cursor"); err != nil {
		t.Fatalf("runBackupListWithWriter() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No snapshots available") {
		t.Errorf("expected empty-state message, got:\n%s", buf.String())
	}
}

func TestRunBackupList_UnknownApp(t *testing.T) {
	setTestConfig(t)

	var buf bytes.Buffer
	if err := runBackupListWithWriter(&buf, "emacs"); err == nil {
		t.Error("unknown application should fail")
	}
}

func TestRunBackupPrune_NothingToDo(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setTestConfig(t)

	var buf bytes.Buffer
	if err := runBackupPruneWithWriter(&buf, "cline"); err != nil {
		t.Fatalf("runBackupPruneWithWriter() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing to prune") {
		t.Errorf("expected nothing-to-prune message, got:\n%s", buf.String())
	}
}

func TestRunBackupList_AfterSnapshot(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setTestConfig(t)

	store := backupStore()
	_, fileID, err := backupTarget("cursor")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Snapshot(fileID, []byte(`{"mcpServers":{}}`)); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := runBackupListWithWriter(&buf, "cursor"); err != nil {
		t.Fatalf("runBackupListWithWriter() error = %v", err)
	}
	if !strings.Contains(buf.String(), "TIMESTAMP") {
		t.Errorf("expected snapshot table, got:\n%s", buf.String())
	}
}
