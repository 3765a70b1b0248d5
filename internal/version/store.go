// Package version retains timestamped snapshots of tracked configuration
// files and restores them on demand. Snapshots outlive any single sync call;
// retention trims the oldest beyond a configured count.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/paths"
	"github.com/thoreinstein/truffaldino/pkg/fileutil"
)

// timestampLayout names snapshots down to the nanosecond so two snapshots of
// the same file within one process run cannot share a token.
const timestampLayout = "20060102T150405.000000000"

// collisionRetries bounds the disambiguating suffixes tried when a token is
// already taken (clock went backwards, or a parallel writer).
const collisionRetries = 9

// Store manages snapshot retention and restore for tracked files.
type Store struct {
	rootDir   string
	retention int

	// now supplies snapshot timestamps; tests freeze it to force token
	// collisions.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRootDir sets the root snapshot directory.
func WithRootDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.rootDir = dir
		}
	}
}

// WithRetention sets the number of snapshots to retain per file.
func WithRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retention = n
		}
	}
}

// NewStore creates a snapshot store with the given options.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rootDir:   paths.VersionsDir(),
		retention: DefaultRetentionCount,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retention returns the configured per-file retention count.
func (s *Store) Retention() int {
	return s.retention
}

// Snapshot appends a new timestamped record holding bytes for fileID.
// The content is written first, then the manifest; a snapshot without a
// manifest is ignored by List and harmless.
func (s *Store) Snapshot(fileID string, data []byte) (*Record, error) {
	if fileID == "" {
		return nil, errors.New("file identity is required")
	}

	dir := s.fileDir(fileID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating snapshot directory")
	}

	now := s.now().UTC()
	ts, err := s.claimTimestamp(dir, now.Format(timestampLayout))
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	record := &Record{
		Version:   ManifestVersion,
		FileID:    fileID,
		Timestamp: ts,
		CreatedAt: now,
		SHA256:    hex.EncodeToString(sum[:]),
		Size:      int64(len(data)),
	}

	if err := fileutil.AtomicWriteFile(s.contentPath(fileID, ts), data, 0o600); err != nil {
		return nil, errors.Wrap(err, "writing snapshot content")
	}
	if err := fileutil.AtomicWriteJSONWithPerm(s.manifestPath(fileID, ts), record, 0o600); err != nil {
		return nil, errors.Wrap(err, "writing snapshot manifest")
	}

	return record, nil
}

// claimTimestamp reserves a unique timestamp token inside dir. The token
// file blocks concurrent writers from taking the same name.
func (s *Store) claimTimestamp(dir, base string) (string, error) {
	for i := 0; i <= collisionRetries; i++ {
		ts := base
		if i > 0 {
			ts = fmt.Sprintf("%s-%d", base, i)
		}
		f, err := os.OpenFile(filepath.Join(dir, ts+".bak"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", errors.Wrap(err, "claiming snapshot timestamp")
		}
		f.Close()
		return ts, nil
	}
	return "", errors.Wrapf(ErrSnapshotCollision, "timestamp %s", base)
}

// List returns all records for fileID ordered oldest to newest.
func (s *Store) List(fileID string) ([]*Record, error) {
	dir := s.fileDir(fileID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading snapshot directory")
	}

	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		record, err := s.readManifest(filepath.Join(dir, name))
		if err != nil {
			// Skip unreadable manifests rather than failing the listing.
			continue
		}
		record.Timestamp = strings.TrimSuffix(name, ".json")
		records = append(records, record)
	}

	slices.SortFunc(records, func(a, b *Record) int {
		return strings.Compare(a.Timestamp, b.Timestamp)
	})
	return records, nil
}

// Get returns the record for (fileID, timestamp).
func (s *Store) Get(fileID, timestamp string) (*Record, error) {
	record, err := s.readManifest(s.manifestPath(fileID, timestamp))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(ErrVersionNotFound, "%s@%s", fileID, timestamp)
		}
		return nil, err
	}
	record.Timestamp = timestamp
	return record, nil
}

// Content returns the stored bytes for (fileID, timestamp), verified against
// the manifest hash.
func (s *Store) Content(fileID, timestamp string) ([]byte, error) {
	record, err := s.Get(fileID, timestamp)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.contentPath(fileID, timestamp))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrVersionNotFound, "%s@%s", fileID, timestamp)
		}
		return nil, errors.Wrap(err, "reading snapshot content")
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != record.SHA256 {
		return nil, errors.Wrapf(ErrSnapshotCorrupted, "%s@%s", fileID, timestamp)
	}
	return data, nil
}

// Restore writes the snapshot identified by (fileID, timestamp) back to the
// tracked file and returns its bytes. A restore is itself a write: the
// file's current content is snapshotted first, so nothing is lost even when
// restoring the wrong version.
func (s *Store) Restore(fileID, timestamp string) ([]byte, error) {
	data, err := s.Content(fileID, timestamp)
	if err != nil {
		return nil, err
	}

	current, err := os.ReadFile(fileID)
	switch {
	case err == nil:
		if _, err := s.Snapshot(fileID, current); err != nil {
			return nil, errors.Wrap(err, "snapshotting current content")
		}
	case os.IsNotExist(err):
		// Nothing to preserve.
	default:
		return nil, errors.Wrap(err, "reading current content")
	}

	if err := os.MkdirAll(filepath.Dir(fileID), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating target directory")
	}
	if err := fileutil.AtomicWriteFile(fileID, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "restoring file")
	}
	return data, nil
}

// Retain deletes the oldest records for fileID beyond maxCount, preserving
// the newest.
func (s *Store) Retain(fileID string, maxCount int) error {
	if maxCount < 0 {
		return errors.New("maxCount must be non-negative")
	}

	records, err := s.List(fileID)
	if err != nil {
		return err
	}
	if len(records) <= maxCount {
		return nil
	}

	for _, record := range records[:len(records)-maxCount] {
		if err := os.Remove(s.contentPath(fileID, record.Timestamp)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing snapshot %s", record.Timestamp)
		}
		if err := os.Remove(s.manifestPath(fileID, record.Timestamp)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing manifest %s", record.Timestamp)
		}
	}
	return nil
}

func (s *Store) readManifest(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	return &record, nil
}

func (s *Store) fileDir(fileID string) string {
	return filepath.Join(s.rootDir, sanitizeFileID(fileID))
}

func (s *Store) contentPath(fileID, timestamp string) string {
	return filepath.Join(s.fileDir(fileID), timestamp+".bak")
}

func (s *Store) manifestPath(fileID, timestamp string) string {
	return filepath.Join(s.fileDir(fileID), timestamp+".json")
}

// sanitizeFileID flattens a file identity into a single directory name.
// Separators and drive colons are replaced so the result stays inside the
// store root on every platform.
func sanitizeFileID(fileID string) string {
	clean := filepath.Clean(fileID)
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "")
	name := replacer.Replace(clean)
	return strings.TrimPrefix(name, "_")
}
