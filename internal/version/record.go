package version

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Manifest format version for forward compatibility.
const ManifestVersion = 1

// DefaultRetentionCount is the default number of snapshots retained per file.
const DefaultRetentionCount = 10

// Sentinel errors for version store operations.
var (
	// ErrVersionNotFound indicates no snapshot exists for the requested
	// file identity and timestamp.
	ErrVersionNotFound = errors.New("version not found")

	// ErrSnapshotCollision indicates a timestamp token could not be
	// disambiguated after exhausting retry suffixes. Snapshots are never
	// silently overwritten.
	ErrSnapshotCollision = errors.New("snapshot collision")

	// ErrSnapshotCorrupted indicates snapshot content no longer matches
	// its recorded SHA256 hash.
	ErrSnapshotCorrupted = errors.New("snapshot corrupted")
)

// Record describes one immutable snapshot of a tracked file.
// Records for a given file form an append-only, time-ordered sequence.
type Record struct {
	// Version is the manifest format version.
	Version int `json:"version"`

	// FileID is the identity of the tracked file (its absolute path).
	FileID string `json:"file_id"`

	// Timestamp is the sortable token naming this snapshot.
	// Populated from the manifest file name when loading from disk.
	Timestamp string `json:"-"`

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`

	// SHA256 is the hex-encoded hash of the snapshot content.
	SHA256 string `json:"sha256"`

	// Size is the snapshot content length in bytes.
	Size int64 `json:"size"`
}
