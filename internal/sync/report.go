package sync

import (
	"github.com/thoreinstein/truffaldino/internal/version"
)

// Report is the sole externally observable result of a sync call: one flat
// record per target, expressible as JSON or YAML for any caller, interactive
// or automated.
type Report struct {
	SourceApp string         `json:"source_app" yaml:"source_app"`
	Mode      Mode           `json:"mode" yaml:"mode"`
	Targets   []TargetReport `json:"targets" yaml:"targets"`
}

// TargetReport summarizes the outcome for one target application.
type TargetReport struct {
	App         string `json:"app" yaml:"app"`
	State       State  `json:"state" yaml:"state"`
	Added       int    `json:"added" yaml:"added"`
	Unchanged   int    `json:"unchanged" yaml:"unchanged"`
	Conflicting int    `json:"conflicting" yaml:"conflicting"`
	TargetOnly  int    `json:"target_only" yaml:"target_only"`

	// Snapshot is the version record created before the write, if any.
	Snapshot *version.Record `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`

	// Error describes the specific condition for FAILED or SKIPPED targets.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded reports whether every non-skipped target reached WRITTEN.
func (r *Report) Succeeded() bool {
	for _, t := range r.Targets {
		if t.State != StateWritten && t.State != StateSkipped {
			return false
		}
	}
	return true
}
