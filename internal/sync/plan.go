package sync

import (
	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/apps"
	"github.com/thoreinstein/truffaldino/internal/conflict"
	"github.com/thoreinstein/truffaldino/internal/diff"
	"github.com/thoreinstein/truffaldino/internal/model"
)

// Mode selects the conflict-handling policy for a sync operation.
type Mode string

const (
	// ModeMerge adds source entries missing from the target and touches
	// nothing else. Never loses a target-only entry.
	ModeMerge Mode = "merge"

	// ModeReplace makes the target identical to the source, dropping
	// target-only entries. Explicitly destructive; callers must
	// acknowledge before the engine will apply it.
	ModeReplace Mode = "replace"

	// ModeSmart merges additions and resolves conflicting entries through
	// user-supplied decisions. With conflicts left unresolved the engine
	// fails before writing rather than guessing.
	ModeSmart Mode = "smart"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMerge, ModeReplace, ModeSmart:
		return Mode(s), nil
	}
	return "", errors.Newf("invalid sync mode %q (valid: merge, replace, smart)", s)
}

// State tracks a target through the sync state machine. Success runs
// LOADED → DIFFED → RESOLVED → BACKED_UP → WRITTEN; any error moves the
// target to FAILED. Targets whose application is not installed are SKIPPED.
type State string

const (
	StateLoaded   State = "LOADED"
	StateDiffed   State = "DIFFED"
	StateResolved State = "RESOLVED"
	StateBackedUp State = "BACKED_UP"
	StateWritten  State = "WRITTEN"
	StateFailed   State = "FAILED"
	StateSkipped  State = "SKIPPED"
)

// Plan is the computed, not-yet-applied outcome of comparing one source
// against each target. Callers inspect it (destructive flags, conflicts),
// gather resolutions if needed, then pass it to Engine.Apply.
type Plan struct {
	// SourceApp identifies the source application.
	SourceApp string

	// Mode is the policy the plan was computed under.
	Mode Mode

	// Source is the loaded source configuration.
	Source *model.Config

	// Targets holds one planned operation per target application.
	Targets []*TargetPlan
}

// HasConflicts reports whether any non-skipped target has conflicting entries.
func (p *Plan) HasConflicts() bool {
	for _, t := range p.Targets {
		if t.State != StateSkipped && len(t.Conflicts) > 0 {
			return true
		}
	}
	return false
}

// TargetPlan is the planned operation for one target.
type TargetPlan struct {
	// App identifies the target application.
	App string

	// State is the target's current position in the state machine.
	State State

	// Destructive is true when applying the plan can drop target-only
	// entries (replace mode). Callers must acknowledge destructive plans
	// before Apply will execute them.
	Destructive bool

	// Diff is the structured difference between source and this target.
	Diff diff.Result

	// Conflicts pairs both candidate entries for each conflicting name,
	// in diff order. Only smart mode consumes them.
	Conflicts []conflict.Conflict

	// Target is the loaded target configuration. Nil for skipped targets.
	Target *model.Config

	// Err records why a target was skipped at planning time.
	Err error

	desc apps.Descriptor
}
