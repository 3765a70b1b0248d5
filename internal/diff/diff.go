// Package diff computes structured differences between two canonical MCP
// configurations.
//
// Comparison is by server name, then by full structural equality of the
// entry. Commands that are semantically equivalent but written differently
// (path separators, quoting) are reported as conflicts; no normalization is
// attempted.
package diff

import "github.com/thoreinstein/truffaldino/internal/model"

// Result holds the outcome of comparing a source configuration against a
// target. The Added, Unchanged, and Conflicting sets are disjoint and follow
// the source's insertion order. TargetOnly lists names present only in the
// target, in the target's insertion order; they matter only under replace
// mode, which drops them.
type Result struct {
	Added       []string `json:"added"`
	Unchanged   []string `json:"unchanged"`
	Conflicting []string `json:"conflicting"`
	TargetOnly  []string `json:"target_only"`
}

// Empty reports whether source and target are already in sync from the
// source's point of view: nothing to add and nothing conflicting.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Conflicting) == 0
}

// Compute compares source against target. It is pure: neither configuration
// is modified and the result depends only on the inputs.
func Compute(source, target *model.Config) Result {
	var r Result
	for _, name := range source.Names() {
		switch {
		case !target.Has(name):
			r.Added = append(r.Added, name)
		case source.Get(name).Equal(target.Get(name)):
			r.Unchanged = append(r.Unchanged, name)
		default:
			r.Conflicting = append(r.Conflicting, name)
		}
	}
	for _, name := range target.Names() {
		if !source.Has(name) {
			r.TargetOnly = append(r.TargetOnly, name)
		}
	}
	return r
}
