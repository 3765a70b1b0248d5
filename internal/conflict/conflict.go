// Package conflict turns unresolved sync conflicts into a human-editable
// artifact and parses the edited artifact back into decisions.
//
// Rendering and parsing are split into two phases because an external editor
// sits between them: the caller owns the wait and can time out or cancel
// without corrupting engine state.
package conflict

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/truffaldino/internal/model"
)

// Choice represents which side of a conflict the user kept.
type Choice string

const (
	// ChoiceSource keeps the source entry, overwriting the target's.
	ChoiceSource Choice = "source"

	// ChoiceTarget keeps the target entry unchanged.
	ChoiceTarget Choice = "target"
)

// Sentinel errors for resolution parsing. Both are recoverable: the caller
// may re-present the artifact for another editing pass.
var (
	// ErrAmbiguousResolution indicates a conflicting name has zero or more
	// than one KEEP marker uncommented.
	ErrAmbiguousResolution = errors.New("ambiguous resolution")

	// ErrUnknownServerName indicates the artifact references a name absent
	// from the original conflict set.
	ErrUnknownServerName = errors.New("unknown server name")
)

// Conflict pairs the two candidate entries for one server name.
type Conflict struct {
	Name   string
	Source *model.Entry
	Target *model.Entry
}

const (
	serverHeading = "## Server:"
	keepPrefix    = "KEEP:"
)

// Render produces the editable artifact text for the given conflicts.
// Output is deterministic: conflicts render in the order given, candidates
// as stable indented JSON, and no choice is pre-selected.
func Render(conflicts []Conflict) (string, error) {
	var b strings.Builder

	b.WriteString("# Truffaldino configuration conflicts\n")
	b.WriteString("# Edit this file to resolve conflicts, then save and exit.\n")
	b.WriteString("# For each server below, uncomment exactly one KEEP line.\n")
	b.WriteString(strings.Repeat("#", 60) + "\n\n")

	for _, c := range conflicts {
		fmt.Fprintf(&b, "%s %s\n\n", serverHeading, c.Name)

		b.WriteString("### Option 1 (source):\n")
		if err := writeEntry(&b, c.Source); err != nil {
			return "", err
		}
		b.WriteString("\n### Option 2 (target):\n")
		if err := writeEntry(&b, c.Target); err != nil {
			return "", err
		}

		b.WriteString("\n### Your choice (uncomment one):\n")
		fmt.Fprintf(&b, "# %s source\n", keepPrefix)
		fmt.Fprintf(&b, "# %s target\n", keepPrefix)
		b.WriteString("\n" + strings.Repeat("-", 60) + "\n\n")
	}

	return b.String(), nil
}

// writeEntry renders an entry as commented, indented JSON so the artifact
// stays valid regardless of what the entry contains.
func writeEntry(b *strings.Builder, entry *model.Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "rendering entry %q", entry.Name)
	}
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(b, "# %s\n", line)
	}
	return nil
}

// Parse reads the edited artifact back into per-name choices. Every name in
// conflicts must have exactly one KEEP line uncommented; any name mentioned
// in the artifact but absent from conflicts is rejected.
func Parse(text string, conflicts []Conflict) (map[string]Choice, error) {
	known := make(map[string]struct{}, len(conflicts))
	for _, c := range conflicts {
		known[c.Name] = struct{}{}
	}

	choices := make(map[string]Choice)
	counts := make(map[string]int)
	current := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if after, ok := strings.CutPrefix(line, serverHeading); ok {
			current = strings.TrimSpace(after)
			if _, ok := known[current]; !ok {
				return nil, errors.Wrapf(ErrUnknownServerName, "%q", current)
			}
			continue
		}

		// Only uncommented KEEP lines count as decisions.
		after, ok := strings.CutPrefix(line, keepPrefix)
		if !ok {
			continue
		}
		if current == "" {
			return nil, errors.Wrap(ErrUnknownServerName, "KEEP line before any server heading")
		}

		choice := Choice(strings.TrimSpace(after))
		if choice != ChoiceSource && choice != ChoiceTarget {
			return nil, errors.Wrapf(ErrAmbiguousResolution, "server %q: invalid choice %q", current, choice)
		}
		counts[current]++
		choices[current] = choice
	}

	for _, c := range conflicts {
		if counts[c.Name] != 1 {
			return nil, errors.Wrapf(ErrAmbiguousResolution,
				"server %q has %d choices, want exactly 1", c.Name, counts[c.Name])
		}
	}
	return choices, nil
}
