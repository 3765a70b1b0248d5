package model

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
)

// Entry represents one named MCP server definition in the canonical format
// that every application adapter translates to and from.
type Entry struct {
	// Name is the server's unique identifier within a configuration.
	Name string `json:"name"`

	// Command is the executable launched for the server.
	Command string `json:"command,omitempty"`

	// Args are command-line arguments passed to Command, in order.
	Args []string `json:"args,omitempty"`

	// Env contains environment variables passed to the server process.
	Env map[string]string `json:"env,omitempty"`

	// Extra stores native fields the canonical format does not understand.
	// They are preserved verbatim on round-trip so a sync never discards
	// configuration an application depends on.
	Extra map[string]json.RawMessage `json:"-"`
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := &Entry{
		Name:    e.Name,
		Command: e.Command,
		Args:    slices.Clone(e.Args),
		Env:     maps.Clone(e.Env),
	}
	if e.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = slices.Clone(v)
		}
	}
	return c
}

// Equal reports full structural equality of all fields, including Extra.
// Two entries that launch the same command written differently (path
// separators, shell quoting) are not equal; no normalization is applied.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Name != other.Name || e.Command != other.Command {
		return false
	}
	if !slices.Equal(e.Args, other.Args) {
		return false
	}
	if !envEqual(e.Env, other.Env) {
		return false
	}
	return extraEqual(e.Extra, other.Extra)
}

func envEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	return maps.Equal(a, b)
}

// extraEqual compares opaque fields by decoded value rather than raw bytes,
// so formatting differences between native files do not register as conflicts.
func extraEqual(a, b map[string]json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		var ad, bd any
		if err := json.Unmarshal(av, &ad); err != nil {
			return false
		}
		if err := json.Unmarshal(bv, &bd); err != nil {
			return false
		}
		if !reflect.DeepEqual(ad, bd) {
			return false
		}
	}
	return true
}

// MarshalJSON emits the canonical fields merged with Extra.
// Canonical fields take precedence on key collision.
func (e *Entry) MarshalJSON() ([]byte, error) {
	result := make(map[string]any, len(e.Extra)+3)
	for k, v := range e.Extra {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, err
		}
		result[k] = val
	}
	if e.Command != "" {
		result["command"] = e.Command
	}
	if len(e.Args) > 0 {
		result["args"] = e.Args
	}
	if len(e.Env) > 0 {
		result["env"] = e.Env
	}
	return json.Marshal(result)
}

// UnmarshalJSON captures unknown fields into Extra.
// The entry name is not part of the per-entry JSON object; callers set it
// from the enclosing map key.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["command"]; ok {
		if err := json.Unmarshal(v, &e.Command); err != nil {
			return err
		}
		delete(raw, "command")
	}
	if v, ok := raw["args"]; ok {
		if err := json.Unmarshal(v, &e.Args); err != nil {
			return err
		}
		delete(raw, "args")
	}
	if v, ok := raw["env"]; ok {
		if err := json.Unmarshal(v, &e.Env); err != nil {
			return err
		}
		delete(raw, "env")
	}

	if len(raw) > 0 {
		e.Extra = raw
	}
	return nil
}
