// Package model defines the canonical in-memory representation of MCP
// server configurations shared by every format adapter.
package model

import (
	"encoding/json"
	"slices"
)

// Config is an insertion-ordered mapping from server name to Entry.
//
// Names are unique. Iteration order follows insertion order so that
// serialization and diff output are deterministic across runs.
type Config struct {
	names   []string
	entries map[string]*Entry
}

// NewConfig creates an empty configuration.
func NewConfig() *Config {
	return &Config{
		entries: make(map[string]*Entry),
	}
}

// Len returns the number of entries.
func (c *Config) Len() int {
	return len(c.names)
}

// Names returns the server names in insertion order.
// The returned slice is a copy.
func (c *Config) Names() []string {
	return slices.Clone(c.names)
}

// Get returns the entry for name, or nil if absent.
func (c *Config) Get(name string) *Entry {
	return c.entries[name]
}

// Has reports whether an entry with the given name exists.
func (c *Config) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Set adds or replaces the entry under entry.Name.
// A replaced entry keeps its original position; a new one is appended.
func (c *Config) Set(entry *Entry) {
	if entry == nil || entry.Name == "" {
		return
	}
	if _, exists := c.entries[entry.Name]; !exists {
		c.names = append(c.names, entry.Name)
	}
	c.entries[entry.Name] = entry
}

// Delete removes the entry with the given name, if present.
func (c *Config) Delete(name string) {
	if _, ok := c.entries[name]; !ok {
		return
	}
	delete(c.entries, name)
	c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
}

// Entries returns the entries in insertion order.
func (c *Config) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.entries[name])
	}
	return out
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := NewConfig()
	for _, name := range c.names {
		out.Set(c.entries[name].Clone())
	}
	return out
}

// Equal reports whether both configurations contain structurally equal
// entries under the same names. Insertion order does not affect equality.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Len() != other.Len() {
		return false
	}
	for _, name := range c.names {
		if !c.entries[name].Equal(other.Get(name)) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the configuration as an object keyed by server name,
// preserving insertion order.
func (c *Config) MarshalJSON() ([]byte, error) {
	var buf []byte
	buf = append(buf, '{')
	for i, name := range c.names {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.entries[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON parses an object keyed by server name. Go's JSON decoder
// does not expose object key order, so entries are inserted in sorted name
// order to keep the result deterministic.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw map[string]*Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.names = nil
	c.entries = make(map[string]*Entry, len(raw))
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		e := raw[name]
		if e == nil {
			e = &Entry{}
		}
		e.Name = name
		c.Set(e)
	}
	return nil
}
