// Package idstring implements the process-wide-in-spirit, context-owned
// string interning table used for every cell, net, port and wire name in
// the core. An ID is a compact, comparable integer; the table behind it
// gives O(1) id-to-string lookup and amortised O(1) string-to-id
// insertion.
package idstring

import "sync"

// ID is an interned string. The zero value denotes "no name" and is never
// returned by Table.ID for a non-empty string.
type ID int32

// Empty is the reserved ID for the empty string / "no identifier".
const Empty ID = 0

// Valid reports whether id is anything other than Empty.
func (id ID) Valid() bool { return id != Empty }

// Table is a bidirectional string<->ID map. It is owned by a single
// Context (see pnrctx); it is never a package-level global, so two
// Contexts in the same process never share identifiers. Safe for
// concurrent reads; writes (ID interning a new string) are serialised by
// a mutex.
type Table struct {
	mu       sync.RWMutex
	strings  []string       // index 0 is the empty string
	indexOf  map[string]ID
}

// NewTable returns an empty, ready-to-use Table.
func NewTable() *Table {
	return &Table{
		strings: []string{""},
		indexOf: map[string]ID{"": Empty},
	}
}

// ID interns s, returning its ID. Repeated calls with the same s return
// the same ID. The empty string always maps to Empty.
func (t *Table) ID(s string) ID {
	if s == "" {
		return Empty
	}
	t.mu.RLock()
	if id, ok := t.indexOf[s]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.indexOf[s]; ok {
		return id
	}
	id := ID(len(t.strings))
	t.strings = append(t.strings, s)
	t.indexOf[s] = id
	return id
}

// Str returns the string for id. Panics if id was never interned by
// this table, matching the binding-API convention of failing fast on
// programmer error.
func (t *Table) Str(id ID) string {
	if id == Empty {
		return ""
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(t.strings) {
		panic("idstring: unknown id")
	}
	return t.strings[id]
}

// Len returns the number of interned strings, including the empty string.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strings)
}

// List returns all interned strings, in ID order. Used by deterministic
// iteration sites that need a stable, sorted-by-id view
// instead of ranging over a map.
func (t *Table) List() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.strings))
	copy(out, t.strings)
	return out
}

// StringList is a hierarchical multi-component identifier, e.g. a cell
// name built from several path segments ("tile_0_0/LUT4_A"). Components
// are joined with '/' when interned.
func StringList(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "/" + p
	}
	return out
}
