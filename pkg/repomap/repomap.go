// Package repomap holds the static table of path prefixes and the upstream
// mirror each of them is forwarded to. The table is built once at startup from
// a number of groups and is read-only afterwards, so it can be shared by any
// number of concurrent requests.
package repomap

import (
	"fmt"
	"sort"
	"strings"
)

// Entry maps a path prefix to the base URL of an upstream mirror.
type Entry struct {
	Prefix   string `json:"prefix"`   // Path prefix starting with "/", never ending with "/"
	Upstream string `json:"upstream"` // Absolute URL without trailing slash
	Group    string `json:"group"`    // Name of the group which declared the entry
}

// Group is a named, ordered list of entries.
type Group struct {
	Name    string
	Entries []Entry
}

// Table is the merged lookup structure of all groups.
type Table struct {
	entries map[string]Entry
	order   []string
}

// Build merges the given groups into one table. Groups are applied in the
// given order, an entry of a later group replaces an entry with the same prefix
// declared by an earlier group.
func Build(groups ...Group) (*Table, error) {
	t := &Table{
		entries: make(map[string]Entry),
	}

	for _, group := range groups {
		for _, entry := range group.Entries {
			if err := validateEntry(entry); err != nil {
				return nil, fmt.Errorf("group %s: %w", group.Name, err)
			}

			entry.Group = group.Name
			if _, ok := t.entries[entry.Prefix]; !ok {
				t.order = append(t.order, entry.Prefix)
			}
			t.entries[entry.Prefix] = entry
		}
	}

	return t, nil
}

// Default builds the table from the built-in groups in the order base, ARM,
// RISC-V.
func Default() *Table {
	t, err := Build(Base(), ARM(), RISCV())
	if err != nil {
		// The built-in groups are constants, a failure is a programming error.
		panic(err)
	}
	return t
}

func validateEntry(entry Entry) error {
	if !strings.HasPrefix(entry.Prefix, "/") {
		return fmt.Errorf("prefix %q must start with /", entry.Prefix)
	}
	if entry.Prefix == "/" || strings.HasSuffix(entry.Prefix, "/") {
		return fmt.Errorf("prefix %q must not end with /", entry.Prefix)
	}
	if entry.Upstream == "" {
		return fmt.Errorf("prefix %q has no upstream", entry.Prefix)
	}
	if strings.HasSuffix(entry.Upstream, "/") {
		return fmt.Errorf("upstream %q of prefix %q must not end with /", entry.Upstream, entry.Prefix)
	}
	return nil
}

// Entry returns the entry declared for exactly the given prefix.
func (t *Table) Entry(prefix string) (Entry, bool) {
	entry, ok := t.entries[prefix]
	return entry, ok
}

// Lookup returns the entry whose prefix matches the given path, either because
// the path equals the prefix or because it continues with "/" after it. If
// more than one prefix matches, the longest one wins.
func (t *Table) Lookup(path string) (Entry, bool) {
	var (
		found Entry
		ok    bool
	)

	for _, prefix := range t.order {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		if !ok || len(prefix) > len(found.Prefix) {
			found = t.entries[prefix]
			ok = true
		}
	}

	return found, ok
}

// Entries returns all entries in the order their prefix was first declared.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.order))
	for _, prefix := range t.order {
		entries = append(entries, t.entries[prefix])
	}
	return entries
}

// Len returns the number of distinct prefixes.
func (t *Table) Len() int {
	return len(t.order)
}

// Collisions reports every pair of prefixes where one is a path parent of the
// other, e.g. "/debian" and "/debian/ports". Each pair is returned as
// "parent -> child" and the result is sorted.
func (t *Table) Collisions() []string {
	var collisions []string
	for _, a := range t.order {
		for _, b := range t.order {
			if a != b && strings.HasPrefix(b, a+"/") {
				collisions = append(collisions, a+" -> "+b)
			}
		}
	}
	sort.Strings(collisions)
	return collisions
}

// CheckDisjoint returns an error if the table contains nested prefixes.
func (t *Table) CheckDisjoint() error {
	if collisions := t.Collisions(); len(collisions) > 0 {
		return fmt.Errorf("nested repository prefixes: %s", strings.Join(collisions, ", "))
	}
	return nil
}
