// Package geo reconciles free-text country labels with the names used by the
// world map geometry.
package geo

import (
	_ "embed"
	"slices"
	"strings"
	"sync"
)

//go:embed world_110m.txt
var world110m string

// ReferenceSet is the fixed set of country names present in the map geometry.
type ReferenceSet struct {
	names  []string
	exact  map[string]struct{}
	folded map[string]string
}

var (
	refOnce sync.Once
	ref     *ReferenceSet
)

// Reference returns the embedded Natural Earth 1:110m admin-0 name set.
func Reference() *ReferenceSet {
	refOnce.Do(func() {
		ref = newReferenceSet(strings.Split(world110m, "\n"))
	})

	return ref
}

func newReferenceSet(lines []string) *ReferenceSet {
	rs := &ReferenceSet{
		exact:  make(map[string]struct{}, len(lines)),
		folded: make(map[string]string, len(lines)),
	}

	for _, line := range lines {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if _, dup := rs.exact[name]; dup {
			continue
		}

		rs.names = append(rs.names, name)
		rs.exact[name] = struct{}{}
		rs.folded[fold(name)] = name
	}

	slices.Sort(rs.names)

	return rs
}

// Has reports whether name is spelled exactly as in the geometry.
func (rs *ReferenceSet) Has(name string) bool {
	_, ok := rs.exact[name]
	return ok
}

// Names returns every reference name in sorted order.
func (rs *ReferenceSet) Names() []string {
	return slices.Clone(rs.names)
}

// Len returns the number of reference names.
func (rs *ReferenceSet) Len() int {
	return len(rs.names)
}

func (rs *ReferenceSet) canonical(label string) (string, bool) {
	name, ok := rs.folded[fold(label)]
	return name, ok
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
