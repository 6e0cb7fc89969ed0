// Package query turns filter selections into canonical backend query strings.
package query

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Facet is one filterable dimension accepted by the backend's data endpoint.
type Facet string

// Known facets. The set is fixed; anything else is rejected by ParseFacet.
const (
	EndYear      Facet = "end_year"
	Topics       Facet = "topics"
	Sectors      Facet = "sectors"
	Regions      Facet = "regions"
	Pestles      Facet = "pestles"
	Sources      Facet = "sources"
	Countries    Facet = "countries"
	IntensityMin Facet = "intensity_min"
	IntensityMax Facet = "intensity_max"
)

type facetKind int

const (
	kindScalar facetKind = iota
	kindMulti
	kindRange
)

var facetKinds = map[Facet]facetKind{
	EndYear:      kindScalar,
	Topics:       kindMulti,
	Sectors:      kindMulti,
	Regions:      kindMulti,
	Pestles:      kindMulti,
	Sources:      kindMulti,
	Countries:    kindMulti,
	IntensityMin: kindRange,
	IntensityMax: kindRange,
}

// Sentinel errors for selection parsing.
var (
	ErrUnknownFacet = errors.New("unknown facet")
	ErrInvalidRange = errors.New("range facet must be a finite number")
	ErrScalarFacet  = errors.New("facet accepts a single value")
)

// Facets returns every known facet in canonical order.
func Facets() []Facet {
	out := make([]Facet, 0, len(facetKinds))
	for f := range facetKinds {
		out = append(out, f)
	}
	slices.Sort(out)

	return out
}

// ParseFacet validates a facet key.
func ParseFacet(s string) (Facet, error) {
	f := Facet(s)
	if _, ok := facetKinds[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFacet, s)
	}

	return f, nil
}

// Multi reports whether the facet accepts several values.
func (f Facet) Multi() bool {
	return facetKinds[f] == kindMulti
}

// Selection maps facets to the values a user picked. It is immutable: every
// modifier returns a fresh Selection and leaves the receiver untouched, so a
// change is always observable as a different Key.
type Selection struct {
	values map[Facet][]string
}

// Empty is the selection with no constraints.
var Empty = Selection{}

// With returns a copy of s with facet f set to values. Empty strings are
// dropped; if nothing remains the facet is removed. Scalar and range facets
// keep only the last value.
func (s Selection) With(f Facet, values ...string) Selection {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}

	if facetKinds[f] != kindMulti && len(kept) > 1 {
		kept = kept[len(kept)-1:]
	}

	out := s.clone()
	if len(kept) == 0 {
		delete(out.values, f)
	} else {
		out.values[f] = kept
	}

	return out
}

// WithRange returns a copy of s with the intensity bounds set. A nil bound
// removes that side of the range.
func (s Selection) WithRange(lo, hi *float64) Selection {
	out := s
	for f, v := range map[Facet]*float64{IntensityMin: lo, IntensityMax: hi} {
		if v == nil {
			out = out.Without(f)
			continue
		}
		out = out.With(f, strconv.FormatFloat(*v, 'f', -1, 64))
	}

	return out
}

// Without returns a copy of s with facet f removed.
func (s Selection) Without(f Facet) Selection {
	out := s.clone()
	delete(out.values, f)

	return out
}

// Values returns a copy of the values selected for f.
func (s Selection) Values(f Facet) []string {
	return slices.Clone(s.values[f])
}

// Len returns the number of constrained facets.
func (s Selection) Len() int {
	return len(s.values)
}

// Key is the canonical encoding of s; equal selections share a key.
func (s Selection) Key() string {
	return Encode(s)
}

// Equal reports whether two selections encode identically.
func (s Selection) Equal(other Selection) bool {
	return s.Key() == other.Key()
}

// Map returns the selection as a plain facet map, suitable for JSON output.
func (s Selection) Map() map[string][]string {
	out := make(map[string][]string, len(s.values))
	for f, v := range s.values {
		out[string(f)] = slices.Clone(v)
	}

	return out
}

// FromMap builds a Selection from a facet map, validating keys and range values.
func FromMap(m map[string][]string) (Selection, error) {
	sel := Empty
	for k, vals := range m {
		f, err := ParseFacet(k)
		if err != nil {
			return Empty, err
		}

		if err := checkValues(f, vals); err != nil {
			return Empty, err
		}

		sel = sel.With(f, vals...)
	}

	return sel, nil
}

func checkValues(f Facet, vals []string) error {
	switch facetKinds[f] {
	case kindRange:
		for _, v := range vals {
			if v == "" {
				continue
			}
			if n, err := strconv.ParseFloat(v, 64); err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				return fmt.Errorf("%w: %s=%q", ErrInvalidRange, f, v)
			}
		}
		if nonEmpty(vals) > 1 {
			return fmt.Errorf("%w: %s", ErrScalarFacet, f)
		}
	case kindScalar:
		if nonEmpty(vals) > 1 {
			return fmt.Errorf("%w: %s", ErrScalarFacet, f)
		}
	case kindMulti:
	}

	return nil
}

func nonEmpty(vals []string) int {
	n := 0
	for _, v := range vals {
		if v != "" {
			n++
		}
	}

	return n
}

func (s Selection) clone() Selection {
	out := Selection{values: make(map[Facet][]string, len(s.values)+1)}
	for f, v := range s.values {
		out.values[f] = slices.Clone(v)
	}

	return out
}
