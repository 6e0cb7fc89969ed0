// Package models defines the record and filter types shared by the sync pipeline.
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Metric is a numeric record field that may be absent or malformed on the wire.
// Valid is false for null, "", missing keys, non-numeric strings and NaN/Inf.
type Metric struct {
	Value float64
	Valid bool
}

// M returns a valid Metric holding v.
func M(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

// Or returns the value when valid and fallback otherwise.
func (m Metric) Or(fallback float64) float64 {
	if !m.Valid {
		return fallback
	}

	return m.Value
}

// UnmarshalJSON never fails: anything that is not a finite number becomes an invalid Metric.
func (m *Metric) UnmarshalJSON(data []byte) error {
	*m = Metric{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil //nolint:nilerr // malformed strings are treated as absent.
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil //nolint:nilerr // non-numeric values are treated as absent.
	}

	*m = M(v)

	return nil
}

// MarshalJSON writes null for an invalid Metric.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}

	return strconv.AppendFloat(nil, m.Value, 'f', -1, 64), nil
}

// Record is one observational row delivered by the insights backend.
type Record struct {
	Intensity  Metric `json:"intensity"`
	Likelihood Metric `json:"likelihood"`
	Relevance  Metric `json:"relevance"`

	Topic   string `json:"topic"`
	Sector  string `json:"sector"`
	Region  string `json:"region"`
	Pestle  string `json:"pestle"`
	Source  string `json:"source"`
	Country string `json:"country"`
	EndYear string `json:"end_year"`

	StartYear string `json:"start_year,omitempty"`
	Insight   string `json:"insight,omitempty"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	Added     string `json:"added,omitempty"`
	Published string `json:"published,omitempty"`
}

// recordFields carries Record's decoding without its UnmarshalJSON method.
type recordFields Record

// UnmarshalJSON decodes a record, accepting numbers and booleans in text
// fields (formatted as written) and treating any other non-string as empty.
func (r *Record) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	wire := struct {
		*recordFields

		Topic     looseString `json:"topic"`
		Sector    looseString `json:"sector"`
		Region    looseString `json:"region"`
		Pestle    looseString `json:"pestle"`
		Source    looseString `json:"source"`
		Country   looseString `json:"country"`
		EndYear   looseString `json:"end_year"`
		StartYear looseString `json:"start_year"`
		Insight   looseString `json:"insight"`
		Title     looseString `json:"title"`
		URL       looseString `json:"url"`
		Added     looseString `json:"added"`
		Published looseString `json:"published"`
	}{recordFields: (*recordFields)(r)}

	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.Topic = string(wire.Topic)
	r.Sector = string(wire.Sector)
	r.Region = string(wire.Region)
	r.Pestle = string(wire.Pestle)
	r.Source = string(wire.Source)
	r.Country = string(wire.Country)
	r.EndYear = string(wire.EndYear)
	r.StartYear = string(wire.StartYear)
	r.Insight = string(wire.Insight)
	r.Title = string(wire.Title)
	r.URL = string(wire.URL)
	r.Added = string(wire.Added)
	r.Published = string(wire.Published)

	return nil
}

// looseString decodes any JSON scalar as text. Objects and arrays become "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	*s = ""

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch c := data[0]; {
	case c == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil //nolint:nilerr // malformed strings are treated as absent.
		}
		*s = looseString(v)
	case c == 't' || c == 'f' || c == '-' || (c >= '0' && c <= '9'):
		*s = looseString(data)
	}

	return nil
}

// Metric returns the numeric field f, or an invalid Metric if f is categorical.
func (r *Record) Metric(f Field) Metric {
	switch f {
	case FieldIntensity:
		return r.Intensity
	case FieldLikelihood:
		return r.Likelihood
	case FieldRelevance:
		return r.Relevance
	default:
		return Metric{}
	}
}

// Category returns field f as a string. Metric fields are formatted when valid
// and empty otherwise, so any field can act as a grouping key.
func (r *Record) Category(f Field) string {
	switch f {
	case FieldTopic:
		return r.Topic
	case FieldSector:
		return r.Sector
	case FieldRegion:
		return r.Region
	case FieldPestle:
		return r.Pestle
	case FieldSource:
		return r.Source
	case FieldCountry:
		return r.Country
	case FieldEndYear:
		return r.EndYear
	case FieldIntensity, FieldLikelihood, FieldRelevance:
		m := r.Metric(f)
		if !m.Valid {
			return ""
		}
		return strconv.FormatFloat(m.Value, 'f', -1, 64)
	default:
		return ""
	}
}

// FilterOptions is the catalog of selectable values per facet.
type FilterOptions struct {
	EndYears  []string `json:"end_years"`
	Topics    []string `json:"topics"`
	Sectors   []string `json:"sectors"`
	Regions   []string `json:"regions"`
	Pestles   []string `json:"pestles"`
	Sources   []string `json:"sources"`
	Countries []string `json:"countries"`
}

// Normalize replaces nil lists with empty ones so the snapshot always
// serializes every facet as an array.
func (o FilterOptions) Normalize() FilterOptions {
	lists := []*[]string{&o.EndYears, &o.Topics, &o.Sectors, &o.Regions, &o.Pestles, &o.Sources, &o.Countries}
	for _, l := range lists {
		if *l == nil {
			*l = []string{}
		}
	}

	return o
}
