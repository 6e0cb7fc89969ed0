package models

import "fmt"

// Field names a record attribute usable for grouping or measuring.
type Field string

// Record fields.
const (
	FieldIntensity  Field = "intensity"
	FieldLikelihood Field = "likelihood"
	FieldRelevance  Field = "relevance"
	FieldTopic      Field = "topic"
	FieldSector     Field = "sector"
	FieldRegion     Field = "region"
	FieldPestle     Field = "pestle"
	FieldSource     Field = "source"
	FieldCountry    Field = "country"
	FieldEndYear    Field = "end_year"
)

var knownFields = map[Field]bool{
	FieldIntensity:  true,
	FieldLikelihood: true,
	FieldRelevance:  true,
	FieldTopic:      false,
	FieldSector:     false,
	FieldRegion:     false,
	FieldPestle:     false,
	FieldSource:     false,
	FieldCountry:    false,
	FieldEndYear:    false,
}

// Numeric reports whether f is a metric field.
func (f Field) Numeric() bool {
	return knownFields[f]
}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if _, ok := knownFields[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}

	return f, nil
}

// ParseNumericField validates a field name and requires a metric field.
func ParseNumericField(s string) (Field, error) {
	f, err := ParseField(s)
	if err != nil {
		return "", err
	}

	if !f.Numeric() {
		return "", fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}

	return f, nil
}
