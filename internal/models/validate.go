package models

import "fmt"

// Record field limits accepted by the insert path.
const (
	MetricMin        = 0
	MetricMax        = 100
	maxCategoryLen   = 255
	maxFreeTextLen   = 10000
	maxInsertRecords = 1000
)

// Validate checks a record before it is sent to the backend insert endpoint.
func (r *Record) Validate() error {
	metrics := []struct {
		name string
		m    Metric
	}{
		{"intensity", r.Intensity},
		{"likelihood", r.Likelihood},
		{"relevance", r.Relevance},
	}
	for _, mt := range metrics {
		if mt.m.Valid && (mt.m.Value < MetricMin || mt.m.Value > MetricMax) {
			return fmt.Errorf("%w: %s=%v", ErrMetricOutOfRange, mt.name, mt.m.Value)
		}
	}

	if !validYear(r.EndYear) {
		return ErrInvalidYear
	}

	categories := map[string]string{
		"topic":   r.Topic,
		"sector":  r.Sector,
		"region":  r.Region,
		"pestle":  r.Pestle,
		"source":  r.Source,
		"country": r.Country,
	}
	for name, v := range categories {
		if len(v) > maxCategoryLen {
			return ErrFieldTooLong(name, maxCategoryLen)
		}
	}

	if len(r.Insight) > maxFreeTextLen {
		return ErrFieldTooLong("insight", maxFreeTextLen)
	}

	if len(r.Title) > maxFreeTextLen {
		return ErrFieldTooLong("title", maxFreeTextLen)
	}

	return nil
}

// ValidateBatch validates every record in an insert batch.
func ValidateBatch(records []Record) error {
	if len(records) == 0 {
		return ErrEmptyBatch
	}

	if len(records) > maxInsertRecords {
		return fmt.Errorf("batch of %d exceeds maximum of %d records", len(records), maxInsertRecords)
	}

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	return nil
}

func validYear(y string) bool {
	if y == "" {
		return true
	}

	if len(y) != 4 {
		return false
	}

	for _, c := range y {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
