package aggregate_test

import (
	"math"
	"slices"
	"testing"

	"github.com/persistorai/dashsync/internal/aggregate"
	"github.com/persistorai/dashsync/internal/geo"
	"github.com/persistorai/dashsync/internal/models"
)

func TestSumBy_Topics(t *testing.T) {
	records := []models.Record{
		{Topic: "Energy", Intensity: models.M(40)},
		{Topic: "Energy", Intensity: models.M(60)},
		{Topic: "Oil", Intensity: models.M(10)},
	}

	got := aggregate.SumBy(records, models.FieldTopic, models.FieldIntensity)
	want := []aggregate.Bar{{Key: "Energy", Value: 100}, {Key: "Oil", Value: 10}}

	if !slices.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSumBy_InvalidAndEmpty(t *testing.T) {
	records := []models.Record{
		{Sector: "Energy", Likelihood: models.M(3)},
		{Sector: "", Likelihood: models.M(2)},
		{Sector: "Energy"},
		{Sector: "Retail", Likelihood: models.M(4)},
		{Sector: "", Likelihood: models.M(1)},
	}

	got := aggregate.SumBy(records, models.FieldSector, models.FieldLikelihood)
	want := []aggregate.Bar{{Key: "Energy", Value: 3}, {Key: "", Value: 3}, {Key: "Retail", Value: 4}}

	if !slices.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	var valid float64
	for _, r := range records {
		valid += r.Likelihood.Or(0)
	}
	if aggregate.Total(got) != valid {
		t.Errorf("conservation: total %v, valid sum %v", aggregate.Total(got), valid)
	}
}

func TestSumBy_Empty(t *testing.T) {
	got := aggregate.SumBy(nil, models.FieldTopic, models.FieldIntensity)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSumBy_GroupByYear(t *testing.T) {
	records := []models.Record{
		{EndYear: "2030", Relevance: models.M(1)},
		{EndYear: "2025", Relevance: models.M(2)},
		{EndYear: "2030", Relevance: models.M(3)},
	}

	got := aggregate.SumBy(records, models.FieldEndYear, models.FieldRelevance)
	want := []aggregate.Bar{{Key: "2030", Value: 4}, {Key: "2025", Value: 2}}

	if !slices.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestScatter(t *testing.T) {
	records := []models.Record{
		{Intensity: models.M(6), Likelihood: models.M(3), Relevance: models.M(50)},
		{Intensity: models.M(2), Relevance: models.M(10)},
		{Likelihood: models.M(1)},
		{Intensity: models.M(9), Likelihood: models.M(4)},
		{Intensity: models.M(1), Likelihood: models.M(1), Relevance: models.M(250)},
		{Intensity: models.M(1), Likelihood: models.M(2), Relevance: models.M(-5)},
	}

	got := aggregate.Scatter(records, models.FieldIntensity, models.FieldLikelihood, models.FieldRelevance)
	want := []aggregate.Point{
		{X: 6, Y: 3, Weight: 0.5},
		{X: 9, Y: 4, Weight: 0},
		{X: 1, Y: 1, Weight: 1},
		{X: 1, Y: 2, Weight: 0},
	}

	if !slices.Equal(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGeoMean_ReconcilesAliases(t *testing.T) {
	records := []models.Record{
		{Country: "USA", Intensity: models.M(20)},
		{Country: "USA", Intensity: models.M(40)},
	}

	s := aggregate.GeoMean(records, geo.NewReconciler(nil))

	if len(s.Countries) != 1 {
		t.Fatalf("got %d countries, want 1", len(s.Countries))
	}
	if c := s.Countries[0]; c.Country != "United States" || c.Mean != 30 || c.Count != 2 {
		t.Errorf("got %+v", c)
	}
	if s.Domain != [2]float64{0, 30} {
		t.Errorf("domain: got %v", s.Domain)
	}
}

func TestGeoMean_SkipsAndReportsUnmatched(t *testing.T) {
	records := []models.Record{
		{Country: "India", Intensity: models.M(10)},
		{Country: "", Intensity: models.M(99)},
		{Country: "India"},
		{Country: "Atlantis", Intensity: models.M(5)},
		{Country: "Atlantis", Intensity: models.M(7)},
		{Country: "United States of America", Intensity: models.M(4)},
		{Country: "us", Intensity: models.M(8)},
		{Country: "India", Intensity: models.M(20)},
	}

	s := aggregate.GeoMean(records, geo.NewReconciler(nil))

	want := []aggregate.CountryMean{
		{Country: "India", Mean: 15, Count: 2},
		{Country: "United States", Mean: 6, Count: 2},
	}
	if !slices.Equal(s.Countries, want) {
		t.Errorf("countries: got %+v, want %+v", s.Countries, want)
	}
	if !slices.Equal(s.Unmatched, []string{"Atlantis"}) {
		t.Errorf("unmatched: got %v", s.Unmatched)
	}

	if v, ok := s.Lookup("India"); !ok || v != 15 {
		t.Errorf("Lookup(India) = %v, %v", v, ok)
	}
	if _, ok := s.Lookup("Atlantis"); ok {
		t.Errorf("unmatched label should not be found")
	}
}

func TestGeoMean_EmptyDomain(t *testing.T) {
	s := aggregate.GeoMean(nil, geo.NewReconciler(nil))

	if s.Domain != [2]float64{0, aggregate.DefaultDomainMax} {
		t.Errorf("domain: got %v", s.Domain)
	}
	if s.Countries == nil || s.Unmatched == nil {
		t.Errorf("expected non-nil empty slices")
	}
}

func TestGeoMean_NonPositiveMeansKeepDefaultDomain(t *testing.T) {
	records := []models.Record{
		{Country: "India", Intensity: models.M(0)},
		{Country: "Brazil", Intensity: models.M(-4)},
	}

	s := aggregate.GeoMean(records, geo.NewReconciler(nil))

	if len(s.Countries) != 2 {
		t.Fatalf("got %d countries, want 2", len(s.Countries))
	}
	if s.Domain != [2]float64{0, aggregate.DefaultDomainMax} {
		t.Errorf("domain: got %v", s.Domain)
	}
	if v, _ := s.Lookup("Brazil"); v != -4 || s.Normalize(v) != 0 {
		t.Errorf("negative mean: got %v, normalized %v", v, s.Normalize(v))
	}
}

func TestGeoSeries_Normalize(t *testing.T) {
	s := aggregate.GeoSeries{Domain: [2]float64{0, 40}}

	tests := []struct {
		v    float64
		want float64
	}{
		{v: 0, want: 0},
		{v: 10, want: 0.25},
		{v: 40, want: 1},
		{v: 80, want: 1},
		{v: -3, want: 0},
	}

	for _, tc := range tests {
		if got := s.Normalize(tc.v); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Normalize(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}

	if got := (aggregate.GeoSeries{}).Normalize(5); got != 0 {
		t.Errorf("degenerate domain: got %v", got)
	}
}
