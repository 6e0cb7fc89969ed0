package aggregate

import "github.com/persistorai/dashsync/internal/models"

// DefaultDomainMax is the colour domain upper bound used when no country has data.
const DefaultDomainMax = 10

// Reconciler resolves a country label to a reference geometry name.
type Reconciler interface {
	Matches(label string) (string, bool)
}

// CountryMean is the mean intensity for one reconciled country.
type CountryMean struct {
	Country string  `json:"country"`
	Mean    float64 `json:"mean"`
	Count   int     `json:"count"`
}

// GeoSeries is the per-country intensity series backing the world map.
type GeoSeries struct {
	Countries []CountryMean `json:"countries"`
	Domain    [2]float64    `json:"domain"`
	Unmatched []string      `json:"unmatched"`
}

// GeoMean averages intensity per reconciled country. Records with an empty
// country or invalid intensity are skipped. Labels that do not resolve to a
// reference name are excluded and reported in Unmatched, each once. The domain
// is [0, largest mean], or [0, DefaultDomainMax] when no mean is positive.
func GeoMean(records []models.Record, rec Reconciler) GeoSeries {
	type acc struct {
		sum float64
		n   int
	}

	index := make(map[string]int)
	sums := make([]acc, 0)
	out := GeoSeries{Countries: []CountryMean{}, Unmatched: []string{}}
	seenUnmatched := make(map[string]struct{})

	for i := range records {
		label := records[i].Country
		intensity := records[i].Intensity
		if label == "" || !intensity.Valid {
			continue
		}

		name, ok := rec.Matches(label)
		if !ok {
			if _, seen := seenUnmatched[label]; !seen {
				seenUnmatched[label] = struct{}{}
				out.Unmatched = append(out.Unmatched, label)
			}
			continue
		}

		pos, found := index[name]
		if !found {
			pos = len(sums)
			index[name] = pos
			sums = append(sums, acc{})
			out.Countries = append(out.Countries, CountryMean{Country: name})
		}

		sums[pos].sum += intensity.Value
		sums[pos].n++
	}

	var top float64
	for i, a := range sums {
		mean := a.sum / float64(a.n)
		out.Countries[i].Mean = mean
		out.Countries[i].Count = a.n
		top = max(top, mean)
	}

	// The scale starts at zero; negative means sit at its floor.
	out.Domain = [2]float64{0, top}
	if top <= 0 {
		out.Domain[1] = DefaultDomainMax
	}

	return out
}

// Lookup returns the mean for a reference country name.
func (s GeoSeries) Lookup(name string) (float64, bool) {
	for _, c := range s.Countries {
		if c.Country == name {
			return c.Mean, true
		}
	}

	return 0, false
}

// Normalize maps v onto its position within the domain, clamped to [0, 1].
// A degenerate domain maps everything to zero.
func (s GeoSeries) Normalize(v float64) float64 {
	span := s.Domain[1] - s.Domain[0]
	if span <= 0 {
		return 0
	}

	return clamp01((v - s.Domain[0]) / span)
}
