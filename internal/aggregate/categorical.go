// Package aggregate reduces record sets into chart series.
package aggregate

import "github.com/persistorai/dashsync/internal/models"

// Bar is one categorical group and its summed value.
type Bar struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// SumBy groups records by the group field and sums the value field per group.
// Groups appear in first-encounter order. Invalid values count as zero and
// records with an empty group value form the "" group, so the group sums
// always add up to the sum of all valid values.
func SumBy(records []models.Record, group, value models.Field) []Bar {
	if len(records) == 0 {
		return []Bar{}
	}

	index := make(map[string]int)
	bars := make([]Bar, 0)

	for i := range records {
		key := records[i].Category(group)
		v := records[i].Metric(value).Or(0)

		pos, ok := index[key]
		if !ok {
			pos = len(bars)
			index[key] = pos
			bars = append(bars, Bar{Key: key})
		}

		bars[pos].Value += v
	}

	return bars
}

// Total returns the sum of all bar values.
func Total(bars []Bar) float64 {
	var sum float64
	for _, b := range bars {
		sum += b.Value
	}

	return sum
}
