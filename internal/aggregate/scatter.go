package aggregate

import "github.com/persistorai/dashsync/internal/models"

// Point is one scatter mark. Weight is normalised to [0, 1].
type Point struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Weight float64 `json:"weight"`
}

// weightScale maps the backend's 0..100 metric range onto 0..1.
const weightScale = 100

// Scatter projects records onto (x, y, weight). Records with an invalid x or y
// are dropped; an invalid weight becomes zero. Input order is preserved.
func Scatter(records []models.Record, x, y, weight models.Field) []Point {
	points := make([]Point, 0, len(records))

	for i := range records {
		mx := records[i].Metric(x)
		my := records[i].Metric(y)
		if !mx.Valid || !my.Valid {
			continue
		}

		points = append(points, Point{
			X:      mx.Value,
			Y:      my.Value,
			Weight: clamp01(records[i].Metric(weight).Or(0) / weightScale),
		})
	}

	return points
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
