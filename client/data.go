package client

import (
	"context"
	"errors"
	"fmt"
)

var errNoData = errors.New(`response has no "data" field`)

// DataService handles the record endpoints.
type DataService struct {
	c *Client
}

// Fetch retrieves the records and filter catalog matching an encoded query
// string. Concurrent calls with the same query share one round trip.
func (s *DataService) Fetch(ctx context.Context, rawQuery string) (*DataResponse, error) {
	v, err := s.c.shared(ctx, dataKey(rawQuery), func(ctx context.Context) (any, error) {
		var wire dataWire
		if err := s.c.get(ctx, "/data", rawQuery, &wire); err != nil {
			return nil, err
		}
		if wire.Data == nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, errNoData)
		}

		resp := &DataResponse{Data: *wire.Data}
		if wire.Filters != nil {
			resp.Filters = *wire.Filters
		}
		resp.Filters = resp.Filters.Normalize()

		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := v.(*DataResponse) //nolint:forcetypeassert // the shared func only returns *DataResponse.

	// Callers own their copy; the shared response is never mutated.
	out := &DataResponse{Data: make([]Record, len(resp.Data)), Filters: resp.Filters}
	copy(out.Data, resp.Data)

	return out, nil
}

// Forget makes the next Fetch for rawQuery start its own round trip instead
// of joining one already in flight.
func (s *DataService) Forget(rawQuery string) {
	s.c.forget(dataKey(rawQuery))
}

func dataKey(rawQuery string) string {
	return "data?" + rawQuery
}

// Insert posts records to the backend.
func (s *DataService) Insert(ctx context.Context, records []Record) (*InsertResponse, error) {
	var resp InsertResponse
	if err := s.c.post(ctx, "/insert", records, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
