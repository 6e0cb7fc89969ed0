package client

import "github.com/persistorai/dashsync/internal/models"

// Record is one observational row.
type Record = models.Record

// FilterOptions is the catalog of selectable values per facet.
type FilterOptions = models.FilterOptions

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// DataResponse is returned by the data endpoint.
type DataResponse struct {
	Data    []Record      `json:"data"`
	Filters FilterOptions `json:"filters"`
}

// InsertResponse is returned by the insert endpoint.
type InsertResponse struct {
	Message string `json:"message"`
}

type dataWire struct {
	Data    *[]Record      `json:"data"`
	Filters *FilterOptions `json:"filters"`
}
