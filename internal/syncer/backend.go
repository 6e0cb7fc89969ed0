package syncer

import (
	"context"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
)

// Backend is the subset of the backend API the controller drives.
type Backend interface {
	Warmup(ctx context.Context) error
	Fetch(ctx context.Context, rawQuery string) (*client.DataResponse, error)
	Insert(ctx context.Context, records []models.Record) (*client.InsertResponse, error)
}

// forgetter is implemented by backends that share identical in-flight
// fetches. Forget detaches a superseded query so a newer fetch for the same
// query gets its own round trip.
type forgetter interface {
	Forget(rawQuery string)
}

type clientBackend struct {
	c *client.Client
}

// NewClientBackend adapts a client.Client to Backend.
func NewClientBackend(c *client.Client) Backend {
	return &clientBackend{c: c}
}

func (b *clientBackend) Warmup(ctx context.Context) error {
	return b.c.Warmup(ctx)
}

func (b *clientBackend) Fetch(ctx context.Context, rawQuery string) (*client.DataResponse, error) {
	return b.c.Data.Fetch(ctx, rawQuery)
}

func (b *clientBackend) Insert(ctx context.Context, records []models.Record) (*client.InsertResponse, error) {
	return b.c.Data.Insert(ctx, records)
}

func (b *clientBackend) Forget(rawQuery string) {
	b.c.Data.Forget(rawQuery)
}
