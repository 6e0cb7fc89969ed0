package api

import (
	"context"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
	"github.com/persistorai/dashsync/internal/syncer"
)

// SyncController is the part of *syncer.Controller the gateway drives.
type SyncController interface {
	Snapshot() syncer.State
	SetSelection(ctx context.Context, sel query.Selection) error
	Refresh() error
	Insert(ctx context.Context, records []models.Record) (*client.InsertResponse, error)
}
