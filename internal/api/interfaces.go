package api

import (
	"context"

	"foodstreet/pkg/model"
	"foodstreet/pkg/narration"
	"foodstreet/pkg/poisync"
	"foodstreet/pkg/session"
)

// Session is the part of the session controller the handlers drive.
type Session interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	TrackingState() string
	Snapshot(ctx context.Context) session.State
	PlayOnDemand(ctx context.Context, poiID string) (*model.POI, error)
	SetLanguage(ctx context.Context, code string) (string, error)
	ReloadPOIs(ctx context.Context) (int, error)
	Subscribe(buffer int) (<-chan model.Event, func())
}

// Syncer talks to the admin backend.
type Syncer interface {
	Sync(ctx context.Context) (*poisync.Result, error)
	Status() poisync.Status
	Upsert(ctx context.Context, req poisync.UpsertRequest) (string, error)
	Delete(ctx context.Context, id string) error
}

// NarrationStatus reports what the narration coordinator is doing.
type NarrationStatus interface {
	Status() narration.Status
}
