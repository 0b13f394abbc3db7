package store

import (
	"context"
	"time"

	"foodstreet/pkg/model"
)

// POIStore serves the guide's local POI table.
type POIStore interface {
	// GetPOIs returns active POIs by descending priority, localized to lang with a "vi" fallback.
	GetPOIs(ctx context.Context, lang string) ([]model.POI, error)
	GetPOI(ctx context.Context, id, lang string) (*model.POI, error)
	// ReplaceFromRemote deactivates every local POI and upserts the given shops in one transaction.
	ReplaceFromRemote(ctx context.Context, shops []model.Shop) error
}

// ShopStore serves the admin backend's CRUD surface.
type ShopStore interface {
	ListShops(ctx context.Context, activeOnly bool) ([]model.Shop, error)
	GetShop(ctx context.Context, id string) (*model.Shop, error)
	UpsertShop(ctx context.Context, shop *model.Shop) error
	DeleteShop(ctx context.Context, id string) (bool, error)
}

// PlaybackStore is the durable narration ledger.
type PlaybackStore interface {
	GetPlayback(ctx context.Context, poiID string) (*model.PlaybackRecord, error)
	RecordPlayback(ctx context.Context, poiID, lang string, at time.Time) (*model.PlaybackRecord, error)
	ListPlayback(ctx context.Context) ([]model.PlaybackRecord, error)
}

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// StateStore handles persistent application settings.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
