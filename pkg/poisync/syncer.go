// Package poisync pulls the POI catalogue from the admin backend into the local
// store and pushes edits made on the map back to it.
package poisync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"foodstreet/pkg/config"
	"foodstreet/pkg/db"
	"foodstreet/pkg/model"
	"foodstreet/pkg/request"
	"foodstreet/pkg/store"
)

// DefaultBaseURLs are tried after every configured endpoint.
var DefaultBaseURLs = []string{
	"http://localhost:5187",
	"http://localhost:5000",
	"http://localhost:5001",
}

// fileSyncBaseURL prefixes relative audio paths of POIs imported from the admin database file.
const fileSyncBaseURL = "http://localhost:5187"

// Source identifies where a sync got its data from.
type Source string

const (
	SourceHTTP Source = "http"
	SourceFile Source = "file"
)

// URLSource supplies configured admin endpoints at call time.
type URLSource interface {
	AdminBaseURLs(ctx context.Context) []string
}

// Result describes a successful sync.
type Result struct {
	Source  Source    `json:"source"`
	BaseURL string    `json:"base_url,omitempty"`
	Path    string    `json:"path,omitempty"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}

// Status is the syncer's view of the last operations.
type Status struct {
	LastBaseURL string    `json:"last_base_url,omitempty"`
	LastSync    time.Time `json:"last_sync,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// UpsertRequest is a POI created or edited from the guide's map.
type UpsertRequest struct {
	ID           string  `json:"id,omitempty"`
	ShopName     string  `json:"shopName"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
	Description  string  `json:"description"`
	TTSText      string  `json:"ttsText"`
}

// Options tunes a Syncer.
type Options struct {
	// AdminDBPath is the admin database file used when no endpoint answers. Empty disables it.
	AdminDBPath string
	// Defaults replaces DefaultBaseURLs when non-nil.
	Defaults []string
}

// Syncer talks to the admin backend.
type Syncer struct {
	client *request.Client
	store  store.POIStore
	state  store.StateStore
	urls   URLSource
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	status Status
}

// NewSyncer creates a Syncer. state may be nil.
func NewSyncer(client *request.Client, st store.POIStore, state store.StateStore, urls URLSource, opts Options) *Syncer {
	if opts.Defaults == nil {
		opts.Defaults = DefaultBaseURLs
	}
	return &Syncer{
		client: client,
		store:  st,
		state:  state,
		urls:   urls,
		opts:   opts,
		logger: slog.With("component", "poisync"),
	}
}

// Candidates returns the endpoints to try, in order: the last one that worked,
// the configured ones, then the defaults. Trailing slashes are trimmed and
// duplicates (case-insensitive) dropped.
func (s *Syncer) Candidates(ctx context.Context) []string {
	var raw []string
	s.mu.Lock()
	if s.status.LastBaseURL != "" {
		raw = append(raw, s.status.LastBaseURL)
	}
	s.mu.Unlock()
	if s.urls != nil {
		raw = append(raw, s.urls.AdminBaseURLs(ctx)...)
	}
	raw = append(raw, s.opts.Defaults...)

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		u = NormalizeBaseURL(u)
		if u == "" || seen[strings.ToLower(u)] {
			continue
		}
		seen[strings.ToLower(u)] = true
		out = append(out, u)
	}
	return out
}

// Sync pulls /api/shops from the first endpoint that answers and replaces the
// local POI set with it. When every endpoint fails it falls back to the admin
// database file.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	var errs []error
	for _, base := range s.Candidates(ctx) {
		shops, err := s.fetchShops(ctx, base)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("Admin endpoint failed", "base_url", base, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", base, err))
			continue
		}
		if err := s.apply(ctx, base, shops); err != nil {
			return nil, err
		}
		res := &Result{Source: SourceHTTP, BaseURL: base, Count: len(shops), At: time.Now().UTC()}
		s.succeeded(ctx, base, res.At)
		s.logger.Info("POIs synced", "base_url", base, "count", len(shops))
		return res, nil
	}

	if s.opts.AdminDBPath != "" {
		res, err := s.SyncFromFile(ctx, s.opts.AdminDBPath)
		if err == nil {
			return res, nil
		}
		errs = append(errs, fmt.Errorf("db-file(%s): %w", s.opts.AdminDBPath, err))
	}

	return nil, s.failed(errs)
}

// SyncFromFile imports the active POIs straight from an admin database file.
func (s *Syncer) SyncFromFile(ctx context.Context, path string) (*Result, error) {
	src, err := db.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	shops, err := store.NewSQLiteStore(src).ListShops(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("read admin db: %w", err)
	}
	if err := s.apply(ctx, fileSyncBaseURL, shops); err != nil {
		return nil, err
	}
	res := &Result{Source: SourceFile, Path: path, Count: len(shops), At: time.Now().UTC()}
	s.succeeded(ctx, "", res.At)
	s.logger.Info("POIs imported from admin database", "path", path, "count", len(shops))
	return res, nil
}

// Upsert sends a POI to the first endpoint that accepts it and returns that endpoint.
func (s *Syncer) Upsert(ctx context.Context, req UpsertRequest) (string, error) {
	var errs []error
	for _, base := range s.Candidates(ctx) {
		_, err := s.client.PostJSON(ctx, base+"/api/shops/upsert", req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", base, err))
			continue
		}
		s.succeeded(ctx, base, time.Time{})
		s.logger.Info("POI pushed to admin", "base_url", base, "id", req.ID, "name", req.ShopName)
		return base, nil
	}
	return "", s.failed(errs)
}

// Delete removes a POI on the first endpoint that answers. A 404 counts as success.
func (s *Syncer) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("poisync: id is required")
	}
	var errs []error
	for _, base := range s.Candidates(ctx) {
		_, err := s.client.Delete(ctx, base+"/api/shops/"+url.PathEscape(id))
		if err != nil && !request.IsStatus(err, http.StatusNotFound) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", base, err))
			continue
		}
		s.succeeded(ctx, base, time.Time{})
		s.logger.Info("POI deleted on admin", "base_url", base, "id", id)
		return nil
	}
	return s.failed(errs)
}

// Status returns the last sync outcome.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run syncs every interval until ctx is done, calling onSync after each success.
func (s *Syncer) Run(ctx context.Context, interval time.Duration, onSync func(*Result)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.Sync(ctx)
			if err != nil {
				s.logger.Warn("Periodic sync failed", "error", err)
				continue
			}
			if onSync != nil {
				onSync(res)
			}
		}
	}
}

func (s *Syncer) fetchShops(ctx context.Context, base string) ([]model.Shop, error) {
	body, err := s.client.Get(ctx, base+"/api/shops")
	if err != nil {
		return nil, err
	}
	var shops []model.Shop
	if err := json.Unmarshal(body, &shops); err != nil {
		return nil, fmt.Errorf("decode shops: %w", err)
	}
	if shops == nil {
		return nil, errors.New("empty response")
	}
	return shops, nil
}

func (s *Syncer) apply(ctx context.Context, base string, shops []model.Shop) error {
	for i := range shops {
		shops[i].AudioURL = NormalizeAudioURL(base, shops[i].AudioURL)
	}
	if err := s.store.ReplaceFromRemote(ctx, shops); err != nil {
		return fmt.Errorf("store shops: %w", err)
	}
	return nil
}

func (s *Syncer) succeeded(ctx context.Context, base string, at time.Time) {
	s.mu.Lock()
	if base != "" {
		s.status.LastBaseURL = base
	}
	if !at.IsZero() {
		s.status.LastSync = at
	}
	s.status.LastError = ""
	s.mu.Unlock()

	if !at.IsZero() && s.state != nil {
		if err := s.state.SetState(ctx, config.KeyLastSync, at.Format(time.RFC3339)); err != nil {
			s.logger.Warn("Failed to persist sync time", "error", err)
		}
	}
}

func (s *Syncer) failed(errs []error) error {
	var err error
	if len(errs) == 0 {
		err = fmt.Errorf("%w: no endpoint candidate", ErrNoBackend)
	} else {
		err = fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
	}
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
	return err
}

// NormalizeBaseURL trims spaces and trailing slashes.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// NormalizeAudioURL makes a relative audio path served by the admin absolute.
func NormalizeAudioURL(base, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return value
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return base + value
}
