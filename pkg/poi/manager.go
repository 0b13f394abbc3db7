package poi

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"foodstreet/pkg/model"
	"foodstreet/pkg/store"
)

// Snapshot is an immutable POI set in one language. Readers never see it change.
type Snapshot struct {
	Language string
	POIs     []model.POI
	LoadedAt time.Time

	byID map[string]int
}

func newSnapshot(lang string, pois []model.POI) *Snapshot {
	s := &Snapshot{
		Language: lang,
		POIs:     pois,
		LoadedAt: time.Now(),
		byID:     make(map[string]int, len(pois)),
	}
	for i := range pois {
		if _, dup := s.byID[pois[i].ID]; !dup {
			s.byID[pois[i].ID] = i
		}
	}
	return s
}

// Get returns a copy of the POI with id.
func (s *Snapshot) Get(id string) (*model.POI, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	p := s.POIs[i]
	return &p, true
}

// Manager holds the current POI set and swaps it atomically on reload.
type Manager struct {
	store  store.POIStore
	logger *slog.Logger
	snap   atomic.Pointer[Snapshot]
}

// NewManager creates a new POI Manager with an empty set.
func NewManager(s store.POIStore) *Manager {
	m := &Manager{
		store:  s,
		logger: slog.With("component", "poi_manager"),
	}
	m.snap.Store(newSnapshot(model.DefaultLanguage, nil))
	return m
}

// Reload reads the active POIs in lang from the store and replaces the current set.
// On error the previous set stays in place.
func (m *Manager) Reload(ctx context.Context, lang string) (*Snapshot, error) {
	lang = model.NormalizeLanguage(lang)
	pois, err := m.store.GetPOIs(ctx, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s := newSnapshot(lang, pois)
	m.snap.Store(s)
	m.logger.Info("POIs loaded", "count", len(pois), "lang", lang)
	return s, nil
}

// Snapshot returns the current set. It is never nil.
func (m *Manager) Snapshot() *Snapshot {
	return m.snap.Load()
}

// POIs returns a copy of the current POI list.
func (m *Manager) POIs() []model.POI {
	s := m.snap.Load()
	out := make([]model.POI, len(s.POIs))
	copy(out, s.POIs)
	return out
}

// GetPOI returns the POI with id from the current set.
func (m *Manager) GetPOI(id string) (*model.POI, error) {
	if p, ok := m.snap.Load().Get(id); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPOINotFound, id)
}

// Language returns the language of the current set.
func (m *Manager) Language() string {
	return m.snap.Load().Language
}

// ActiveCount returns the number of POIs in the current set.
func (m *Manager) ActiveCount() int {
	return len(m.snap.Load().POIs)
}
