package api

import (
	"context"
	"sync"
	"time"

	"foodstreet/pkg/model"
	"foodstreet/pkg/narration"
	"foodstreet/pkg/poi"
	"foodstreet/pkg/poisync"
	"foodstreet/pkg/session"
)

// fakeSession implements Session.
type fakeSession struct {
	mu       sync.Mutex
	state    session.State
	startErr error
	stopErr  error
	reloads  int
	played   []string
	events   chan model.Event
}

func newFakeSession() *fakeSession {
	pois := []model.POI{
		{ID: "oc-oanh", Name: "Ốc Oanh", Lat: 10.7600, Lon: 106.7000, RadiusMeters: 30, Priority: 5, Narration: "Ốc hương.", Language: "vi"},
		{ID: "bun-mam", Name: "Bún mắm", Lat: 10.7610, Lon: 106.7000, RadiusMeters: 30, Priority: 1, AudioURL: "http://localhost:5187/uploads/a.mp3", Language: "vi"},
	}
	return &fakeSession{
		state: session.State{
			Tracking:    session.StateStopped,
			Language:    "vi",
			ActivePOIID: "oc-oanh",
			POIs: []model.TrackedPOI{
				{POI: &pois[0], State: model.RuntimeState{DistanceMeters: 4.5, IsActive: true}},
				{POI: &pois[1], State: model.RuntimeState{DistanceMeters: 110}},
			},
		},
		events: make(chan model.Event, 16),
	}
}

func (s *fakeSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.state.Tracking = session.StateTracking
	return nil
}

func (s *fakeSession) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopErr != nil {
		return s.stopErr
	}
	s.state.Tracking = session.StateStopped
	return nil
}

func (s *fakeSession) TrackingState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Tracking
}

func (s *fakeSession) Snapshot(ctx context.Context) session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) PlayOnDemand(ctx context.Context, poiID string) (*model.POI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if poiID == "" {
		poiID = s.state.ActivePOIID
		if poiID == "" {
			return nil, session.ErrNoActivePOI
		}
	}
	for _, tp := range s.state.POIs {
		if tp.POI.ID == poiID {
			s.played = append(s.played, poiID)
			p := *tp.POI
			return &p, nil
		}
	}
	return nil, poi.ErrPOINotFound
}

func (s *fakeSession) SetLanguage(ctx context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Language = model.NormalizeLanguage(code)
	s.state.ActivePOIID = ""
	return s.state.Language, nil
}

func (s *fakeSession) ReloadPOIs(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads++
	return len(s.state.POIs), nil
}

func (s *fakeSession) Subscribe(buffer int) (<-chan model.Event, func()) {
	return s.events, func() {}
}

func (s *fakeSession) reloadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// fakeSyncer implements Syncer.
type fakeSyncer struct {
	mu       sync.Mutex
	err      error
	upserts  []poisync.UpsertRequest
	deletes  []string
	syncs    int
	lastSync poisync.Status
}

func (f *fakeSyncer) Sync(ctx context.Context) (*poisync.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs++
	if f.err != nil {
		return nil, f.err
	}
	return &poisync.Result{Source: poisync.SourceHTTP, BaseURL: "http://localhost:5187", Count: 2}, nil
}

func (f *fakeSyncer) Status() poisync.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSync
}

func (f *fakeSyncer) Upsert(ctx context.Context, req poisync.UpsertRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.upserts = append(f.upserts, req)
	return "http://localhost:5187", nil
}

func (f *fakeSyncer) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, id)
	return nil
}

// fakeNarration implements NarrationStatus.
type fakeNarration struct {
	status narration.Status
}

func (f *fakeNarration) Status() narration.Status { return f.status }

// fakeAudio implements AudioController.
type fakeAudio struct {
	playing bool
	paused  bool
	stopped bool
	volume  float64
	left    time.Duration
}

func (a *fakeAudio) Pause()                { a.paused = true }
func (a *fakeAudio) Resume()               { a.paused = false }
func (a *fakeAudio) Stop()                 { a.stopped = true; a.playing = false }
func (a *fakeAudio) SetVolume(vol float64) { a.volume = vol }
func (a *fakeAudio) Volume() float64       { return a.volume }
func (a *fakeAudio) IsPlaying() bool       { return a.playing }
func (a *fakeAudio) IsPaused() bool        { return a.paused }
func (a *fakeAudio) Remaining() time.Duration {
	return a.left
}

// memState implements store.StateStore.
type memState struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMemState() *memState { return &memState{vals: map[string]string{}} }

func (m *memState) GetState(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok
}

func (m *memState) SetState(ctx context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = val
	return nil
}

func (m *memState) DeleteState(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}
