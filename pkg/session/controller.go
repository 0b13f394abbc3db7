// Package session owns the walking session: it consumes location fixes, decides which
// POI is active and starts narration when the user walks into one.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/looplab/fsm"

	"foodstreet/pkg/geofence"
	"foodstreet/pkg/location"
	"foodstreet/pkg/logging"
	"foodstreet/pkg/model"
	"foodstreet/pkg/narration"
	"foodstreet/pkg/poi"
)

// Tracking states.
const (
	StateStopped  = "stopped"
	StateStarting = "starting"
	StateTracking = "tracking"
)

const (
	evStart   = "start"
	evStarted = "started"
	evFail    = "fail"
	evStop    = "stop"
)

// Narrator runs one narration attempt.
type Narrator interface {
	Attempt(ctx context.Context, p *model.POI, lang, trigger string) (model.NarrationOutcome, error)
}

// Settings are read on every decision so changes apply immediately.
type Settings interface {
	AutoNarrate(ctx context.Context) bool
	CurrentLanguage(ctx context.Context) string
	SetCurrentLanguage(ctx context.Context, code string) (string, error)
}

// State is a copy of the controller's view for readers.
type State struct {
	Tracking    string             `json:"tracking"`
	Language    string             `json:"language"`
	Location    *location.Fix      `json:"location,omitempty"`
	ActivePOIID string             `json:"active_poi_id,omitempty"`
	POIs        []model.TrackedPOI `json:"pois"`
}

// Controller is the single writer of active-POI state.
type Controller struct {
	source   location.Source
	pois     *poi.Manager
	narrator Narrator
	settings Settings
	events   *broadcaster
	logger   *slog.Logger

	lifeMu     sync.Mutex // serializes Start/Stop
	machine    *fsm.FSM
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	mu       sync.RWMutex
	snap     *poi.Snapshot
	tracked  []*model.TrackedPOI
	activeID string
	lastFix  *location.Fix

	narrMu     sync.Mutex
	generation uint64
	cancelNarr context.CancelFunc
	narrWG     sync.WaitGroup
}

// NewController wires a controller. Tracking starts stopped.
func NewController(src location.Source, pois *poi.Manager, n Narrator, s Settings) *Controller {
	c := &Controller{
		source:   src,
		pois:     pois,
		narrator: n,
		settings: s,
		events:   newBroadcaster(),
		logger:   slog.With("component", "session"),
	}
	c.machine = fsm.NewFSM(
		StateStopped,
		fsm.Events{
			{Name: evStart, Src: []string{StateStopped}, Dst: StateStarting},
			{Name: evStarted, Src: []string{StateStarting}, Dst: StateTracking},
			{Name: evFail, Src: []string{StateStarting}, Dst: StateStopped},
			{Name: evStop, Src: []string{StateStarting, StateTracking}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				status := e.Dst
				if len(e.Args) > 0 {
					if msg, ok := e.Args[0].(string); ok && msg != "" {
						status = e.Dst + ": " + msg
					}
				}
				c.logger.Info("Session: tracking state changed", "from", e.Src, "to", e.Dst)
				c.events.publish(model.Event{Type: model.EventTracking, Status: status})
			},
		},
	)
	return c
}

// Subscribe returns a stream of session events and a function that ends the subscription.
func (c *Controller) Subscribe(buffer int) (<-chan model.Event, func()) {
	return c.events.subscribe(buffer)
}

// SubscriberCount reports the number of live subscriptions.
func (c *Controller) SubscriberCount() int {
	return c.events.count()
}

// TrackingState returns the current lifecycle state.
func (c *Controller) TrackingState() string {
	return c.machine.Current()
}

// Start begins consuming location updates. It is a no-op when already tracking.
// When the location source refuses access the returned error wraps location.ErrPermissionDenied
// and tracking stays stopped.
func (c *Controller) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if !c.machine.Can(evStart) {
		return nil
	}
	if err := c.machine.Event(ctx, evStart); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if err := c.source.Start(ctx); err != nil {
		_ = c.machine.Event(ctx, evFail, err.Error())
		c.logger.Warn("Session: could not start location updates", "error", err)
		return fmt.Errorf("session: start tracking: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.loopCancel = cancel
	c.loopDone = done
	go c.consume(loopCtx, c.source.Updates(), done)

	_ = c.machine.Event(ctx, evStarted)
	return nil
}

// Stop ends tracking, cancels any narration in flight and clears the active POI.
func (c *Controller) Stop(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if !c.machine.Can(evStop) {
		return ErrNotTracking
	}

	if c.loopCancel != nil {
		c.loopCancel()
		<-c.loopDone
		c.loopCancel, c.loopDone = nil, nil
	}
	c.source.Stop()
	c.cancelNarration()
	c.clearActive()

	_ = c.machine.Event(ctx, evStop)
	return nil
}

// Close stops tracking if needed and waits for narration goroutines to finish.
func (c *Controller) Close() {
	if err := c.Stop(context.Background()); err != nil && !errors.Is(err, ErrNotTracking) {
		c.logger.Warn("Session: stop on close failed", "error", err)
	}
	c.cancelNarration()
	c.narrWG.Wait()
}

func (c *Controller) consume(ctx context.Context, updates <-chan location.Fix, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-updates:
			if !ok {
				return
			}
			c.HandleFix(ctx, fix)
		}
	}
}

// HandleFix applies one location fix: distances are refreshed, the active POI is
// re-selected and entering a POI starts automatic narration.
// Leaving a POI never interrupts narration that is already playing.
func (c *Controller) HandleFix(ctx context.Context, fix location.Fix) {
	c.mu.Lock()
	c.lastFix = &fix
	c.refreshTracked()

	winner := geofence.SelectActive(fix.Point(), c.tracked)
	newID := winner.ID()
	prevID := c.activeID
	changed := newID != prevID
	if changed {
		c.setActiveLocked(newID)
	}
	c.mu.Unlock()
	logging.Trace(c.logger, "Fix processed", "lat", fix.Lat, "lon", fix.Lon, "active", newID)

	c.events.publish(model.Event{Type: model.EventLocationUpdated, Lat: fix.Lat, Lon: fix.Lon})
	if !changed {
		return
	}

	ev := model.Event{Type: model.EventActivePOIChanged, PreviousPOIID: prevID, POIID: newID}
	if winner != nil {
		ev.POIName = winner.POI.DisplayName()
	}
	c.events.publish(ev)

	if winner == nil || !c.settings.AutoNarrate(ctx) {
		return
	}
	c.startNarration(winner.POI, narration.TriggerAuto)
}

// PlayOnDemand narrates poiID, or the active POI when poiID is empty, regardless of cooldown.
// Narration in flight is cancelled first. The attempt runs in the background and reports
// its outcome as a narration event.
func (c *Controller) PlayOnDemand(ctx context.Context, poiID string) (*model.POI, error) {
	if poiID == "" {
		c.mu.RLock()
		poiID = c.activeID
		c.mu.RUnlock()
		if poiID == "" {
			return nil, ErrNoActivePOI
		}
	}

	p, err := c.pois.GetPOI(poiID)
	if err != nil {
		return nil, err
	}
	c.startNarration(p, narration.TriggerManual)
	return p, nil
}

// SetLanguage switches the content language, reloads POIs and clears the active POI.
func (c *Controller) SetLanguage(ctx context.Context, code string) (string, error) {
	lang, err := c.settings.SetCurrentLanguage(ctx, code)
	if err != nil {
		return "", fmt.Errorf("session: save language: %w", err)
	}

	c.cancelNarration()
	if _, err := c.reload(ctx, lang); err != nil {
		return lang, err
	}
	c.clearActive()
	return lang, nil
}

// ReloadPOIs reloads the POI set in the current language. The active POI is kept when it
// is still present; the next fix re-evaluates it.
func (c *Controller) ReloadPOIs(ctx context.Context) (int, error) {
	return c.reload(ctx, c.settings.CurrentLanguage(ctx))
}

func (c *Controller) reload(ctx context.Context, lang string) (int, error) {
	snap, err := c.pois.Reload(ctx, lang)
	if err != nil {
		c.events.publish(model.Event{Type: model.EventPOIsLoaded, Status: "error: " + err.Error()})
		return 0, err
	}

	c.mu.Lock()
	c.refreshTracked()
	c.mu.Unlock()

	c.events.publish(model.Event{Type: model.EventPOIsLoaded, Status: snap.Language, Count: len(snap.POIs)})
	return len(snap.POIs), nil
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot(ctx context.Context) State {
	c.mu.Lock()
	c.refreshTracked()
	st := State{
		Tracking:    c.machine.Current(),
		ActivePOIID: c.activeID,
		POIs:        make([]model.TrackedPOI, 0, len(c.tracked)),
	}
	if c.snap != nil {
		st.Language = c.snap.Language
	}
	if c.lastFix != nil {
		fix := *c.lastFix
		st.Location = &fix
	}
	for _, tp := range c.tracked {
		st.POIs = append(st.POIs, *tp)
	}
	c.mu.Unlock()

	if st.Language == "" {
		st.Language = c.settings.CurrentLanguage(ctx)
	}
	return st
}

// ActivePOI returns the POI the user is inside, if any.
func (c *Controller) ActivePOI() (*model.POI, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, tp := range c.tracked {
		if tp.ID() == c.activeID && c.activeID != "" {
			p := *tp.POI
			return &p, true
		}
	}
	return nil, false
}

// refreshTracked rebuilds the tracked list when the POI manager swapped its snapshot.
// Caller holds c.mu.
func (c *Controller) refreshTracked() {
	snap := c.pois.Snapshot()
	if snap == c.snap {
		return
	}
	prev := make(map[string]model.RuntimeState, len(c.tracked))
	for _, tp := range c.tracked {
		prev[tp.ID()] = tp.State
	}

	c.snap = snap
	c.tracked = geofence.Track(snap.POIs)
	for _, tp := range c.tracked {
		if st, ok := prev[tp.ID()]; ok {
			tp.State.DistanceMeters = st.DistanceMeters
		}
		tp.State.IsActive = c.activeID != "" && tp.ID() == c.activeID
	}
}

func (c *Controller) setActiveLocked(id string) {
	c.activeID = id
	for _, tp := range c.tracked {
		tp.State.IsActive = id != "" && tp.ID() == id
	}
}

func (c *Controller) clearActive() {
	c.mu.Lock()
	prevID := c.activeID
	c.setActiveLocked("")
	c.mu.Unlock()

	if prevID != "" {
		c.events.publish(model.Event{Type: model.EventActivePOIChanged, PreviousPOIID: prevID})
	}
}

// startNarration cancels the attempt in flight and starts a new one under a fresh generation.
func (c *Controller) startNarration(p *model.POI, trigger string) {
	lang := c.settings.CurrentLanguage(context.Background())

	c.narrMu.Lock()
	if c.cancelNarr != nil {
		c.cancelNarr()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.generation++
	gen := c.generation
	c.cancelNarr = cancel
	c.narrWG.Add(1)
	c.narrMu.Unlock()

	go func() {
		defer c.narrWG.Done()
		defer c.finishNarration(gen, cancel)

		outcome, err := c.narrator.Attempt(ctx, p, lang, trigger)
		ev := model.Event{
			Type:    model.EventNarration,
			POIID:   p.ID,
			POIName: p.DisplayName(),
			Outcome: outcome,
			Trigger: trigger,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		c.events.publish(ev)
	}()
}

func (c *Controller) finishNarration(gen uint64, cancel context.CancelFunc) {
	cancel()
	c.narrMu.Lock()
	if c.generation == gen {
		c.cancelNarr = nil
	}
	c.narrMu.Unlock()
}

func (c *Controller) cancelNarration() {
	c.narrMu.Lock()
	if c.cancelNarr != nil {
		c.cancelNarr()
		c.cancelNarr = nil
	}
	c.generation++
	c.narrMu.Unlock()
}

// Generation returns the number of narration attempts started or cancelled so far.
func (c *Controller) Generation() uint64 {
	c.narrMu.Lock()
	defer c.narrMu.Unlock()
	return c.generation
}
