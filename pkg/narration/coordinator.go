// Package narration gates and performs POI narration: one playback at a time,
// cooldown per POI and language, durable history in the playback ledger.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"foodstreet/pkg/model"
	"foodstreet/pkg/tracker"
	"foodstreet/pkg/tts"
)

// Triggers recorded with each attempt.
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

// AudioLauncher hands a pre-recorded clip to the player and returns without waiting for it.
type AudioLauncher interface {
	Open(ctx context.Context, url string) error
}

// SpeechSettings supplies TTS parameters at call time.
type SpeechSettings interface {
	SpeechRate(ctx context.Context) float64
	SpeechPitch(ctx context.Context) float64
	Locale(ctx context.Context, lang string) string
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	Busy      bool      `json:"busy"`
	POIID     string    `json:"poi_id,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Coordinator serializes narration through a single slot.
type Coordinator struct {
	ledger   *Ledger
	engine   tts.Engine
	launcher AudioLauncher
	speech   SpeechSettings
	tracker  *tracker.Tracker

	slot *semaphore.Weighted

	mu     sync.RWMutex
	status Status
}

// NewCoordinator creates a Coordinator. t may be nil.
func NewCoordinator(ledger *Ledger, engine tts.Engine, launcher AudioLauncher, speech SpeechSettings, t *tracker.Tracker) *Coordinator {
	return &Coordinator{
		ledger:   ledger,
		engine:   engine,
		launcher: launcher,
		speech:   speech,
		tracker:  t,
		slot:     semaphore.NewWeighted(1),
	}
}

// Ledger exposes the playback ledger.
func (c *Coordinator) Ledger() *Ledger {
	return c.ledger
}

// CanPlay reports whether poiID may be narrated automatically in lang.
func (c *Coordinator) CanPlay(ctx context.Context, poiID, lang string) bool {
	return c.ledger.CanPlay(ctx, poiID, lang)
}

// TryPlay narrates poi if it has content and is not in cooldown for lang.
// It returns true only when the narration completed and was recorded.
func (c *Coordinator) TryPlay(ctx context.Context, poi *model.POI, lang string) (bool, error) {
	outcome, err := c.Attempt(ctx, poi, lang, TriggerAuto)
	return outcome == model.OutcomePlayed, err
}

// PlayOnDemand narrates poi regardless of cooldown. It still waits for the slot
// and records the playback.
func (c *Coordinator) PlayOnDemand(ctx context.Context, poi *model.POI, lang string) (bool, error) {
	outcome, err := c.Attempt(ctx, poi, lang, TriggerManual)
	return outcome == model.OutcomePlayed, err
}

// Attempt runs one narration attempt and reports how it ended.
// TriggerAuto applies the cooldown before and after acquiring the slot; TriggerManual skips it.
func (c *Coordinator) Attempt(ctx context.Context, poi *model.POI, lang, trigger string) (outcome model.NarrationOutcome, err error) {
	defer func() {
		if c.tracker != nil {
			c.tracker.TrackOutcome(trigger, outcome)
		}
	}()

	if !poi.HasPlayableContent() {
		return model.OutcomeNoContent, nil
	}
	lang = model.NormalizeLanguage(lang)
	checkCooldown := trigger != TriggerManual

	if checkCooldown && !c.ledger.CanPlay(ctx, poi.ID, lang) {
		return model.OutcomeSuppressed, nil
	}

	if err := c.slot.Acquire(ctx, 1); err != nil {
		return model.OutcomeCancelled, nil
	}
	defer c.slot.Release(1)

	// Another attempt may have played this POI while we waited.
	if checkCooldown && !c.ledger.CanPlay(ctx, poi.ID, lang) {
		return model.OutcomeSuppressed, nil
	}
	if ctx.Err() != nil {
		return model.OutcomeCancelled, nil
	}

	c.setStatus(Status{Busy: true, POIID: poi.ID, Trigger: trigger, StartedAt: time.Now()})
	defer c.setStatus(Status{})

	if err := c.play(ctx, poi); err != nil {
		if ctx.Err() != nil {
			slog.Info("Narration: cancelled", "poi_id", poi.ID, "trigger", trigger)
			return model.OutcomeCancelled, nil
		}
		slog.Error("Narration: playback failed", "poi_id", poi.ID, "trigger", trigger, "error", err)
		return model.OutcomeFailed, fmt.Errorf("%w: %s: %w", ErrPlaybackFailed, poi.ID, err)
	}
	// A clip handed to the launcher keeps playing, so it is recorded even if cancelled now.
	if ctx.Err() != nil && !poi.HasAudio() {
		return model.OutcomeCancelled, nil
	}

	rec, err := c.ledger.MarkPlayed(context.WithoutCancel(ctx), poi.ID, lang)
	if err != nil {
		slog.Error("Narration: failed to record playback", "poi_id", poi.ID, "error", err)
		return model.OutcomeFailed, fmt.Errorf("%w: %s: %w", ErrLedgerWrite, poi.ID, err)
	}
	slog.Info("Narration: played", "poi_id", poi.ID, "lang", lang, "trigger", trigger, "play_count", rec.PlayCount)
	return model.OutcomePlayed, nil
}

// play prefers the pre-recorded clip; otherwise speaks the narration text in the
// language it was authored in.
func (c *Coordinator) play(ctx context.Context, poi *model.POI) error {
	if poi.HasAudio() {
		if c.launcher == nil {
			return errors.New("no audio launcher configured")
		}
		return c.launcher.Open(ctx, poi.AudioURL)
	}
	if c.engine == nil {
		return errors.New("no tts engine configured")
	}
	locale := model.LocaleFor(poi.NarrationLanguage())
	rate, pitch := 1.0, 1.0
	if c.speech != nil {
		locale = c.speech.Locale(ctx, poi.NarrationLanguage())
		rate = c.speech.SpeechRate(ctx)
		pitch = c.speech.SpeechPitch(ctx)
	}
	return c.engine.Speak(ctx, poi.Narration, locale, rate, pitch)
}

// Status returns what the coordinator is doing right now.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
