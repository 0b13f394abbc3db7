package narration

import (
	"context"
	"log/slog"
	"time"

	"foodstreet/pkg/model"
	"foodstreet/pkg/store"
)

// CooldownSource yields the current cooldown; it is consulted on every check so
// settings changes apply without a restart.
type CooldownSource interface {
	Cooldown(ctx context.Context) time.Duration
}

// Ledger decides whether a POI may be narrated again and records completed playbacks.
type Ledger struct {
	store    store.PlaybackStore
	cooldown CooldownSource
	now      func() time.Time
}

// NewLedger creates a ledger over st.
func NewLedger(st store.PlaybackStore, cd CooldownSource) *Ledger {
	return &Ledger{store: st, cooldown: cd, now: time.Now}
}

// SetClock replaces the time source (tests).
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// CanPlay reports whether poiID may be narrated in lang now:
// never played, played last in another language, or the cooldown has elapsed.
// A ledger that cannot be read does not block narration.
func (l *Ledger) CanPlay(ctx context.Context, poiID, lang string) bool {
	rec, err := l.store.GetPlayback(ctx, poiID)
	if err != nil {
		slog.Warn("Narration: ledger read failed, allowing playback", "poi_id", poiID, "error", err)
		return true
	}
	if rec == nil {
		return true
	}
	if model.NormalizeLanguage(rec.LastLanguage) != model.NormalizeLanguage(lang) {
		return true
	}
	return l.now().Sub(rec.LastPlayedAt) >= l.cooldown.Cooldown(ctx)
}

// MarkPlayed records a completed playback and increments the play count.
func (l *Ledger) MarkPlayed(ctx context.Context, poiID, lang string) (*model.PlaybackRecord, error) {
	return l.store.RecordPlayback(ctx, poiID, model.NormalizeLanguage(lang), l.now().UTC())
}

// Record returns the ledger entry for poiID, or nil if it was never played.
func (l *Ledger) Record(ctx context.Context, poiID string) (*model.PlaybackRecord, error) {
	return l.store.GetPlayback(ctx, poiID)
}

// Remaining returns how long poiID stays suppressed in lang; zero when it may play.
func (l *Ledger) Remaining(ctx context.Context, poiID, lang string) time.Duration {
	rec, err := l.store.GetPlayback(ctx, poiID)
	if err != nil || rec == nil || model.NormalizeLanguage(rec.LastLanguage) != model.NormalizeLanguage(lang) {
		return 0
	}
	left := l.cooldown.Cooldown(ctx) - l.now().Sub(rec.LastPlayedAt)
	if left < 0 {
		return 0
	}
	return left
}
