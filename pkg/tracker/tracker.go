package tracker

import (
	"sync"
	"sync/atomic"

	"foodstreet/pkg/model"
)

// Tracker counts narration outcomes per trigger and API calls per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*Stats
}

// Stats holds the counters of one key (a trigger such as "auto" or a provider such as "edge-tts").
// Fields are accessed atomically.
type Stats struct {
	Played     int64 `json:"played"`
	Suppressed int64 `json:"suppressed"`
	NoContent  int64 `json:"no_content"`
	Cancelled  int64 `json:"cancelled"`
	Failed     int64 `json:"failed"`

	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	APISuccess  int64 `json:"api_success"`
	APIFailures int64 `json:"api_failures"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*Stats),
	}
}

// getStats returns the stats object for a key, creating it if needed.
func (t *Tracker) getStats(key string) *Stats {
	t.mu.RLock()
	s, ok := t.stats[key]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[key]; ok {
		return s
	}
	s = &Stats{}
	t.stats[key] = s
	return s
}

// TrackOutcome increments the counter for a narration outcome under the given trigger.
func (t *Tracker) TrackOutcome(trigger string, outcome model.NarrationOutcome) {
	s := t.getStats(trigger)
	switch outcome {
	case model.OutcomePlayed:
		atomic.AddInt64(&s.Played, 1)
	case model.OutcomeSuppressed:
		atomic.AddInt64(&s.Suppressed, 1)
	case model.OutcomeNoContent:
		atomic.AddInt64(&s.NoContent, 1)
	case model.OutcomeCancelled:
		atomic.AddInt64(&s.Cancelled, 1)
	case model.OutcomeFailed:
		atomic.AddInt64(&s.Failed, 1)
	}
}

func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]Stats, len(t.stats))
	for k, v := range t.stats {
		result[k] = Stats{
			Played:      atomic.LoadInt64(&v.Played),
			Suppressed:  atomic.LoadInt64(&v.Suppressed),
			NoContent:   atomic.LoadInt64(&v.NoContent),
			Cancelled:   atomic.LoadInt64(&v.Cancelled),
			Failed:      atomic.LoadInt64(&v.Failed),
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
		}
	}
	return result
}
