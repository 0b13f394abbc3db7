package api

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"foodstreet/pkg/tracker"
)

type StatsHandler struct {
	tracker *tracker.Tracker
	session Session
	started time.Time

	mu     sync.Mutex
	maxMem uint64
}

func NewStatsHandler(t *tracker.Tracker, s Session) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		session: s,
		started: time.Now(),
	}
}

type ProviderStatsDTO struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	APISuccess  int64 `json:"api_success"`
	APIFailures int64 `json:"api_errors"`
	HitRate     int64 `json:"hit_rate"`
}

type OutcomeStatsDTO struct {
	Played     int64 `json:"played"`
	Suppressed int64 `json:"suppressed"`
	NoContent  int64 `json:"no_content"`
	Cancelled  int64 `json:"cancelled"`
	Failed     int64 `json:"failed"`
}

type ServerStats struct {
	MemoryMB    uint64 `json:"memory_mb"`
	MemoryMaxMB uint64 `json:"memory_max_mb"`
	Goroutines  int    `json:"goroutines"`
	UptimeSec   int64  `json:"uptime_sec"`
}

type TrackingStats struct {
	State      string `json:"state"`
	ActivePOIs int    `json:"active_pois"`
	ActivePOI  string `json:"active_poi_id,omitempty"`
}

type StatsResponse struct {
	Server    ServerStats                 `json:"server"`
	Tracking  TrackingStats               `json:"tracking"`
	Narration map[string]OutcomeStatsDTO  `json:"narration"`
	Providers map[string]ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()
	st := h.session.Snapshot(r.Context())

	resp := StatsResponse{
		Server: h.serverStats(),
		Tracking: TrackingStats{
			State:      st.Tracking,
			ActivePOIs: len(st.POIs),
			ActivePOI:  st.ActivePOIID,
		},
		Narration: make(map[string]OutcomeStatsDTO),
		Providers: make(map[string]ProviderStatsDTO),
	}

	// Outcome counters live under trigger keys, API counters under provider keys.
	for key, stats := range snapshot {
		if stats.Played+stats.Suppressed+stats.NoContent+stats.Cancelled+stats.Failed > 0 {
			resp.Narration[key] = OutcomeStatsDTO{
				Played:     stats.Played,
				Suppressed: stats.Suppressed,
				NoContent:  stats.NoContent,
				Cancelled:  stats.Cancelled,
				Failed:     stats.Failed,
			}
		}
		if stats.CacheHits+stats.CacheMisses+stats.APISuccess+stats.APIFailures == 0 {
			continue
		}
		totalCache := stats.CacheHits + stats.CacheMisses
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (stats.CacheHits * 100) / totalCache
		}
		resp.Providers[key] = ProviderStatsDTO{
			CacheHits:   stats.CacheHits,
			CacheMisses: stats.CacheMisses,
			APISuccess:  stats.APISuccess,
			APIFailures: stats.APIFailures,
			HitRate:     hitRate,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *StatsHandler) serverStats() ServerStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.mu.Lock()
	if m.Alloc > h.maxMem {
		h.maxMem = m.Alloc
	}
	maxMem := h.maxMem
	h.mu.Unlock()

	return ServerStats{
		MemoryMB:    bToMb(m.Alloc),
		MemoryMaxMB: bToMb(maxMem),
		Goroutines:  runtime.NumGoroutine(),
		UptimeSec:   int64(time.Since(h.started).Seconds()),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
