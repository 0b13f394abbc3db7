package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"foodstreet/pkg/version"
)

// Handlers groups the endpoint handlers of the guide server. Nil handlers leave their routes unregistered.
type Handlers struct {
	POIs     *POIHandler
	Tracking *TrackingHandler
	Narrator *NarratorHandler
	Audio    *AudioHandler
	Settings *SettingsHandler
	Sync     *SyncHandler
	Stats    *StatsHandler
	Events   *EventHub
	WebRoot  string
}

// NewServer creates and configures the HTTP server.
func NewServer(addr string, h Handlers, shutdown func()) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(NewMux(h, shutdown)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers all routes.
func NewMux(h Handlers, shutdown func()) *http.ServeMux {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Logs
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/events", handleRecentEvents)

	// 3. POIs
	if h.POIs != nil {
		mux.HandleFunc("GET /api/pois", h.POIs.HandleList)
		mux.HandleFunc("GET /api/pois.geojson", h.POIs.HandleGeoJSON)
		mux.HandleFunc("POST /api/pois", h.POIs.HandleSave)
		mux.HandleFunc("DELETE /api/pois/{id}", h.POIs.HandleDelete)
	}

	// 4. Tracking and location
	if h.Tracking != nil {
		mux.HandleFunc("POST /api/tracking/start", h.Tracking.HandleStart)
		mux.HandleFunc("POST /api/tracking/stop", h.Tracking.HandleStop)
		mux.HandleFunc("GET /api/tracking/status", h.Tracking.HandleStatus)
		mux.HandleFunc("POST /api/location", h.Tracking.HandleLocation)
	}

	// 5. Narrator
	if h.Narrator != nil {
		mux.HandleFunc("POST /api/narrator/play", h.Narrator.HandlePlay)
		mux.HandleFunc("GET /api/narrator/status", h.Narrator.HandleStatus)
	}

	// 6. Audio
	if h.Audio != nil {
		mux.HandleFunc("POST /api/audio/control", h.Audio.HandleControl)
		mux.HandleFunc("POST /api/audio/volume", h.Audio.HandleVolume)
		mux.HandleFunc("GET /api/audio/status", h.Audio.HandleStatus)
	}

	// 7. Settings and sync
	if h.Settings != nil {
		mux.HandleFunc("GET /api/settings", h.Settings.HandleGet)
		mux.HandleFunc("PUT /api/settings", h.Settings.HandleUpdate)
	}
	if h.Sync != nil {
		mux.HandleFunc("POST /api/sync", h.Sync.HandleSync)
		mux.HandleFunc("GET /api/sync/status", h.Sync.HandleStatus)
	}

	// 8. Stats and events
	if h.Stats != nil {
		mux.Handle("GET /api/stats", h.Stats)
	}
	if h.Events != nil {
		mux.Handle("GET /api/events", h.Events)
	}

	// 9. Shutdown
	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// let the response flush first
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	// 10. Web app
	if h.WebRoot != "" {
		mux.Handle("/", http.FileServer(&spaFileSystem{root: http.Dir(h.WebRoot)}))
	}

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
