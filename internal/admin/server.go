package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"foodstreet/pkg/config"
	"foodstreet/pkg/logging"
)

// NewServer creates the admin HTTP server. CORS is open to cfg.CORSOrigins so that
// guide clients on the LAN can call /api/shops directly.
func NewServer(cfg config.AdminConfig, h *ShopHandler) *http.Server {
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      requestLogger(c.Handler(NewMux(h, cfg.WebRoot, cfg.UploadDir))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}
}

// NewMux registers the shop API, the uploaded audio files and the static admin page.
// Empty directories leave their routes unregistered.
func NewMux(h *ShopHandler, webRoot, uploadDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/shops", h.HandleList)
	mux.HandleFunc("GET /api/shops.geojson", h.HandleGeoJSON)
	mux.HandleFunc("GET /api/shops/{id}", h.HandleGet)
	mux.HandleFunc("POST /api/shops", h.HandleSaveForm)
	mux.HandleFunc("POST /api/shops/upsert", h.HandleUpsert)
	mux.HandleFunc("DELETE /api/shops/{id}", h.HandleDelete)

	if uploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}
	if webRoot != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(webRoot)))
	}
	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.RequestLogger.Info("Admin Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
