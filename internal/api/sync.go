package api

import (
	"log/slog"
	"net/http"

	"foodstreet/pkg/poisync"
)

// SyncHandler triggers a pull from the admin backend.
type SyncHandler struct {
	sync    Syncer
	session Session
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(sync Syncer, s Session) *SyncHandler {
	return &SyncHandler{sync: sync, session: s}
}

// SyncResponse is the body of POST /api/sync.
type SyncResponse struct {
	Result *poisync.Result `json:"result"`
	Loaded int             `json:"loaded"`
}

// HandleSync handles POST /api/sync.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.sync.Sync(r.Context())
	if err != nil {
		slog.Warn("API: sync failed", "error", err)
		writeError(w, backendStatus(err), err.Error())
		return
	}

	n, err := h.session.ReloadPOIs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Result: res, Loaded: n})
}

// HandleStatus handles GET /api/sync/status.
func (h *SyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.Status())
}
