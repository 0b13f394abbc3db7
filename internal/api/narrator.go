package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"foodstreet/pkg/narration"
	"foodstreet/pkg/poi"
	"foodstreet/pkg/session"
	"foodstreet/pkg/tracker"
)

// NarratorHandler handles narrator control endpoints.
type NarratorHandler struct {
	session   Session
	narration NarrationStatus
	tracker   *tracker.Tracker

	statusMu   sync.Mutex
	lastStatus string
}

// NewNarratorHandler creates a new NarratorHandler. t may be nil.
func NewNarratorHandler(s Session, n NarrationStatus, t *tracker.Tracker) *NarratorHandler {
	return &NarratorHandler{session: s, narration: n, tracker: t}
}

// PlayRequest represents a manual narration play request. An empty id plays the active POI.
type PlayRequest struct {
	POIID string `json:"poi_id"`
}

// NarratorStatusResponse represents the narrator status.
type NarratorStatusResponse struct {
	PlaybackStatus string                   `json:"playback_status"` // idle, playing
	POIID          string                   `json:"poi_id,omitempty"`
	Trigger        string                   `json:"trigger,omitempty"`
	StartedAt      *time.Time               `json:"started_at,omitempty"`
	ActivePOIID    string                   `json:"active_poi_id,omitempty"`
	Outcomes       map[string]tracker.Stats `json:"outcomes"`
}

// HandlePlay handles POST /api/narrator/play.
func (h *NarratorHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.session.PlayOnDemand(r.Context(), req.POIID)
	switch {
	case errors.Is(err, session.ErrNoActivePOI):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, poi.ErrPOINotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("API: manual narration requested", "poi_id", p.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "poi_id": p.ID})
}

// HandleStatus handles GET /api/narrator/status.
func (h *NarratorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.narration.Status()
	resp := NarratorStatusResponse{
		PlaybackStatus: "idle",
		ActivePOIID:    h.session.Snapshot(r.Context()).ActivePOIID,
		Outcomes:       make(map[string]tracker.Stats),
	}
	if st.Busy {
		resp.PlaybackStatus = "playing"
		resp.POIID = st.POIID
		resp.Trigger = st.Trigger
		started := st.StartedAt
		resp.StartedAt = &started
	}
	if h.tracker != nil {
		snap := h.tracker.Snapshot()
		for _, trigger := range []string{narration.TriggerAuto, narration.TriggerManual} {
			if s, ok := snap[trigger]; ok {
				resp.Outcomes[trigger] = s
			}
		}
	}

	h.logStateChange(resp)
	writeJSON(w, http.StatusOK, resp)
}

// logStateChange logs the status only when it differs from the previous poll.
func (h *NarratorHandler) logStateChange(resp NarratorStatusResponse) {
	key := resp.PlaybackStatus + "|" + resp.POIID
	h.statusMu.Lock()
	defer h.statusMu.Unlock()
	if key == h.lastStatus {
		return
	}
	h.lastStatus = key
	slog.Debug("Narrator state changed", "status", resp.PlaybackStatus, "poi_id", resp.POIID)
}
