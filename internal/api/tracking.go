package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"foodstreet/pkg/location"
	"foodstreet/pkg/session"
)

// TrackingHandler starts and stops location tracking and accepts manual fixes.
type TrackingHandler struct {
	session Session
	manual  *location.Manual
}

// NewTrackingHandler creates a TrackingHandler. manual is nil unless the manual
// location provider is configured.
func NewTrackingHandler(s Session, manual *location.Manual) *TrackingHandler {
	return &TrackingHandler{session: s, manual: manual}
}

// TrackingStatusResponse is the body of the tracking endpoints.
type TrackingStatusResponse struct {
	Tracking    string        `json:"tracking"`
	Language    string        `json:"language"`
	Location    *location.Fix `json:"location,omitempty"`
	ActivePOIID string        `json:"active_poi_id,omitempty"`
	POICount    int           `json:"poi_count"`
}

// LocationRequest is the body of POST /api/location.
type LocationRequest struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Accuracy   float64 `json:"accuracy"`
	Permission *bool   `json:"permission,omitempty"`
}

// HandleStart handles POST /api/tracking/start.
func (h *TrackingHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(r.Context()); err != nil {
		if errors.Is(err, location.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		slog.Error("API: failed to start tracking", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.HandleStatus(w, r)
}

// HandleStop handles POST /api/tracking/stop.
func (h *TrackingHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Stop(r.Context()); err != nil {
		if errors.Is(err, session.ErrNotTracking) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.HandleStatus(w, r)
}

// HandleStatus handles GET /api/tracking/status.
func (h *TrackingHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.session.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, TrackingStatusResponse{
		Tracking:    st.Tracking,
		Language:    st.Language,
		Location:    st.Location,
		ActivePOIID: st.ActivePOIID,
		POICount:    len(st.POIs),
	})
}

// HandleLocation handles POST /api/location, feeding the manual provider.
func (h *TrackingHandler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	if h.manual == nil {
		writeError(w, http.StatusNotFound, "manual location provider is not enabled")
		return
	}

	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Permission != nil {
		h.manual.SetPermission(*req.Permission)
	}
	if err := h.manual.Set(req.Lat, req.Lon, req.Accuracy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "ok", "lat": req.Lat, "lon": req.Lon})
}
