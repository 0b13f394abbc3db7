package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"foodstreet/pkg/geo"
	"foodstreet/pkg/model"
	"foodstreet/pkg/poi"
	"foodstreet/pkg/poisync"
)

// SavedPOIRadius is the geofence radius given to POIs saved from the map.
const SavedPOIRadius = 40

// POIHandler exposes POI data to the frontend and saves map edits to the admin backend.
type POIHandler struct {
	session Session
	sync    Syncer
}

// NewPOIHandler creates a new POI handler. sync may be nil, which disables saving.
func NewPOIHandler(s Session, sync Syncer) *POIHandler {
	return &POIHandler{session: s, sync: sync}
}

// POIListResponse is the body of GET /api/pois.
type POIListResponse struct {
	Language    string             `json:"language"`
	ActivePOIID string             `json:"active_poi_id,omitempty"`
	POIs        []model.TrackedPOI `json:"pois"`
}

// SavePOIRequest is the body of POST /api/pois.
type SavePOIRequest struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Description string  `json:"description"`
}

// HandleList handles GET /api/pois.
func (h *POIHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	st := h.session.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, POIListResponse{
		Language:    st.Language,
		ActivePOIID: st.ActivePOIID,
		POIs:        st.POIs,
	})
}

// HandleGeoJSON handles GET /api/pois.geojson.
func (h *POIHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	st := h.session.Snapshot(r.Context())
	pois := make([]model.POI, 0, len(st.POIs))
	states := make(map[string]model.RuntimeState, len(st.POIs))
	for _, tp := range st.POIs {
		pois = append(pois, *tp.POI)
		states[tp.POI.ID] = tp.State
	}

	data, err := geo.POIFeatureCollection(pois, states).MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write geojson", "error", err)
	}
}

// HandleSave handles POST /api/pois: the POI is upserted on the admin backend under a
// deterministic id, then the local set is refreshed.
func (h *POIHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, http.StatusNotImplemented, "saving POIs is not configured")
		return
	}

	var req SavePOIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !(geo.Point{Lat: req.Lat, Lon: req.Lon}).Valid() {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	id := poi.DeterministicID(req.Name, req.Lat, req.Lon)
	base, err := h.sync.Upsert(r.Context(), poisync.UpsertRequest{
		ID:           id,
		ShopName:     req.Name,
		Latitude:     req.Lat,
		Longitude:    req.Lon,
		RadiusMeters: SavedPOIRadius,
		Description:  req.Description,
		TTSText:      req.Description,
	})
	if err != nil {
		slog.Warn("API: failed to save POI", "id", id, "error", err)
		writeError(w, backendStatus(err), err.Error())
		return
	}

	h.refresh(r.Context())
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "base_url": base})
}

// HandleDelete handles DELETE /api/pois/{id}.
func (h *POIHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, http.StatusNotImplemented, "deleting POIs is not configured")
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	if err := h.sync.Delete(r.Context(), id); err != nil {
		slog.Warn("API: failed to delete POI", "id", id, "error", err)
		writeError(w, backendStatus(err), err.Error())
		return
	}

	h.refresh(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// refresh pulls the admin data into the local store and reloads the session's POI set.
// Failures are logged; the edit itself already succeeded.
func (h *POIHandler) refresh(ctx context.Context) {
	if _, err := h.sync.Sync(ctx); err != nil {
		slog.Warn("API: sync after edit failed", "error", err)
	}
	if _, err := h.session.ReloadPOIs(ctx); err != nil {
		slog.Warn("API: reload after edit failed", "error", err)
	}
}

func backendStatus(err error) int {
	if errors.Is(err, poisync.ErrNoBackend) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
