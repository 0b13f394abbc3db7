// Package admin serves the POI admin backend: the shop table the guide syncs from,
// a multipart form for editing shops with audio uploads, and the JSON upsert used by the guide's map.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"foodstreet/pkg/geo"
	"foodstreet/pkg/model"
)

// DefaultRadiusMeters is used by the JSON upsert when the request carries no radius.
const DefaultRadiusMeters = 40

const maxUploadBytes = 32 << 20

// Validation messages returned to the admin page.
const (
	msgNameRequired  = "Ten shop bat buoc."
	msgInvalidGPS    = "GPS khong hop le. Dung dang 'lat, lon'."
	msgInvalidLatLon = "Latitude/Longitude khong hop le."
	msgInvalidRadius = "Radius (m) phai lon hon 0."
)

// ShopStore is the persistence the admin handlers need.
type ShopStore interface {
	ListShops(ctx context.Context, activeOnly bool) ([]model.Shop, error)
	GetShop(ctx context.Context, id string) (*model.Shop, error)
	UpsertShop(ctx context.Context, sh *model.Shop) error
	DeleteShop(ctx context.Context, id string) (bool, error)
}

// ShopHandler implements the /api/shops endpoints.
type ShopHandler struct {
	store     ShopStore
	uploadDir string
}

// NewShopHandler creates the handler. Uploaded audio is written to uploadDir and served under /uploads/.
func NewShopHandler(store ShopStore, uploadDir string) *ShopHandler {
	return &ShopHandler{store: store, uploadDir: uploadDir}
}

// UpsertRequest is the body of POST /api/shops/upsert.
type UpsertRequest struct {
	ID           string   `json:"id"`
	ShopName     string   `json:"shopName"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	RadiusMeters *float64 `json:"radiusMeters"`
	Description  string   `json:"description"`
	TTSText      string   `json:"ttsText"`
}

// HandleList handles GET /api/shops. Inactive shops are listed too; the guide decides what to import.
func (h *ShopHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	shops, err := h.store.ListShops(r.Context(), false)
	if err != nil {
		slog.Error("Admin: list shops failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}
	writeJSON(w, http.StatusOK, shops)
}

// HandleGeoJSON handles GET /api/shops.geojson for the admin map.
func (h *ShopHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	shops, err := h.store.ListShops(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}

	pois := make([]model.POI, 0, len(shops))
	for i := range shops {
		pois = append(pois, shopToPOI(&shops[i]))
	}
	data, err := geo.POIFeatureCollection(pois, nil).MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// HandleGet handles GET /api/shops/{id}.
func (h *ShopHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sh, err := h.store.GetShop(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load shop")
		return
	}
	if sh == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

// HandleSaveForm handles the admin page's multipart POST /api/shops.
// The stored audio is kept unless a new audioFile is uploaded.
func (h *ShopHandler) HandleSaveForm(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "Request must be multipart/form-data.")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	sh := &model.Shop{
		ID:          strings.TrimSpace(r.FormValue("id")),
		ShopName:    strings.TrimSpace(r.FormValue("shopName")),
		Description: strings.TrimSpace(r.FormValue("description")),
		TTSText:     strings.TrimSpace(r.FormValue("ttsText")),
	}
	if sh.ShopName == "" {
		writeError(w, http.StatusBadRequest, msgNameRequired)
		return
	}
	lat, lon, ok := ParseGPS(r.FormValue("gps"))
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidGPS)
		return
	}
	sh.Latitude, sh.Longitude = lat, lon
	radius, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("radiusMeters")), 64)
	if err != nil || radius <= 0 {
		writeError(w, http.StatusBadRequest, msgInvalidRadius)
		return
	}
	sh.RadiusMeters = radius

	if err := h.keepExisting(r.Context(), sh); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load shop")
		return
	}

	file, header, err := r.FormFile("audioFile")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > 0 {
			url, err := h.saveUpload(file, header.Filename)
			if err != nil {
				slog.Error("Admin: audio upload failed", "error", err)
				writeError(w, http.StatusInternalServerError, "failed to store audio file")
				return
			}
			sh.AudioURL = url
		}
	case !errors.Is(err, http.ErrMissingFile):
		writeError(w, http.StatusBadRequest, "invalid audio file")
		return
	}

	if sh.ID == "" {
		sh.ID = newID()
	}
	if err := h.store.UpsertShop(r.Context(), sh); err != nil {
		slog.Error("Admin: save shop failed", "id", sh.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save shop")
		return
	}
	slog.Info("Admin: shop saved", "id", sh.ID, "name", sh.ShopName, "audio", sh.AudioURL != "")
	writeJSON(w, http.StatusOK, map[string]string{"id": sh.ID})
}

// HandleUpsert handles POST /api/shops/upsert, the JSON variant used by guide clients.
func (h *ShopHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ShopName) == "" {
		writeError(w, http.StatusBadRequest, msgNameRequired)
		return
	}
	if !(geo.Point{Lat: req.Latitude, Lon: req.Longitude}).Valid() {
		writeError(w, http.StatusBadRequest, msgInvalidLatLon)
		return
	}
	radius := float64(DefaultRadiusMeters)
	if req.RadiusMeters != nil {
		radius = *req.RadiusMeters
	}
	if radius <= 0 {
		writeError(w, http.StatusBadRequest, msgInvalidRadius)
		return
	}

	sh := &model.Shop{
		ID:           strings.TrimSpace(req.ID),
		ShopName:     strings.TrimSpace(req.ShopName),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: radius,
		Description:  strings.TrimSpace(req.Description),
		TTSText:      strings.TrimSpace(req.TTSText),
	}
	if sh.ID == "" {
		sh.ID = newID()
	}
	if err := h.keepExisting(r.Context(), sh); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load shop")
		return
	}
	if err := h.store.UpsertShop(r.Context(), sh); err != nil {
		slog.Error("Admin: upsert shop failed", "id", sh.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save shop")
		return
	}
	slog.Info("Admin: shop upserted", "id", sh.ID, "name", sh.ShopName)
	writeJSON(w, http.StatusOK, map[string]string{"id": sh.ID})
}

// HandleDelete handles DELETE /api/shops/{id}.
func (h *ShopHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := h.store.DeleteShop(r.Context(), id)
	if err != nil {
		slog.Error("Admin: delete shop failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete shop")
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	slog.Info("Admin: shop deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// keepExisting copies the stored audio and priority onto an edit of an existing shop.
func (h *ShopHandler) keepExisting(ctx context.Context, sh *model.Shop) error {
	if sh.ID == "" {
		return nil
	}
	cur, err := h.store.GetShop(ctx, sh.ID)
	if err != nil || cur == nil {
		return err
	}
	sh.AudioURL = cur.AudioURL
	sh.Priority = cur.Priority
	return nil
}

func (h *ShopHandler) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := newID() + strings.ToLower(filepath.Ext(filename))
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}

// ParseGPS parses "lat, lon" in invariant notation and checks the coordinate ranges.
func ParseGPS(raw string) (lat, lon float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if !(geo.Point{Lat: lat, Lon: lon}).Valid() {
		return 0, 0, false
	}
	return lat, lon, true
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func shopToPOI(sh *model.Shop) model.POI {
	return model.POI{
		ID:           sh.ID,
		Name:         sh.ShopName,
		Description:  sh.Description,
		Lat:          sh.Latitude,
		Lon:          sh.Longitude,
		RadiusMeters: sh.RadiusMeters,
		Priority:     sh.Priority,
		Narration:    sh.TTSText,
		AudioURL:     sh.AudioURL,
		Language:     "vi",
		MapLink:      model.MapLink(sh.Latitude, sh.Longitude),
	}
}
