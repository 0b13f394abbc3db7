package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"foodstreet/pkg/config"
	"foodstreet/pkg/store"
)

// AudioController is the player surface the audio endpoints drive.
type AudioController interface {
	Pause()
	Resume()
	Stop()
	SetVolume(vol float64)
	Volume() float64
	IsPlaying() bool
	IsPaused() bool
	Remaining() time.Duration
}

// AudioHandler handles audio control endpoints.
type AudioHandler struct {
	audio AudioController
	store store.StateStore
}

// NewAudioHandler creates a new AudioHandler. st may be nil, in which case volume is not persisted.
func NewAudioHandler(audioMgr AudioController, st store.StateStore) *AudioHandler {
	return &AudioHandler{
		audio: audioMgr,
		store: st,
	}
}

// AudioControlRequest represents an audio control command.
type AudioControlRequest struct {
	Action string `json:"action"` // "pause", "resume", "stop"
}

// AudioVolumeRequest represents a volume change request.
type AudioVolumeRequest struct {
	Volume float64 `json:"volume"`
}

// AudioStatusResponse represents the audio status.
type AudioStatusResponse struct {
	IsPlaying bool    `json:"is_playing"`
	IsPaused  bool    `json:"is_paused"`
	Volume    float64 `json:"volume"`
	Remaining float64 `json:"remaining_seconds"`
}

// HandleControl handles POST /api/audio/control.
// Stopping only silences the player; the narration attempt that owns it ends on its own.
func (h *AudioHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	var req AudioControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var state string
	switch req.Action {
	case "pause":
		h.audio.Pause()
		state = "paused"
	case "resume":
		h.audio.Resume()
		state = "playing"
	case "stop":
		h.audio.Stop()
		state = "stopped"
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	slog.Debug("Audio control", "action", req.Action, "state", state)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": state})
}

// HandleVolume handles POST /api/audio/volume.
func (h *AudioHandler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	var req AudioVolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		writeError(w, http.StatusBadRequest, "volume must be between 0 and 1")
		return
	}

	h.audio.SetVolume(req.Volume)

	if h.store != nil {
		if err := h.store.SetState(r.Context(), config.KeyVolume, fmt.Sprintf("%.2f", req.Volume)); err != nil {
			slog.Error("Failed to persist volume", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"volume": h.audio.Volume(),
	})
}

// HandleStatus handles GET /api/audio/status.
func (h *AudioHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AudioStatusResponse{
		IsPlaying: h.audio.IsPlaying(),
		IsPaused:  h.audio.IsPaused(),
		Volume:    h.audio.Volume(),
		Remaining: h.audio.Remaining().Seconds(),
	})
}
