package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// SettingsProvider reads and writes the persisted runtime settings.
type SettingsProvider interface {
	CurrentLanguage(ctx context.Context) string
	CooldownSeconds(ctx context.Context) int
	SetCooldownSeconds(ctx context.Context, seconds int) error
	AutoNarrate(ctx context.Context) bool
	SetAutoNarrate(ctx context.Context, on bool) error
	AdminBaseURLs(ctx context.Context) []string
	SetAdminBaseURLs(ctx context.Context, raw string) error
	SpeechRate(ctx context.Context) float64
	SpeechPitch(ctx context.Context) float64
}

// SettingsHandler handles GET/PUT /api/settings.
type SettingsHandler struct {
	settings  SettingsProvider
	session   Session
	ttsEngine string
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(p SettingsProvider, s Session, ttsEngine string) *SettingsHandler {
	return &SettingsHandler{settings: p, session: s, ttsEngine: ttsEngine}
}

// SettingsResponse represents the settings API response.
type SettingsResponse struct {
	CurrentLanguage      string   `json:"current_language"`
	AudioCooldownSeconds int      `json:"audio_cooldown_seconds"`
	AutoNarrate          bool     `json:"auto_narrate"`
	AdminBaseURLs        []string `json:"admin_base_urls"`
	SpeechRate           float64  `json:"speech_rate"`
	SpeechPitch          float64  `json:"speech_pitch"`
	TTSEngine            string   `json:"tts_engine"`
}

// SettingsRequest represents a partial settings update. Missing fields are left unchanged.
type SettingsRequest struct {
	CurrentLanguage      *string `json:"current_language,omitempty"`
	AudioCooldownSeconds *int    `json:"audio_cooldown_seconds,omitempty"`
	AutoNarrate          *bool   `json:"auto_narrate,omitempty"` // Pointer to detect false vs missing
	AdminBaseURLs        *string `json:"admin_base_urls,omitempty"`
}

// HandleGet returns the current settings.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response(r.Context()))
}

func (h *SettingsHandler) response(ctx context.Context) SettingsResponse {
	urls := h.settings.AdminBaseURLs(ctx)
	if urls == nil {
		urls = []string{}
	}
	return SettingsResponse{
		CurrentLanguage:      h.settings.CurrentLanguage(ctx),
		AudioCooldownSeconds: h.settings.CooldownSeconds(ctx),
		AutoNarrate:          h.settings.AutoNarrate(ctx),
		AdminBaseURLs:        urls,
		SpeechRate:           h.settings.SpeechRate(ctx),
		SpeechPitch:          h.settings.SpeechPitch(ctx),
		TTSEngine:            h.ttsEngine,
	}
}

// HandleUpdate applies a partial update and returns the resulting settings.
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer func() { _ = r.Body.Close() }()

	var req SettingsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ctx := r.Context()

	if req.AudioCooldownSeconds != nil {
		if err := h.settings.SetCooldownSeconds(ctx, *req.AudioCooldownSeconds); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.AutoNarrate != nil {
		if err := h.settings.SetAutoNarrate(ctx, *req.AutoNarrate); err != nil {
			slog.Error("Failed to save auto_narrate", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.AdminBaseURLs != nil {
		if err := h.settings.SetAdminBaseURLs(ctx, *req.AdminBaseURLs); err != nil {
			slog.Error("Failed to save admin_base_urls", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	// Language last: it reloads the POI set.
	if req.CurrentLanguage != nil {
		code := strings.TrimSpace(*req.CurrentLanguage)
		if code == "" {
			writeError(w, http.StatusBadRequest, "current_language must not be empty")
			return
		}
		if _, err := h.session.SetLanguage(ctx, code); err != nil {
			slog.Error("Failed to switch language", "language", code, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, h.response(ctx))
}
