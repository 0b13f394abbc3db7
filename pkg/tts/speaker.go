package tts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"foodstreet/pkg/audio"
	"foodstreet/pkg/store"
	"foodstreet/pkg/tracker"
)

// ErrEmptyText is returned when nothing speakable is left after cleanup.
var ErrEmptyText = errors.New("tts: empty narration text")

// SpeakerOptions configures a Speaker.
type SpeakerOptions struct {
	Name       string            // provider label for logs and stats, e.g. "edge-tts"
	Voices     map[string]string // locale -> voice id
	Cache      store.CacheStore  // optional synthesized-audio cache
	Tracker    *tracker.Tracker  // optional
	ScratchDir string
}

// Speaker implements Engine on top of a synthesis Provider and the local audio player.
type Speaker struct {
	provider Provider
	player   audio.Player
	opts     SpeakerOptions

	voicesMu sync.Mutex
	offered  []Voice
}

// voiceListTimeout bounds the one voice-list request; it is detached from the
// narration that triggers it so a cancelled narration cannot leave the list empty.
const voiceListTimeout = 10 * time.Second

// NewSpeaker creates a Speaker.
func NewSpeaker(p Provider, player audio.Player, opts SpeakerOptions) *Speaker {
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	if opts.Name == "" {
		opts.Name = "tts"
	}
	return &Speaker{provider: p, player: player, opts: opts}
}

// Speak synthesizes text and blocks until playback ends. When ctx is cancelled the
// audio is stopped and ctx.Err() is returned.
func (s *Speaker) Speak(ctx context.Context, text, locale string, rate, pitch float64) error {
	text = PlainText(text)
	if text == "" {
		return ErrEmptyText
	}

	voice := VoiceFor(locale, s.opts.Voices, s.voices(ctx))
	if voice == "" {
		return fmt.Errorf("tts: no voice for locale %q", locale)
	}

	req := Request{Text: text, Voice: voice, Locale: locale, Rate: rate, Pitch: pitch}
	path, err := s.render(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer removeFile(path)

	done := make(chan struct{})
	var once sync.Once
	if err := s.player.Play(path, func() { once.Do(func() { close(done) }) }); err != nil {
		return fmt.Errorf("tts: playback failed: %w", err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			s.player.Stop()
			return ctx.Err()
		case <-ticker.C:
			if !s.player.IsBusy() {
				return nil
			}
		}
	}
}

// voices returns the provider's voice list. A failed request is retried on the next call.
func (s *Speaker) voices(ctx context.Context) []Voice {
	s.voicesMu.Lock()
	defer s.voicesMu.Unlock()
	if s.offered != nil {
		return s.offered
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), voiceListTimeout)
	defer cancel()
	v, err := s.provider.Voices(ctx)
	if err != nil {
		slog.Warn("TTS: failed to list voices", "provider", s.opts.Name, "error", err)
		return nil
	}
	if v == nil {
		v = []Voice{}
	}
	s.offered = v
	return s.offered
}

// render returns the path of a scratch audio file for req, served from the cache when possible.
func (s *Speaker) render(ctx context.Context, req Request) (string, error) {
	key := CacheKey(req)
	base := filepath.Join(s.opts.ScratchDir, fmt.Sprintf("narration-%s-%d", key[:12], time.Now().UnixNano()))

	if err := os.MkdirAll(s.opts.ScratchDir, 0o755); err != nil {
		return "", fmt.Errorf("tts: scratch dir: %w", err)
	}

	if s.opts.Cache != nil {
		if blob, ok := s.opts.Cache.GetCache(ctx, key); ok {
			if format, data, ok := splitBlob(blob); ok {
				path := base + "." + format
				if err := os.WriteFile(path, data, 0o644); err == nil {
					s.trackCache(true)
					return path, nil
				}
			}
		}
		s.trackCache(false)
	}

	format, err := s.provider.Synthesize(ctx, req, base)
	if err != nil {
		return "", fmt.Errorf("tts: synthesis failed: %w", err)
	}
	path := base + "." + format
	if err := VerifyAudioFile(path); err != nil {
		removeFile(path)
		return "", fmt.Errorf("tts: %w", err)
	}

	if s.opts.Cache != nil {
		if data, err := os.ReadFile(path); err == nil {
			if err := s.opts.Cache.SetCache(ctx, key, joinBlob(format, data)); err != nil {
				slog.Warn("TTS: failed to cache audio", "error", err)
			}
		}
	}
	return path, nil
}

func (s *Speaker) trackCache(hit bool) {
	if s.opts.Tracker == nil {
		return
	}
	if hit {
		s.opts.Tracker.TrackCacheHit(s.opts.Name)
	} else {
		s.opts.Tracker.TrackCacheMiss(s.opts.Name)
	}
}

// CacheKey identifies a synthesized clip by everything that changes its audio.
func CacheKey(req Request) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.3f|%.3f|%s", req.Locale, req.Voice, req.Rate, req.Pitch, req.Text)))
	return "tts_" + hex.EncodeToString(h[:])
}

// Cached blobs are "<format>\n<audio bytes>".
func joinBlob(format string, data []byte) []byte {
	out := make([]byte, 0, len(format)+1+len(data))
	out = append(out, format...)
	out = append(out, '\n')
	return append(out, data...)
}

func splitBlob(blob []byte) (format string, data []byte, ok bool) {
	i := bytes.IndexByte(blob, '\n')
	if i <= 0 || i > 8 || len(blob)-i-1 < MinAudioSize {
		return "", nil, false
	}
	return string(blob[:i]), blob[i+1:], true
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Debug("TTS: failed to remove scratch file", "path", path, "error", err)
	}
}
