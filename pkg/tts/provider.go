package tts

import (
	"context"
	"errors"
	"strings"
)

const (
	// MinAudioSize is the minimum size of a synthesized audio file (1KB).
	// Files smaller than this are likely failed synthesis attempts.
	MinAudioSize = 1024
)

// Engine speaks a narration text aloud and returns once it has finished (or ctx is done).
type Engine interface {
	Speak(ctx context.Context, text, locale string, rate, pitch float64) error
}

// Request describes one synthesis call.
type Request struct {
	Text   string
	Voice  string
	Locale string  // BCP-47, e.g. "vi-VN"
	Rate   float64 // 1.0 = normal speed
	Pitch  float64 // 1.0 = normal pitch
}

// Provider defines the interface for Text-To-Speech backends.
type Provider interface {
	// Synthesize generates audio for req and writes it to outputPath.
	// Returns the audio format ("mp3", "wav") and error.
	Synthesize(ctx context.Context, req Request, outputPath string) (string, error)

	// Voices returns the voices the backend offers.
	Voices(ctx context.Context) ([]Voice, error)
}

// Voice represents an available TTS voice.
type Voice struct {
	ID       string
	Name     string
	Language string
	IsNeural bool
}

// FatalError is a backend rejection that retrying will not fix soon
// (rate limits, auth failures, server errors during the handshake).
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError checks if err is, or wraps, a FatalError.
func IsFatalError(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// VoiceFor picks the voice for locale: an explicit mapping first, then the first
// offered voice whose language matches the locale, then one matching the language prefix.
func VoiceFor(locale string, mapping map[string]string, voices []Voice) string {
	if v, ok := mapping[locale]; ok && v != "" {
		return v
	}
	for _, v := range voices {
		if strings.EqualFold(v.Language, locale) {
			return v.ID
		}
	}
	prefix := locale
	if i := strings.IndexByte(locale, '-'); i > 0 {
		prefix = locale[:i]
	}
	for _, v := range voices {
		if len(v.Language) >= len(prefix) && strings.EqualFold(v.Language[:len(prefix)], prefix) {
			return v.ID
		}
	}
	return ""
}
