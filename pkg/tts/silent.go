package tts

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Silent is the "none" engine: it logs the text and waits roughly as long as
// reading it aloud would take, so narration timing behaves as with real audio.
type Silent struct {
	// CharsPerSecond at rate 1.0; zero means 15.
	CharsPerSecond float64
}

// Speak implements Engine.
func (e Silent) Speak(ctx context.Context, text, locale string, rate, pitch float64) error {
	text = PlainText(text)
	if text == "" {
		return ErrEmptyText
	}
	d := e.Estimate(text, rate)
	slog.Info("TTS (silent): narrating", "locale", locale, "duration", d, "text", text)
	Log("silent", locale, text, 0, nil)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Estimate returns how long text would take to speak at rate.
func (e Silent) Estimate(text string, rate float64) time.Duration {
	cps := e.CharsPerSecond
	if cps <= 0 {
		cps = 15
	}
	if rate <= 0 {
		rate = 1
	}
	secs := float64(utf8.RuneCountInString(text)) / (cps * rate)
	return time.Duration(secs * float64(time.Second))
}
