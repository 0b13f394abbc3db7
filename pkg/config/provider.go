package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"foodstreet/pkg/model"
	"foodstreet/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// Narration
	AutoNarrate(ctx context.Context) bool
	CooldownSeconds(ctx context.Context) int
	Cooldown(ctx context.Context) time.Duration
	CurrentLanguage(ctx context.Context) string
	SpeechRate(ctx context.Context) float64
	SpeechPitch(ctx context.Context) float64
	Locale(ctx context.Context, lang string) string

	// Location
	PollInterval(ctx context.Context) time.Duration

	// Sync
	AdminBaseURLs(ctx context.Context) []string

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
// Persisted values are read on every call so changes apply without a restart.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// --- Narration ---

func (p *UnifiedProvider) AutoNarrate(ctx context.Context) bool {
	return p.getBool(ctx, KeyAutoNarrate, p.base.Narrator.AutoNarrate)
}

// CooldownSeconds returns the persisted cooldown. A missing value falls back to the
// configured default; an unparsable or negative one falls back to DefaultCooldownSeconds.
func (p *UnifiedProvider) CooldownSeconds(ctx context.Context) int {
	fallback := p.base.Narrator.Cooldown.Seconds()
	if fallback < 0 {
		fallback = DefaultCooldownSeconds
	}
	if p.store == nil {
		return fallback
	}
	val, ok := p.store.GetState(ctx, KeyAudioCooldown)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || n < 0 {
		return DefaultCooldownSeconds
	}
	return n
}

func (p *UnifiedProvider) Cooldown(ctx context.Context) time.Duration {
	return time.Duration(p.CooldownSeconds(ctx)) * time.Second
}

// SetCooldownSeconds persists a new cooldown.
func (p *UnifiedProvider) SetCooldownSeconds(ctx context.Context, seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("cooldown must not be negative: %d", seconds)
	}
	return p.setState(ctx, KeyAudioCooldown, strconv.Itoa(seconds))
}

func (p *UnifiedProvider) CurrentLanguage(ctx context.Context) string {
	fallback := p.base.Narrator.DefaultLanguage
	return model.NormalizeLanguage(p.getString(ctx, KeyCurrentLanguage, fallback))
}

// SetCurrentLanguage persists the normalized language code and returns it.
func (p *UnifiedProvider) SetCurrentLanguage(ctx context.Context, code string) (string, error) {
	code = model.NormalizeLanguage(code)
	return code, p.setState(ctx, KeyCurrentLanguage, code)
}

func (p *UnifiedProvider) SetAutoNarrate(ctx context.Context, on bool) error {
	return p.setState(ctx, KeyAutoNarrate, strconv.FormatBool(on))
}

func (p *UnifiedProvider) SpeechRate(ctx context.Context) float64 {
	if p.base.Narrator.SpeechRate <= 0 {
		return 1.08
	}
	return p.base.Narrator.SpeechRate
}

func (p *UnifiedProvider) SpeechPitch(ctx context.Context) float64 {
	if p.base.Narrator.SpeechPitch <= 0 {
		return 1.0
	}
	return p.base.Narrator.SpeechPitch
}

// Locale maps a content language to the TTS locale, e.g. "vi" -> "vi-VN".
func (p *UnifiedProvider) Locale(ctx context.Context, lang string) string {
	lang = model.NormalizeLanguage(lang)
	if loc, ok := p.base.Narrator.Locales[lang]; ok && loc != "" {
		return loc
	}
	return model.LocaleFor(lang)
}

// --- Location ---

func (p *UnifiedProvider) PollInterval(ctx context.Context) time.Duration {
	d := time.Duration(p.base.Location.PollInterval)
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// --- Sync ---

// AdminBaseURLs returns the configured admin endpoints in preference order:
// persisted setting, config file, then the FOODSTREET_ADMIN_BASE_URLS environment variable.
func (p *UnifiedProvider) AdminBaseURLs(ctx context.Context) []string {
	var out []string
	out = append(out, SplitURLList(p.getString(ctx, KeyAdminBaseURLs, ""))...)
	for _, u := range p.base.Sync.BaseURLs {
		out = append(out, SplitURLList(u)...)
	}
	out = append(out, SplitURLList(os.Getenv(EnvAdminBaseURLs))...)
	return out
}

// SetAdminBaseURLs persists a raw, separator-delimited list of admin endpoints.
func (p *UnifiedProvider) SetAdminBaseURLs(ctx context.Context, raw string) error {
	return p.setState(ctx, KeyAdminBaseURLs, strings.TrimSpace(raw))
}

// SplitURLList splits on commas, semicolons and whitespace, dropping empty entries.
func SplitURLList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\r', '\n':
			return true
		}
		return false
	})
}

// --- Helpers ---

func (p *UnifiedProvider) setState(ctx context.Context, key, val string) error {
	if p.store == nil {
		return fmt.Errorf("no state store configured")
	}
	return p.store.SetState(ctx, key, val)
}

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}
