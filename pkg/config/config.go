package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables honoured as fallbacks for empty config values.
const (
	EnvAdminBaseURLs = "FOODSTREET_ADMIN_BASE_URLS"
	EnvAdminDBPath   = "FOODSTREET_ADMIN_DB_PATH"
)

// Config holds the application configuration.
type Config struct {
	Request  RequestConfig  `yaml:"request"`
	TTS      TTSConfig      `yaml:"tts"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Location LocationConfig `yaml:"location"`
	Narrator NarratorConfig `yaml:"narrator"`
	Sync     SyncConfig     `yaml:"sync"`
	Admin    AdminConfig    `yaml:"admin"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LocationConfig holds settings for the position source.
type LocationConfig struct {
	Provider          string     `yaml:"provider"` // "mock", "manual"
	PollInterval      Duration   `yaml:"poll_interval"`
	PermissionGranted bool       `yaml:"permission_granted"`
	MinMove           Distance   `yaml:"min_move"` // jitter filter for the walking direction
	Mock              MockConfig `yaml:"mock"`
}

// MockConfig describes the simulated walk used by the mock provider.
type MockConfig struct {
	Route    []RoutePoint `yaml:"route"`
	SpeedMps float64      `yaml:"speed_mps"`
	Loop     bool         `yaml:"loop"`
}

// RoutePoint is a waypoint of the simulated walk.
type RoutePoint struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	Voices map[string]string `yaml:"voices"` // locale -> voice, e.g. "vi-VN" -> "vi-VN-HoaiMyNeural"
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine   string        `yaml:"engine"`
	EdgeTTS  EdgeTTSConfig `yaml:"edge_tts"`
	CacheDir string        `yaml:"cache_dir"`
	CacheTTL Duration      `yaml:"cache_ttl"`
}

// NarratorConfig holds settings for the narration coordinator.
type NarratorConfig struct {
	AutoNarrate     bool              `yaml:"auto_narrate"`
	Cooldown        Duration          `yaml:"cooldown"` // used until a value is persisted in app_settings
	DefaultLanguage string            `yaml:"default_language"`
	SpeechRate      float64           `yaml:"speech_rate"`
	SpeechPitch     float64           `yaml:"speech_pitch"`
	Locales         map[string]string `yaml:"locales"` // language -> TTS locale
}

// SyncConfig holds settings for pulling POIs from the admin backend.
type SyncConfig struct {
	BaseURLs    []string `yaml:"base_urls"`
	AdminDBPath string   `yaml:"admin_db_path"`
	OnStart     bool     `yaml:"on_start"`
	Interval    Duration `yaml:"interval"` // 0 disables periodic sync
}

// AdminConfig holds settings for the POI admin server.
type AdminConfig struct {
	Address     string   `yaml:"address"`
	DBPath      string   `yaml:"db_path"`
	WebRoot     string   `yaml:"web_root"`
	UploadDir   string   `yaml:"upload_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	TTS      LogSettings `yaml:"tts"`
	Events   LogSettings `yaml:"events"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(8 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(5 * time.Second),
			},
		},
		TTS: TTSConfig{
			Engine: "edge-tts",
			EdgeTTS: EdgeTTSConfig{
				Voices: map[string]string{
					"vi-VN": "vi-VN-HoaiMyNeural",
					"en-US": "en-US-AvaMultilingualNeural",
				},
			},
			CacheDir: "./data/tts",
			CacheTTL: Duration(30 * Day),
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			TTS: LogSettings{
				Path:  "./logs/tts.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/foodstreet.db",
		},
		Server: ServerConfig{
			Address: "localhost:5080",
		},
		Location: LocationConfig{
			Provider:          "mock",
			PollInterval:      Duration(5 * time.Second),
			PermissionGranted: true,
			MinMove:           Distance(3),
			Mock: MockConfig{
				// Vinh Khanh food street, District 4
				Route: []RoutePoint{
					{Lat: 10.7594, Lon: 106.7020},
					{Lat: 10.7601, Lon: 106.7029},
					{Lat: 10.7610, Lon: 106.7035},
					{Lat: 10.7620, Lon: 106.7040},
				},
				SpeedMps: 1.4,
				Loop:     true,
			},
		},
		Narrator: NarratorConfig{
			AutoNarrate:     true,
			Cooldown:        Duration(90 * time.Second),
			DefaultLanguage: "vi",
			SpeechRate:      1.08,
			SpeechPitch:     1.0,
			Locales: map[string]string{
				"vi": "vi-VN",
				"en": "en-US",
			},
		},
		Sync: SyncConfig{
			OnStart:  true,
			Interval: Duration(0),
		},
		Admin: AdminConfig{
			Address:     "0.0.0.0:5187",
			DBPath:      "./data/poi-admin.db",
			WebRoot:     "./web/admin",
			UploadDir:   "./web/admin/uploads",
			CORSOrigins: []string{"*"},
		},
	}
}

// LoadEnv reads a .env file from the working directory, if present.
// Variables already set in the environment win.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	LoadEnv()
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		// If file does not exist, save defaults
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Load from Env if empty (as a fallback, but do NOT save back to disk)
	if cfg.Sync.AdminDBPath == "" {
		if p := strings.TrimSpace(os.Getenv(EnvAdminDBPath)); p != "" {
			cfg.Sync.AdminDBPath = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	for lang, locale := range c.Narrator.Locales {
		if !isValidLocale(locale) {
			return fmt.Errorf("invalid locale '%s' for language '%s': must be 'xx-YY' (e.g. 'vi-VN', 'en-US')", locale, lang)
		}
	}
	if c.Location.PollInterval < 0 {
		return fmt.Errorf("location.poll_interval must not be negative")
	}
	switch c.Location.Provider {
	case "mock", "manual":
	default:
		return fmt.Errorf("unknown location provider '%s'", c.Location.Provider)
	}
	return nil
}

func isValidLocale(s string) bool {
	matched, _ := regexp.MatchString(`^[a-z]{2}-[A-Z]{2}$`, s)
	return matched
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# FoodStreet Guide Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)

`)
	data = append(header, data...)

	// Inject comments for Enum fields
	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: edge-tts, none\n${1}engine:"))

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock, manual\n${1}provider:"))

	reCooldown := regexp.MustCompile(`(?m)^(\s+)cooldown:`)
	data = reCooldown.ReplaceAll(data, []byte("${1}# Overridden by app_settings.audio_cooldown_seconds once set\n${1}cooldown:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write default config
	return Save(path, DefaultConfig())
}
