package config

// Persistent state keys (Registry), stored in app_settings.
const (
	KeyCurrentLanguage = "current_language"
	KeyAudioCooldown   = "audio_cooldown_seconds"
	KeyAdminBaseURLs   = "admin_base_urls"
	KeyAutoNarrate     = "auto_narrate"
	KeyLastSync        = "last_sync_utc"
	KeyVolume          = "volume"
)

// DefaultCooldownSeconds applies when the persisted cooldown is missing, unparsable or negative.
const DefaultCooldownSeconds = 90
