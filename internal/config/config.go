// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and SCENTD_* env vars.
// - External errors must be wrapped via this package's error helpers.
package config

// AIConfig groups vision model settings.
type AIConfig struct {
	// Provider selects the predictor implementation: "openai" or "mock".
	Provider string `koanf:"provider"`

	// BaseURL is the OpenAI-compatible chat completions endpoint.
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against the provider. Usually supplied via
	// SCENTD_AI__API_KEY or a .env file, never a config file.
	APIKey string `koanf:"api_key"`

	// Model names the vision model to query.
	Model string `koanf:"model"`

	// TimeoutMS bounds a single model round-trip.
	TimeoutMS int `koanf:"timeout_ms"`

	// MaxRetries is how many additional attempts the orchestrator makes
	// after a failed model call.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoffMS is the initial backoff between retries (doubled per try).
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// MaxConcurrent bounds in-flight model calls across all requests.
	MaxConcurrent int `koanf:"max_concurrent"`
}

// DeviceConfig groups scent actuator settings.
type DeviceConfig struct {
	// URL is the actuator's command endpoint. Empty disables the channel.
	URL string `koanf:"url"`

	// TimeoutMS bounds a single actuator call.
	TimeoutMS int `koanf:"timeout_ms"`

	// Intensity scales the dominant scent proportion into the 0-255 PWM
	// range the firmware expects.
	Intensity int `koanf:"intensity"`
}

// PushConfig groups frontend push channel settings.
type PushConfig struct {
	// SendTimeoutMS bounds a single write to one subscriber.
	SendTimeoutMS int `koanf:"send_timeout_ms"`

	// Buffer is the per-subscriber outbound queue length.
	Buffer int `koanf:"buffer"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CacheTTLSeconds is how long a cached prediction stays fresh.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// CacheCapacity bounds the prediction cache; LRU entries are evicted
	// beyond it.
	CacheCapacity int `koanf:"cache_capacity"`

	// MaxImageBytes rejects oversized screenshot payloads before hashing.
	MaxImageBytes int `koanf:"max_image_bytes"`

	AI     AIConfig     `koanf:"ai"`
	Device DeviceConfig `koanf:"device"`
	Push   PushConfig   `koanf:"push"`
}

// New creates a Config populated with defaults. Cache TTL and capacity
// defaults match the values the actuator installation was tuned with.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		CacheTTLSeconds: 300,
		CacheCapacity:   100,
		MaxImageBytes:   8 << 20,
		AI: AIConfig{
			Provider:       "openai",
			BaseURL:        "https://api.groq.com/openai/v1/chat/completions",
			Model:          "meta-llama/llama-4-scout-17b-16e-instruct",
			TimeoutMS:      10_000,
			MaxRetries:     2,
			RetryBackoffMS: 250,
			MaxConcurrent:  3,
		},
		Device: DeviceConfig{
			TimeoutMS: 2_000,
			Intensity: 255,
		},
		Push: PushConfig{
			SendTimeoutMS: 1_000,
			Buffer:        16,
		},
	}
}
