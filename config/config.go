package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetcher   FetcherConfig
	Watch     WatchConfig
	Download  DownloadConfig
	Vision    VisionConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance used for browser-engine
// fetches and screenshot capture.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 5

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// FetcherConfig controls page acquisition behavior.
type FetcherConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// HTTPTimeout is the deadline for the pure-HTTP engine before the
	// fetcher escalates to the browser.
	HTTPTimeout time.Duration // default: 5s

	// MemoryTTL is how long a host's "needs browser" verdict is remembered.
	MemoryTTL time.Duration // default: 24h
}

// WatchConfig controls the change watcher.
type WatchConfig struct {
	// WaitTimeout bounds the startup wait-for-images window.
	WaitTimeout time.Duration // default: 30s

	// WaitBackoff is the initial wait-for-images poll delay; it doubles per
	// attempt up to WaitBackoffCap.
	WaitBackoff    time.Duration // default: 500ms
	WaitBackoffCap time.Duration // default: 8s

	// PollInterval is the observing loop's snapshot interval.
	PollInterval time.Duration // default: 2s

	// Debounce is the quiet period after a qualifying change before a
	// re-extraction pass runs.
	Debounce time.Duration // default: 1s

	// SettleDelay is the pause a forced retry waits before its
	// synchronous pass.
	SettleDelay time.Duration // default: 1s

	// WebhookSecret signs watch/batch webhook events when non-empty.
	WebhookSecret string
}

// DownloadConfig controls the download orchestrator.
type DownloadConfig struct {
	// Dir is the root directory downloads are written under.
	Dir string // default: "./downloads"

	// Subfolder namespaces every batch below Dir.
	Subfolder string // default: "product-images"

	// Retries is the per-image attempt count.
	Retries int // default: 3

	// BackoffBase scales the 2^attempt inter-attempt delay.
	BackoffBase time.Duration // default: 1s

	// Trusted asset-host substrings accepted by the image collector in
	// addition to extension/data-URI matches.
	TrustedHosts []string // default: ["cloudfront.net", "imgix.net", "cdn.shopify.com"]
}

// VisionConfig controls the description-generation client.
type VisionConfig struct {
	// BaseURL is the OpenAI-compatible API root.
	BaseURL string // default: "https://api.openai.com/v1"

	// Model must be vision-capable.
	Model string // default: "gpt-4o-mini"

	// MaxTokens bounds the completion length.
	MaxTokens int // default: 500

	// Detail is the requested image detail level ("low", "high", "auto").
	Detail string // default: "high"

	// Temperature for the completion.
	Temperature float64 // default: 0.3
}

// StoreConfig controls the credential store.
type StoreConfig struct {
	// Path is the JSON file holding the vision API credential and the
	// install stamp.
	Path string // default: "./harvester-store.json"
}

// AuthConfig controls service API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid service API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the extraction response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HARVESTER_HOST", "0.0.0.0"),
			Port: envIntOr("HARVESTER_PORT", 8080),
			Mode: envOr("HARVESTER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("HARVESTER_HEADLESS", true),
			MaxPages:     envIntOr("HARVESTER_MAX_PAGES", 5),
			DefaultProxy: os.Getenv("HARVESTER_PROXY"),
			NoSandbox:    envBoolOr("HARVESTER_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("HARVESTER_BROWSER_BIN"),
		},
		Fetcher: FetcherConfig{
			DefaultTimeout: envDurationOr("HARVESTER_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:     envDurationOr("HARVESTER_MAX_TIMEOUT", 120*time.Second),
			HTTPTimeout:    envDurationOr("HARVESTER_HTTP_TIMEOUT", 5*time.Second),
			MemoryTTL:      envDurationOr("HARVESTER_ENGINE_MEMORY_TTL", 24*time.Hour),
		},
		Watch: WatchConfig{
			WaitTimeout:    envDurationOr("HARVESTER_WAIT_TIMEOUT", 30*time.Second),
			WaitBackoff:    envDurationOr("HARVESTER_WAIT_BACKOFF", 500*time.Millisecond),
			WaitBackoffCap: envDurationOr("HARVESTER_WAIT_BACKOFF_CAP", 8*time.Second),
			PollInterval:   envDurationOr("HARVESTER_POLL_INTERVAL", 2*time.Second),
			Debounce:       envDurationOr("HARVESTER_DEBOUNCE", time.Second),
			SettleDelay:    envDurationOr("HARVESTER_SETTLE_DELAY", time.Second),
			WebhookSecret:  os.Getenv("HARVESTER_WEBHOOK_SECRET"),
		},
		Download: DownloadConfig{
			Dir:         envOr("HARVESTER_DOWNLOAD_DIR", "./downloads"),
			Subfolder:   envOr("HARVESTER_DOWNLOAD_SUBFOLDER", "product-images"),
			Retries:     envIntOr("HARVESTER_DOWNLOAD_RETRIES", 3),
			BackoffBase: envDurationOr("HARVESTER_DOWNLOAD_BACKOFF", time.Second),
			TrustedHosts: envSliceOr("HARVESTER_TRUSTED_HOSTS", []string{
				"cloudfront.net", "imgix.net", "cdn.shopify.com",
			}),
		},
		Vision: VisionConfig{
			BaseURL:     envOr("HARVESTER_VISION_BASE_URL", "https://api.openai.com/v1"),
			Model:       envOr("HARVESTER_VISION_MODEL", "gpt-4o-mini"),
			MaxTokens:   envIntOr("HARVESTER_VISION_MAX_TOKENS", 500),
			Detail:      envOr("HARVESTER_VISION_DETAIL", "high"),
			Temperature: envFloatOr("HARVESTER_VISION_TEMPERATURE", 0.3),
		},
		Store: StoreConfig{
			Path: envOr("HARVESTER_STORE_PATH", "./harvester-store.json"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("HARVESTER_AUTH_ENABLED", true),
			APIKeys: envSliceOr("HARVESTER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("HARVESTER_RATE_RPS", 5.0),
			Burst:             envIntOr("HARVESTER_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("HARVESTER_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("HARVESTER_LOG_LEVEL", "info"),
			Format: envOr("HARVESTER_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
