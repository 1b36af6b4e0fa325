// Package config loads the service configuration from an optional YAML file
// with environment variable overrides for secrets and deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the standard library representation.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Data      Data      `yaml:"data"`
	Assistant Assistant `yaml:"assistant"`
	Cache     Cache     `yaml:"cache"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Storage   Storage   `yaml:"storage"`
}

// HTTP configures the Fiber listener.
type HTTP struct {
	Addr string `yaml:"addr"`
	// RequireAPIKey gates every non-health endpoint behind X-API-Key auth.
	RequireAPIKey bool `yaml:"require_api_key"`
}

// Data configures the mock store and pipeline thresholds.
type Data struct {
	Dir              string `yaml:"dir"`
	MaxResults       int    `yaml:"max_results"`
	SummaryThreshold int    `yaml:"summary_threshold"`
	MaxPageSize      int    `yaml:"max_page_size"`
}

// Assistant configures provider defaults and credentials.
type Assistant struct {
	OpenAIModel    string `yaml:"openai_model"`
	AnthropicModel string `yaml:"anthropic_model"`
	GeminiModel    string `yaml:"gemini_model"`
	GeminiBaseURL  string `yaml:"gemini_base_url"`
	MaxTokens      int    `yaml:"max_tokens"`

	// Default provider keys; environment overrides apply. Stored keys win
	// over these at resolve time only when the request names them.
	OpenAIKey    string `yaml:"openai_key"`
	AnthropicKey string `yaml:"anthropic_key"`
	GeminiKey    string `yaml:"gemini_key"`
}

// Cache configures the two-tier response cache.
type Cache struct {
	RedisURL     string   `yaml:"redis_url"`
	DataTTL      Duration `yaml:"data_ttl"`
	AssistantTTL Duration `yaml:"assistant_ttl"`
}

// RateLimit configures the per-source request budget.
type RateLimit struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Storage configures the SQLite database backing keys and webhook events.
type Storage struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		HTTP: HTTP{Addr: ":8080"},
		Data: Data{
			Dir:              "data",
			MaxResults:       10,
			SummaryThreshold: 10,
			MaxPageSize:      50,
		},
		Assistant: Assistant{
			OpenAIModel:    "gpt-4o-mini",
			AnthropicModel: "claude-sonnet-4-20250514",
			GeminiModel:    "gemini-2.0-flash",
			MaxTokens:      1024,
		},
		Cache: Cache{
			DataTTL:      Duration(30 * time.Second),
			AssistantTTL: Duration(5 * time.Minute),
		},
		RateLimit: RateLimit{
			Requests: 60,
			Window:   Duration(time.Minute),
		},
		Storage: Storage{Path: "udc.db"},
	}
}

// Load reads path (when non-empty), then applies environment overrides.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.HTTP.Addr, "UDC_HTTP_ADDR")
	setBool(&c.HTTP.RequireAPIKey, "UDC_REQUIRE_API_KEY")
	setString(&c.Data.Dir, "UDC_DATA_DIR")
	setInt(&c.Data.MaxResults, "UDC_MAX_RESULTS")
	setInt(&c.Data.SummaryThreshold, "UDC_SUMMARY_THRESHOLD")
	setString(&c.Assistant.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.Assistant.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.Assistant.GeminiKey, "GEMINI_API_KEY")
	setString(&c.Assistant.GeminiBaseURL, "GEMINI_BASE_URL")
	setString(&c.Cache.RedisURL, "UDC_REDIS_URL")
	setString(&c.Storage.Path, "UDC_DB_PATH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
