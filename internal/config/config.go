package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderStatic    = "static"
)

type Config struct {
	// Service configuration
	ServiceName   string
	LogLevel      string
	LogFormat     string
	HTTPAddr      string
	DefaultLocale string
	CatalogPath   string

	// NATS configuration
	NatsEnabled       bool
	NatsURL           string
	NatsSubjectPrefix string
	NatsTimeout       time.Duration
	NatsMaxInflight   int

	// Persistence configuration
	StoreBackend string
	RedisURL     string
	SessionTTL   time.Duration
	SQLitePath   string
	SessionIdle  time.Duration // in-process sessions unused this long are evicted

	// Suggestion generator configuration
	LLMProvider     string
	LLMTimeout      time.Duration
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	LLMRateLimit    int // calls per minute, 0 disables
	LLMBurst        int
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		ServiceName:   v.GetString("SERVICE_NAME"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		HTTPAddr:      v.GetString("HTTP_ADDR"),
		DefaultLocale: v.GetString("DEFAULT_LOCALE"),
		CatalogPath:   v.GetString("CATALOG_PATH"),

		NatsEnabled:       v.GetBool("NATS_ENABLED"),
		NatsURL:           v.GetString("NATS_URL"),
		NatsSubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		NatsTimeout:       v.GetDuration("NATS_TIMEOUT"),
		NatsMaxInflight:   v.GetInt("NATS_MAX_INFLIGHT"),

		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		RedisURL:     v.GetString("REDIS_URL"),
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		SQLitePath:   v.GetString("SQLITE_PATH"),
		SessionIdle:  v.GetDuration("SESSION_IDLE_TIMEOUT"),

		LLMProvider:     strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMTimeout:      v.GetDuration("LLM_TIMEOUT"),
		AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:  v.GetString("ANTHROPIC_MODEL"),
		OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
		OpenAIModel:     v.GetString("OPENAI_MODEL"),
		OpenAIBaseURL:   v.GetString("OPENAI_BASE_URL"),
		LLMRateLimit:    v.GetInt("LLM_RATE_LIMIT"),
		LLMBurst:        v.GetInt("LLM_BURST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "toywonder-assistant")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DEFAULT_LOCALE", "en")

	v.SetDefault("NATS_ENABLED", false)
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_SUBJECT_PREFIX", "assistant")
	v.SetDefault("NATS_TIMEOUT", 30*time.Second)
	v.SetDefault("NATS_MAX_INFLIGHT", 64)

	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("SESSION_TTL", 30*24*time.Hour)
	v.SetDefault("SQLITE_PATH", "assistant.db")
	v.SetDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute)

	v.SetDefault("LLM_PROVIDER", ProviderStatic)
	v.SetDefault("LLM_TIMEOUT", 30*time.Second)
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_RATE_LIMIT", 0)
	v.SetDefault("LLM_BURST", 1)
}

// Validate checks backend/provider names and provider credentials.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	switch c.LLMProvider {
	case ProviderStatic:
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", c.LLMProvider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}

	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.LLMRateLimit < 0 {
		return fmt.Errorf("LLM_RATE_LIMIT cannot be negative")
	}
	if c.NatsEnabled && c.NatsMaxInflight < 1 {
		return fmt.Errorf("NATS_MAX_INFLIGHT must be at least 1")
	}
	return nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory to the module root.
func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
