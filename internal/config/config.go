package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	DefaultSystemPrompt = "You are an AI assistant that answers questions about anything."
)

// Config is read once at startup and never changes afterwards.
type Config struct {
	Port string

	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int64

	RulesetPreset string
	RulesetFile   string

	ConnectTimeout time.Duration
	HeaderTimeout  time.Duration
	StallTimeout   time.Duration

	LogLevel     string
	LogFormat    string
	OTelExporter string
}

// Load reads an optional .env file followed by the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:          GetEnv("PORT", "4444"),
		Provider:      strings.ToLower(GetEnv("LLM_PROVIDER", ProviderOpenAI)),
		APIKey:        GetEnv("OPENAI_API_KEY", ""),
		BaseURL:       strings.TrimRight(GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		Model:         GetEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		SystemPrompt:  GetEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		RulesetPreset: GetEnv("DOMAIN_RULESET", "general"),
		RulesetFile:   GetEnv("DOMAIN_RULESET_FILE", ""),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		LogFormat:     GetEnv("LOG_FORMAT", "text"),
		OTelExporter:  GetEnv("OTEL_EXPORTER", "none"),
	}

	var err error
	if cfg.Temperature, err = strconv.ParseFloat(GetEnv("TEMPERATURE", "1"), 64); err != nil {
		return Config{}, fmt.Errorf("TEMPERATURE: %w", err)
	}
	if cfg.MaxTokens, err = strconv.ParseInt(GetEnv("MAX_TOKENS", "1000"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("MAX_TOKENS: %w", err)
	}
	if cfg.ConnectTimeout, err = time.ParseDuration(GetEnv("UPSTREAM_CONNECT_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("UPSTREAM_CONNECT_TIMEOUT: %w", err)
	}
	if cfg.HeaderTimeout, err = time.ParseDuration(GetEnv("UPSTREAM_HEADER_TIMEOUT", "30s")); err != nil {
		return Config{}, fmt.Errorf("UPSTREAM_HEADER_TIMEOUT: %w", err)
	}
	if cfg.StallTimeout, err = time.ParseDuration(GetEnv("UPSTREAM_STALL_TIMEOUT", "60s")); err != nil {
		return Config{}, fmt.Errorf("UPSTREAM_STALL_TIMEOUT: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}

// GetEnv returns the trimmed value of key, or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
