package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for rfp-shredder.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"`

	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Shredder ShredderConfig `yaml:"shredder"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"shredder"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"rfp_shredder"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// LLM providers understood by llm.NewClientFromConfig.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultLLMBaseURL is a local Ollama server. The anthropic provider ignores it
// and uses the library's API endpoint unless another URL is configured.
const DefaultLLMBaseURL = "http://localhost:11434/v1"

// LLMConfig selects and tunes the classification model.
// The openai provider covers any OpenAI-compatible endpoint, including Ollama's /v1.
type LLMConfig struct {
	Enabled        bool   `yaml:"enabled" env:"LLM_ENABLED" env-default:"true"`
	Provider       string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL        string `yaml:"base_url" env:"LLM_BASE_URL" env-default:"http://localhost:11434/v1"`
	Model          string `yaml:"model" env:"LLM_MODEL" env-default:"llama3.1"`
	APIKey         string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`
	MaxConcurrent  int    `yaml:"max_concurrent" env:"LLM_MAX_CONCURRENT" env-default:"1"`
}

// Timeout is the per-request deadline for a classification call.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShredderConfig holds the extraction heuristics that have no calibrated value.
type ShredderConfig struct {
	// CSOMarkerThreshold is how many CSO markers a document needs before it is
	// treated as a Commercial Solutions Opening rather than FAR layout.
	CSOMarkerThreshold int `yaml:"cso_marker_threshold" env:"SHRED_CSO_MARKER_THRESHOLD" env-default:"3"`
	// SentencesPerPage drives the approximate page number in sentence mode.
	SentencesPerPage  int    `yaml:"sentences_per_page" env:"SHRED_SENTENCES_PER_PAGE" env-default:"50"`
	TaskDueBufferDays int    `yaml:"task_due_buffer_days" env:"SHRED_TASK_DUE_BUFFER_DAYS" env-default:"7"`
	OutputDir         string `yaml:"output_dir" env:"SHRED_OUTPUT_DIR" env-default:"."`
	PdfToTextPath     string `yaml:"pdftotext_path" env:"SHRED_PDFTOTEXT_PATH" env-default:"pdftotext"`
}

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error; defaults and environment are used instead.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks values that cleanenv cannot express as defaults.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown llm.provider %q (want %q or %q)", c.LLM.Provider, ProviderOpenAI, ProviderAnthropic)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds)
	}
	if c.LLM.MaxConcurrent <= 0 {
		return fmt.Errorf("llm.max_concurrent must be positive, got %d", c.LLM.MaxConcurrent)
	}
	if c.Shredder.CSOMarkerThreshold <= 0 {
		return fmt.Errorf("shredder.cso_marker_threshold must be positive, got %d", c.Shredder.CSOMarkerThreshold)
	}
	if c.Shredder.SentencesPerPage <= 0 {
		return fmt.Errorf("shredder.sentences_per_page must be positive, got %d", c.Shredder.SentencesPerPage)
	}
	if c.Shredder.TaskDueBufferDays < 0 {
		return fmt.Errorf("shredder.task_due_buffer_days must not be negative, got %d", c.Shredder.TaskDueBufferDays)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (c *DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
