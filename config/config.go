// Package config loads the application configuration, the question list and
// the system prompt for a conversation run.
//
// Configuration is read from a YAML file on top of the values returned by
// Default, so a file only needs to name what it changes:
//
//	llm: llama-3.1-8b-instant
//	provider:
//	  backend: langchaingo
//	  base_url: https://api.groq.com/openai/v1
//	  api_key_env: GROQ_API_KEY
//	  temperature: 0.7
//	memory_strategies:
//	  trimming_window_size: 8
//	  summarization_max_tokens: 1000
//	output_dir: outputs
//	log_level: info
//	archive:
//	  backend: sqlite
//	  path: outputs/runs.db
//
// Secrets never live in the file. The provider key is read from the
// environment variable named by api_key_env, which LoadEnv can populate from
// a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/smallnest/convmem/log"
	"github.com/smallnest/convmem/memory"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultModel is used when the config file names no model
	DefaultModel = "llama-3.1-8b-instant"
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultAPIKeyEnv is the environment variable holding the provider key
	DefaultAPIKeyEnv = "GROQ_API_KEY"
	// DefaultTemperature is the sampling temperature for every call
	DefaultTemperature = 0.7
)

// Backend names accepted in provider.backend
const (
	BackendLangchain = "langchaingo"
	BackendOpenAI    = "openai"
)

// Archive backends accepted in archive.backend
const (
	ArchiveNone     = "none"
	ArchiveMemory   = "memory"
	ArchiveSQLite   = "sqlite"
	ArchiveRedis    = "redis"
	ArchivePostgres = "postgres"
)

// Config is the application configuration
type Config struct {
	// LLM is the model name, e.g. llama-3.1-8b-instant
	LLM string `yaml:"llm"`

	Provider ProviderConfig `yaml:"provider"`

	MemoryStrategies MemoryConfig `yaml:"memory_strategies"`

	// OutputDir receives the strategy_<name>_results.md artifacts
	OutputDir string `yaml:"output_dir"`

	// LogLevel is one of debug, info, warn, error, none
	LogLevel string `yaml:"log_level"`

	Archive ArchiveConfig `yaml:"archive"`
}

// ProviderConfig selects the client library and endpoint for the model
type ProviderConfig struct {
	// Backend is langchaingo (default) or openai
	Backend     string  `yaml:"backend"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
}

// MemoryConfig holds the strategy parameters
type MemoryConfig struct {
	TrimmingWindowSize     int `yaml:"trimming_window_size"`
	SummarizationMaxTokens int `yaml:"summarization_max_tokens"`
}

// ArchiveConfig selects where finished run reports are archived in addition
// to the markdown artifact. Only the fields of the chosen backend are read.
type ArchiveConfig struct {
	Backend string `yaml:"backend"`

	// Path is the SQLite database file
	Path string `yaml:"path"`

	// Addr, Password, DB, Prefix and TTL configure Redis
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`

	// DSN is the PostgreSQL connection string
	DSN string `yaml:"dsn"`

	// Table overrides the SQL table name
	Table string `yaml:"table"`
}

// LLMConfig is everything needed to construct a model client
type LLMConfig struct {
	Model       string
	Backend     string
	BaseURL     string
	APIKey      string
	Temperature float64
}

// Default returns the configuration used before a file is applied
func Default() *Config {
	return &Config{
		LLM: DefaultModel,
		Provider: ProviderConfig{
			Backend:     BackendLangchain,
			BaseURL:     DefaultBaseURL,
			APIKeyEnv:   DefaultAPIKeyEnv,
			Temperature: DefaultTemperature,
		},
		MemoryStrategies: MemoryConfig{
			TrimmingWindowSize:     memory.DefaultTrimmingWindowSize,
			SummarizationMaxTokens: memory.DefaultSummarizationMaxTokens,
		},
		OutputDir: "outputs",
		LogLevel:  "info",
		Archive: ArchiveConfig{
			Backend: ArchiveNone,
		},
	}
}

// LoadFile loads configuration from path, merged over Default
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration merged over Default
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize restores defaults for values a file blanked out
func (c *Config) normalize() {
	def := Default()
	if strings.TrimSpace(c.LLM) == "" {
		c.LLM = def.LLM
	}
	c.Provider.Backend = strings.ToLower(strings.TrimSpace(c.Provider.Backend))
	if c.Provider.Backend == "" {
		c.Provider.Backend = def.Provider.Backend
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = def.Provider.BaseURL
	}
	if c.Provider.APIKeyEnv == "" {
		c.Provider.APIKeyEnv = def.Provider.APIKeyEnv
	}
	if c.MemoryStrategies.TrimmingWindowSize <= 0 {
		c.MemoryStrategies.TrimmingWindowSize = def.MemoryStrategies.TrimmingWindowSize
	}
	if c.MemoryStrategies.SummarizationMaxTokens <= 0 {
		c.MemoryStrategies.SummarizationMaxTokens = def.MemoryStrategies.SummarizationMaxTokens
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	c.Archive.Backend = strings.ToLower(strings.TrimSpace(c.Archive.Backend))
	if c.Archive.Backend == "" {
		c.Archive.Backend = ArchiveNone
	}
}

// Validate reports configuration values that cannot be used
func (c *Config) Validate() error {
	switch c.Provider.Backend {
	case BackendLangchain, BackendOpenAI:
	default:
		return fmt.Errorf("unknown provider backend %q (want %s or %s)",
			c.Provider.Backend, BackendLangchain, BackendOpenAI)
	}

	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory:
	case ArchiveSQLite:
		if c.Archive.Path == "" {
			return errors.New("archive.path is required for the sqlite backend")
		}
	case ArchiveRedis:
		if c.Archive.Addr == "" {
			return errors.New("archive.addr is required for the redis backend")
		}
	case ArchivePostgres:
		if c.Archive.DSN == "" {
			return errors.New("archive.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level
func (c *Config) Level() log.LogLevel {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LogLevelInfo
	}
	return level
}

// Strategy resolves a strategy name using the configured sizes
func (c *Config) Strategy(name string) (memory.Strategy, error) {
	return memory.ParseStrategy(name,
		c.MemoryStrategies.TrimmingWindowSize,
		c.MemoryStrategies.SummarizationMaxTokens)
}

// LLMConfig returns the model client settings, reading the API key from the
// environment
func (c *Config) LLMConfig() LLMConfig {
	return LLMConfig{
		Model:       c.LLM,
		Backend:     c.Provider.Backend,
		BaseURL:     c.Provider.BaseURL,
		APIKey:      os.Getenv(c.Provider.APIKeyEnv),
		Temperature: c.Provider.Temperature,
	}
}

// LoadEnv loads environment variables from .env style files. Variables that
// are already set are not overridden and missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadQuestions reads the questions list from a YAML file of the form
//
//	questions:
//	  - first question
//	  - second question
func LoadQuestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	var doc struct {
		Questions []string `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse questions: %w", err)
	}
	return doc.Questions, nil
}
