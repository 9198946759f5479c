package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rachid48133/studygenie/internal/models"
)

type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Log       LogConfig       `yaml:"log"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig selects the embedding provider.
// Provider is one of "openai", "langchain-openai" or "ollama".
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	Workers     int    `yaml:"workers"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig selects the generation provider.
// Provider is one of "anthropic", "openai" or "ollama".
type LLMConfig struct {
	Provider       string            `yaml:"provider"`
	BaseURL        string            `yaml:"base_url"`
	APIKeyEnv      string            `yaml:"api_key_env"`
	Temperature    float64           `yaml:"temperature"`
	MaxTokens      int               `yaml:"max_tokens"`
	RetryMaxTokens int               `yaml:"retry_max_tokens"`
	TimeoutSecs    int               `yaml:"timeout_secs"`
	PlanModels     map[string]string `yaml:"plan_models"`
	DefaultPlan    string            `yaml:"default_plan"`
}

type RAGConfig struct {
	TopK               int    `yaml:"top_k"`
	Language           string `yaml:"language"`
	RetryThreshold     int    `yaml:"retry_threshold"`
	MaxRetries         int    `yaml:"max_retries"`
	SourcesLimit       int    `yaml:"sources_limit"`
	SourcePreviewChars int    `yaml:"source_preview_chars"`
	EncryptionKey      string `yaml:"encryption_key"`
}

// DatabaseConfig configures the optional query history.
// Driver is "pgdriver" (default) or "pq".
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	Driver      string `yaml:"driver"`
	PasswordEnv string `yaml:"password_env"`
	Debug       bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// explicitFields records settings whose zero value is meaningful, so an
// explicit 0 in the file is not replaced by the default.
type explicitFields struct {
	Chunker struct {
		ChunkOverlap *int `yaml:"chunk_overlap"`
	} `yaml:"chunker"`
	LLM struct {
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"llm"`
	RAG struct {
		MaxRetries *int `yaml:"max_retries"`
	} `yaml:"rag"`
}

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 200
	defaultDimension    = 3072
)

// LoadConfig reads the YAML config at path. A missing file yields defaults.
// Variables from a .env file in the working directory are loaded first.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	var set explicitFields
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	applyDefaults(&cfg, set)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg, explicitFields{})
	return &cfg
}

func applyDefaults(cfg *Config, set explicitFields) {
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = defaultChunkSize
	}
	if cfg.Chunker.ChunkOverlap == 0 && set.Chunker.ChunkOverlap == nil {
		cfg.Chunker.ChunkOverlap = defaultChunkOverlap
	}

	e := &cfg.Embedding
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.APIKeyEnv == "" && e.Provider != "ollama" {
		e.APIKeyEnv = "OPENAI_API_KEY"
	}
	if e.Model == "" {
		if e.Provider == "ollama" {
			e.Model = "nomic-embed-text"
		} else {
			e.Model = "text-embedding-3-large"
			if e.Dimension == 0 {
				e.Dimension = defaultDimension
			}
		}
	}
	if e.BaseURL == "" && e.Provider == "ollama" {
		e.BaseURL = "http://localhost:11434"
	}
	if e.BatchSize == 0 {
		e.BatchSize = 32
	}
	if e.Workers == 0 {
		e.Workers = 4
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 30
	}

	l := &cfg.LLM
	if l.Provider == "" {
		l.Provider = "anthropic"
	}
	if l.APIKeyEnv == "" {
		switch l.Provider {
		case "anthropic":
			l.APIKeyEnv = "ANTHROPIC_API_KEY"
		case "openai":
			l.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if l.BaseURL == "" && l.Provider == "ollama" {
		l.BaseURL = "http://localhost:11434"
	}
	if l.Temperature == 0 && set.LLM.Temperature == nil {
		l.Temperature = 0.1
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = 1200
	}
	if l.RetryMaxTokens == 0 {
		l.RetryMaxTokens = 1500
	}
	if l.TimeoutSecs == 0 {
		l.TimeoutSecs = 60
	}
	if len(l.PlanModels) == 0 {
		l.PlanModels = defaultPlanModels(l.Provider)
	}
	if l.DefaultPlan == "" {
		l.DefaultPlan = models.DefaultPlan
	}

	r := &cfg.RAG
	if r.TopK == 0 {
		r.TopK = 5
	}
	if r.Language == "" {
		r.Language = models.DefaultLanguage
	}
	if r.RetryThreshold == 0 {
		r.RetryThreshold = 50
	}
	if r.MaxRetries == 0 && set.RAG.MaxRetries == nil {
		r.MaxRetries = 1
	}
	if r.SourcesLimit == 0 {
		r.SourcesLimit = 3
	}
	if r.SourcePreviewChars == 0 {
		r.SourcePreviewChars = 200
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

func defaultPlanModels(provider string) map[string]string {
	plans := make(map[string]string, len(models.PlanModels))
	for plan, model := range models.PlanModels {
		switch provider {
		case "openai":
			model = "gpt-4o"
			if plan == models.DefaultPlan {
				model = "gpt-4o-mini"
			}
		case "ollama":
			model = "llama3.1"
		}
		plans[plan] = model
	}
	return plans
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize)
	}
	switch c.Embedding.Provider {
	case "openai", "langchain-openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "anthropic", "openai", "ollama":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if len(c.LLM.PlanModels) == 0 {
		return errors.New("llm.plan_models must map at least one plan to a model")
	}
	if _, ok := c.LLM.PlanModels[c.LLM.DefaultPlan]; !ok {
		return fmt.Errorf("llm.default_plan %q has no model in plan_models", c.LLM.DefaultPlan)
	}
	if c.RAG.MaxRetries < 0 {
		return fmt.Errorf("rag.max_retries must be >= 0")
	}
	if k := c.RAG.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("rag.encryption_key must be 32 bytes, got %d", len(k))
	}
	switch c.Database.Driver {
	case "pgdriver", "pq":
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}
	return nil
}

func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSecs) * time.Second
}

// APIKey reads the key from the environment variable named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimPrefix(os.Getenv(envName), "Bearer ")
}
