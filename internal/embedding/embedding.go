package embedding

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rachid48133/studygenie/internal/config"
)

// NewProvider creates the embedding provider selected by cfg.Provider.
func NewProvider(cfg config.EmbeddingConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]any{
		"provider":   cfg.Provider,
		"base_url":   cfg.BaseURL,
		"model":      cfg.Model,
		"batch_size": cfg.BatchSize,
	}).Msg("Creating embedder")

	switch cfg.Provider {
	case "openai":
		key := config.APIKey(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%s environment variable not set", cfg.APIKeyEnv)
		}
		return NewOpenAI(key, cfg.BaseURL, cfg.Model), nil
	case "langchain-openai":
		return NewLangChainOpenAIEmbedder(config.APIKey(cfg.APIKeyEnv), cfg.BaseURL, cfg.Model, cfg.BatchSize)
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.BatchSize)
	}
	return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
}

// NewLangChainOpenAIEmbedder creates an embedder for any OpenAI-compatible endpoint.
func NewLangChainOpenAIEmbedder(apiKey, baseURL, model string, batchSize int) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// new ollama embedder
func NewOllamaEmbedder(baseURL, model string, batchSize int) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}
