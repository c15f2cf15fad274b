// Package embeddings adapts langchaingo's embedding abstraction onto
// vectorbackend.Embedder, for deployments that run oracle-v2 against a
// standalone Qdrant instance rather than the spec-literal pipe backend
// (which hides embedding inside the child process).
package embeddings

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config controls embedder construction. BaseURL points at an
// OpenAI-compatible endpoint: a local TEI server, or the OpenAI API.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
}

// ConfigFromEnv reads EMBEDDING_BASE_URL, EMBEDDING_MODEL and
// OPENAI_API_KEY, defaulting to a local TEI server.
func ConfigFromEnv() Config {
	baseURL := os.Getenv("EMBEDDING_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "BAAI/bge-small-en-v1.5"
	}
	return Config{BaseURL: baseURL, Model: model, APIKey: os.Getenv("OPENAI_API_KEY")}
}

// Service wraps a langchaingo embedder behind the single-text Embed
// method vectorbackend.Embedder expects.
type Service struct {
	embedder embeddings.Embedder
}

// New builds a Service from cfg. The OpenAI client works unmodified
// against TEI's OpenAI-compatible API once BaseURL is overridden.
func New(cfg Config) (*Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embed: base URL required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embed: model required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("embed: create client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("embed: create embedder: %w", err)
	}

	return &Service{embedder: embedder}, nil
}

// Embed satisfies vectorbackend.Embedder by embedding a single query.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: embed query: %w", err)
	}
	return vec, nil
}
