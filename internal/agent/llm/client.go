// Package llm holds the generation collaborator: an opaque capability that,
// given a message list, returns assistant reply text.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/procureflow-core/server/internal/agent/model"
)

// Client abstracts the text-generation backend so it can be swapped or
// mocked. Generate blocks until the backend returns; callers treat it as the
// turn's strict sequencing point.
type Client interface {
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
}

// NewClient builds the provider selected by configuration.
func NewClient(cfg model.GenerationConfig) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg)
	case "gemini":
		return NewGeminiClient(cfg)
	case "mock":
		return &Mock{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
