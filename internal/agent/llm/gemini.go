package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/procureflow-core/server/internal/agent/model"
	errx "github.com/procureflow-core/server/internal/core/error"
)

// GeminiClient implements Client against the Google GenAI API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGeminiClient(cfg model.GenerationConfig) (*GeminiClient, error) {
	if cfg.GeminiKey == "" {
		return nil, errors.New("gemini api key missing; set GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.GeminiKey,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	var system string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m == nil || m.Content == "" {
			continue
		}
		switch m.Role {
		case schema.System:
			system = m.Content
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return "", errx.New(err, http.StatusBadGateway, errx.GenerationErrorMessage)
	}
	text := resp.Text()
	if text == "" {
		return "", errx.New(errors.New("gemini: empty response"), http.StatusBadGateway, errx.GenerationErrorMessage)
	}
	return text, nil
}

var _ Client = (*GeminiClient)(nil)
