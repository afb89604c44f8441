package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/procureflow-core/server/internal/agent/model"
	errx "github.com/procureflow-core/server/internal/core/error"
)

// OpenAIClient implements Client using the official openai-go SDK (chat
// completions). It is the default provider.
type OpenAIClient struct {
	model       string
	temperature float64
	maxTokens   int64
	opts        []option.RequestOption
}

func NewOpenAIClient(cfg model.GenerationConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; set OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.Timeout)*time.Second))
	}
	return &OpenAIClient{
		model:       cfg.Model,
		temperature: float64(cfg.Temperature),
		maxTokens:   int64(cfg.MaxTokens),
		opts:        opts,
	}, nil
}

func (o *OpenAIClient) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	client := openai.NewClient(o.opts...)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case schema.Assistant:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    msgs,
		Temperature: openai.Float(o.temperature),
		MaxTokens:   openai.Int(o.maxTokens),
	})
	if err != nil {
		return "", errx.New(err, http.StatusBadGateway, errx.GenerationErrorMessage)
	}
	if len(resp.Choices) == 0 {
		return "", errx.New(errors.New("openai: empty choices"), http.StatusBadGateway, errx.GenerationErrorMessage)
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Client = (*OpenAIClient)(nil)
