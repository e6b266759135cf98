// Package providers adapts third-party LLM SDKs to ai.Generator.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/logger"
	"go.uber.org/zap"
)

const defaultOpenAIModel = "gpt-4o-mini"

type chatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIConfig holds connection settings for OpenAI-compatible endpoints.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAI struct {
	completions chatCompletions
	model       string
	logger      *zap.Logger
}

func NewOpenAI(cfg OpenAIConfig, log *zap.Logger) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	client := openai.NewClient(opts...)

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		completions: &client.Chat.Completions,
		model:       model,
		logger:      logger.WithCommonFields(log, ai.ProviderOpenAI, model),
	}, nil
}

func (o *OpenAI) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if o == nil || o.completions == nil {
		return "", errors.New("openai generator is not initialized")
	}

	prompt, err := ai.ValidatePrompt(prompt)
	if err != nil {
		return "", err
	}

	resp, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyResponse
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", ai.ErrEmptyResponse
	}

	o.logger.Debug("openai completion received",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)

	return output, nil
}

func (o *OpenAI) Provider() string { return ai.ProviderOpenAI }

func (o *OpenAI) Model() string {
	if o == nil {
		return ""
	}
	return o.model
}
