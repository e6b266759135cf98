package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-5"
	defaultAnthropicMaxTokens = 1024
)

type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

type Anthropic struct {
	messages  messageCreator
	model     string
	maxTokens int64
	logger    *zap.Logger
}

func NewAnthropic(cfg AnthropicConfig, log *zap.Logger) (*Anthropic, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultAnthropicModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &Anthropic{
		messages:  &client.Messages,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.WithCommonFields(log, ai.ProviderAnthropic, model),
	}, nil
}

func (a *Anthropic) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if a == nil || a.messages == nil {
		return "", errors.New("anthropic generator is not initialized")
	}

	prompt, err := ai.ValidatePrompt(prompt)
	if err != nil {
		return "", err
	}

	msg, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var builder strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			builder.WriteString(b.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ai.ErrEmptyResponse
	}

	a.logger.Debug("anthropic message received",
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return output, nil
}

func (a *Anthropic) Provider() string { return ai.ProviderAnthropic }

func (a *Anthropic) Model() string {
	if a == nil {
		return ""
	}
	return a.model
}
