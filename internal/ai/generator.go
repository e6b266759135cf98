// Package ai defines the text generation seam used by the workflow.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("ai provider returned empty response")

// Generator turns a prompt into free-form text. Replies may be malformed;
// callers parse them defensively.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Named is implemented by generators that can describe their backend for logs.
type Named interface {
	Provider() string
	Model() string
}

// RateLimited paces calls to the wrapped generator.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a token bucket. A non-positive rps disables
// limiting and returns next unchanged.
func NewRateLimited(next Generator, rps float64, burst int) Generator {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}
	return r.next.GenerateContent(ctx, prompt)
}

func (r *RateLimited) Provider() string {
	if n, ok := r.next.(Named); ok {
		return n.Provider()
	}
	return ""
}

func (r *RateLimited) Model() string {
	if n, ok := r.next.(Named); ok {
		return n.Model()
	}
	return ""
}

// ValidatePrompt trims the prompt and rejects empty input.
func ValidatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}
	return prompt, nil
}
