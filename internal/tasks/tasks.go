// Package tasks implements the workflow's task nodes.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/reply"
	"github.com/spigell/navihire/internal/utils"
	"go.uber.org/zap"
)

const (
	// promptTextLimit caps resume text embedded in prompts.
	promptTextLimit     = 2000
	defaultMaxLogLength = 200
)

// llm bundles the generator with the reply parser every node uses.
type llm struct {
	generator ai.Generator
	parser    *reply.Parser
	logger    *zap.Logger
	maxLogLen int
}

func newLLM(generator ai.Generator, logger *zap.Logger, maxLogLength int) llm {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return llm{
		generator: generator,
		parser:    reply.NewParser(logger, maxLogLength),
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (l llm) generate(ctx context.Context, purpose, prompt string) (string, error) {
	l.logger.Debug("generate content request",
		zap.String("purpose", purpose),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, l.maxLogLen)),
	)

	raw, err := l.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", purpose, err)
	}

	l.logger.Debug("generate content response",
		zap.String("purpose", purpose),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, l.maxLogLen)),
	)

	return raw, nil
}

// structured runs prompt and returns the parsed object. Only the generator
// call can fail; unparseable replies yield an empty map.
func (l llm) structured(ctx context.Context, purpose, prompt string) (map[string]any, error) {
	raw, err := l.generate(ctx, purpose, prompt)
	if err != nil {
		return nil, err
	}
	return l.parser.Parse(raw), nil
}

// decode runs prompt and maps the parsed object onto target.
func (l llm) decode(ctx context.Context, purpose, prompt string, target any) error {
	raw, err := l.generate(ctx, purpose, prompt)
	if err != nil {
		return err
	}
	if err := l.parser.Decode(raw, target); err != nil {
		return fmt.Errorf("%s: %w", purpose, err)
	}
	return nil
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// blank reports whether an extracted field is absent. Models often spell
// absence as the string "null".
func blank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a":
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if blank(s) {
		return def
	}
	return strings.TrimSpace(s)
}

func fill(template string, values map[string]string) string {
	for k, v := range values {
		template = strings.ReplaceAll(template, "{{"+k+"}}", v)
	}
	return template
}
