package workflow

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/utils"
	"go.uber.org/zap"
)

//go:embed classify_prompt.md
var classifyTemplate string

const defaultMaxLogLength = 200

// Classifier asks the text generator for a route label.
type Classifier struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewClassifier(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Classifier{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// Classify normalizes the reply (trim, lowercase) and stores it in
// state.NextAction without checking it against the known routes. Unknown
// labels are resolved by the engine's routing table.
func (c *Classifier) Classify(ctx context.Context, state *State) (Route, error) {
	last, ok := state.LastMessage()
	if !ok {
		return "", errors.New("no message to classify")
	}

	prompt := buildClassifyPrompt(state.Role(), last.Content)

	c.logger.Debug("classify request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}

	route := Route(strings.ToLower(strings.TrimSpace(raw)))
	state.NextAction = route

	c.logger.Debug("classify response", zap.String("route", string(route)))

	return route, nil
}

func buildClassifyPrompt(role, message string) string {
	template := classifyTemplate
	if strings.TrimSpace(template) == "" {
		template = "Request from a {{USER_ROLE}}: \"{{MESSAGE}}\"\nRespond with just the intent name."
	}
	prompt := strings.ReplaceAll(template, "{{USER_ROLE}}", role)
	return strings.ReplaceAll(prompt, "{{MESSAGE}}", message)
}
