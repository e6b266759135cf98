package workflow

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/utils"
	"go.uber.org/zap"
)

//go:embed respond_prompt.md
var respondTemplate string

// FallbackReply is appended when the final reply cannot be generated.
const FallbackReply = "I'm sorry, I couldn't complete your request right now. Please try again."

type Responder struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewResponder(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Responder{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// Respond always appends one assistant message. The returned error reports
// why the fallback reply was used.
func (r *Responder) Respond(ctx context.Context, state *State) error {
	reply, err := r.generate(ctx, state)
	if err != nil {
		state.Append(RoleAssistant, FallbackReply)
		return err
	}

	state.Append(RoleAssistant, reply)
	return nil
}

func (r *Responder) generate(ctx context.Context, state *State) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	progress := state.TaskProgress
	if progress == nil {
		progress = map[string]Progress{}
	}
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return "", fmt.Errorf("marshal task progress: %w", err)
	}

	prompt := buildRespondPrompt(state.LastUserMessage(), string(progressJSON))

	r.logger.Debug("response request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	reply := strings.TrimSpace(raw)
	if reply == "" {
		return "", ai.ErrEmptyResponse
	}

	return reply, nil
}

func buildRespondPrompt(message, progress string) string {
	template := respondTemplate
	if strings.TrimSpace(template) == "" {
		template = "User request: \"{{MESSAGE}}\"\nTask results: {{TASK_PROGRESS}}"
	}
	prompt := strings.ReplaceAll(template, "{{MESSAGE}}", message)
	return strings.ReplaceAll(prompt, "{{TASK_PROGRESS}}", progress)
}
