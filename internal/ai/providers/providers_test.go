package providers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spigell/navihire/internal/ai"
	"go.uber.org/zap"
)

type stubCompletions struct {
	resp *openai.ChatCompletion
	err  error
	last openai.ChatCompletionNewParams
}

func (s *stubCompletions) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.last = body
	return s.resp, s.err
}

type stubMessages struct {
	resp *anthropic.Message
	err  error
	last anthropic.MessageNewParams
}

func (s *stubMessages) New(ctx context.Context, body anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error) {
	s.last = body
	return s.resp, s.err
}

func TestOpenAIGenerateContent(t *testing.T) {
	stub := &stubCompletions{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: "  resume_analysis \n"},
		}},
	}}
	g := &OpenAI{completions: stub, model: "gpt-test", logger: zap.NewNop()}

	out, err := g.GenerateContent(context.Background(), "classify")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "resume_analysis" {
		t.Fatalf("unexpected output: %q", out)
	}
	if string(stub.last.Model) != "gpt-test" {
		t.Fatalf("unexpected model: %q", stub.last.Model)
	}
	if len(stub.last.Messages) != 1 {
		t.Fatalf("expected a single user message, got %d", len(stub.last.Messages))
	}
}

func TestOpenAIEmptyAndErrors(t *testing.T) {
	g := &OpenAI{completions: &stubCompletions{resp: &openai.ChatCompletion{}}, model: "gpt-test", logger: zap.NewNop()}
	if _, err := g.GenerateContent(context.Background(), "x"); !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}

	boom := errors.New("boom")
	g = &OpenAI{completions: &stubCompletions{err: boom}, model: "gpt-test", logger: zap.NewNop()}
	if _, err := g.GenerateContent(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}, nil); err == nil {
		t.Fatalf("expected error for missing key")
	}
	g, err := NewOpenAI(OpenAIConfig{APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Model() != defaultOpenAIModel || g.Provider() != ai.ProviderOpenAI {
		t.Fatalf("unexpected defaults: %s/%s", g.Provider(), g.Model())
	}
}

func TestAnthropicGenerateContent(t *testing.T) {
	var msg anthropic.Message
	raw := `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
		"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],
		"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	stub := &stubMessages{resp: &msg}
	g := &Anthropic{messages: stub, model: "claude-test", maxTokens: 50, logger: zap.NewNop()}

	out, err := g.GenerateContent(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello there" {
		t.Fatalf("unexpected output: %q", out)
	}
	if stub.last.MaxTokens != 50 || string(stub.last.Model) != "claude-test" {
		t.Fatalf("unexpected params: %+v", stub.last)
	}
}

func TestAnthropicErrors(t *testing.T) {
	boom := errors.New("overloaded")
	g := &Anthropic{messages: &stubMessages{err: boom}, model: "m", maxTokens: 1, logger: zap.NewNop()}
	if _, err := g.GenerateContent(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	g = &Anthropic{messages: &stubMessages{resp: &anthropic.Message{}}, model: "m", maxTokens: 1, logger: zap.NewNop()}
	if _, err := g.GenerateContent(context.Background(), "hi"); !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}

	if _, err := NewAnthropic(AnthropicConfig{}, nil); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
