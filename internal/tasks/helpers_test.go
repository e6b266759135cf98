package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/spigell/navihire/internal/flights"
	"github.com/spigell/navihire/internal/mailer"
	"github.com/spigell/navihire/internal/workflow"
)

type scriptedReply struct {
	contains string
	reply    string
	err      error
}

// scriptedGenerator answers with the first reply whose marker appears in the
// prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	for _, r := range g.replies {
		if strings.Contains(prompt, r.contains) {
			return r.reply, r.err
		}
	}
	return "", errors.New("unexpected prompt")
}

type fixedRoute workflow.Route

func (f fixedRoute) Classify(ctx context.Context, state *workflow.State) (workflow.Route, error) {
	state.NextAction = workflow.Route(f)
	return state.NextAction, nil
}

type stubSearcher struct {
	results map[string][]flights.Flight
	errs    map[string]error
	queries []flights.Query
}

func (s *stubSearcher) Search(ctx context.Context, q flights.Query) ([]flights.Flight, error) {
	s.queries = append(s.queries, q)
	if err := s.errs[q.Destination]; err != nil {
		return nil, err
	}
	return s.results[q.Destination], nil
}

// failingMailer rejects mail for the listed addresses and records the rest.
type failingMailer struct {
	reject map[string]bool
	sent   []mailer.Email
}

func (m *failingMailer) Send(ctx context.Context, email mailer.Email) error {
	for _, to := range email.To {
		if m.reject[to] {
			return errors.New("mailbox unavailable")
		}
	}
	m.sent = append(m.sent, email)
	return nil
}
