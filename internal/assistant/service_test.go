package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spigell/navihire/internal/resume"
	"github.com/spigell/navihire/internal/session"
	"github.com/spigell/navihire/internal/tasks"
	"github.com/spigell/navihire/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	replies [][2]string
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.replies {
		if strings.Contains(prompt, r[0]) {
			return r[1], nil
		}
	}
	return "", errors.New("unexpected prompt")
}

// keywordClassifier routes by a keyword in the latest user message.
type keywordClassifier map[string]workflow.Route

func (k keywordClassifier) Classify(ctx context.Context, state *workflow.State) (workflow.Route, error) {
	msg := strings.ToLower(state.LastUserMessage())
	state.NextAction = workflow.RouteDirectResponse
	for word, route := range k {
		if strings.Contains(msg, word) {
			state.NextAction = route
		}
	}
	return state.NextAction, nil
}

func newTestService(t *testing.T, store session.Store) *Service {
	t.Helper()

	gen := &scriptedGenerator{replies: [][2]string{
		{"You are NaviHire", "Here is what I found."},
		{"Extract and categorize skills", `{"technical_skills": ["Go"]}`},
		{"Analyze work experience", `{"total_years": 4}`},
		{"Analyze the match between", `{"match_score": 82, "recommendation": "Interview"}`},
	}}

	engine := workflow.NewEngine(
		keywordClassifier{"analyze": workflow.RouteResumeAnalysis, "match": workflow.RouteCandidateMatching},
		workflow.NewResponder(gen, nil, 0),
		workflow.WithNode(workflow.RouteResumeAnalysis, tasks.NewResumeAnalysis(gen, nil, nil, 0)),
		workflow.WithNode(workflow.RouteCandidateMatching, tasks.NewCandidateMatching(gen, nil, 0)),
	)

	svc := NewService(engine, store)
	svc.newID = func() string { return "session-1" }
	return svc
}

func TestHandleCarriesStateAcrossTurns(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	svc := newTestService(t, store)

	first, err := svc.Handle(ctx, Request{
		UserID:  "u1",
		Message: "Please analyze these resumes",
		Resumes: []resume.Upload{{Filename: "jane.txt", Content: []byte("Jane\njane@mail.com\nSkills: python")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "session-1", first.SessionID)
	assert.Equal(t, "resume_analysis", first.Agent)
	assert.Equal(t, "Here is what I found.", first.Message)
	assert.Equal(t, workflow.StatusCompleted, first.TaskProgress["resume_analysis"].Status)

	second, err := svc.Handle(ctx, Request{
		SessionID:      first.SessionID,
		Message:        "Now match them",
		JobDescription: map[string]any{"title": "Go Engineer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "candidate_matching", second.Agent)
	assert.Equal(t, workflow.StatusCompleted, second.TaskProgress["candidate_matching"].Status)

	stored, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 4)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, workflow.DefaultUserRole, stored.UserRole)
	require.Len(t, stored.CandidateMatches, 1)
	assert.Equal(t, "jane.txt", stored.CandidateMatches[0].Filename)
	assert.Equal(t, 82.0, stored.CandidateMatches[0].MatchScore)
	assert.Equal(t, workflow.RouteCandidateMatching, stored.NextAction)

	history, err := svc.History(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "Now match them", history[2].Content)
}

func TestHandleDirectResponse(t *testing.T) {
	svc := newTestService(t, session.NewMemoryStore())

	reply, err := svc.Handle(context.Background(), Request{SessionID: "chosen", UserRole: "recruiter", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "chosen", reply.SessionID)
	assert.Equal(t, GeneralAgent, reply.Agent)
	assert.Empty(t, reply.TaskProgress)

	ids, err := svc.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"chosen"}, ids)

	require.NoError(t, svc.Reset(context.Background(), "chosen"))
	_, err = svc.History(context.Background(), "chosen")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestHandleRejectsEmptyMessage(t *testing.T) {
	svc := newTestService(t, session.NewMemoryStore())
	_, err := svc.Handle(context.Background(), Request{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

type brokenStore struct {
	session.Store
	loadErr error
	saveErr error
}

func (b brokenStore) Load(ctx context.Context, id string) (*workflow.State, error) {
	return nil, b.loadErr
}

func (b brokenStore) Save(ctx context.Context, id string, state *workflow.State) error {
	return b.saveErr
}

func TestHandleStoreFailures(t *testing.T) {
	down := errors.New("redis down")

	svc := newTestService(t, brokenStore{loadErr: down})
	_, err := svc.Handle(context.Background(), Request{Message: "hi"})
	assert.ErrorIs(t, err, down)

	svc = newTestService(t, brokenStore{loadErr: session.ErrSessionNotFound, saveErr: down})
	_, err = svc.Handle(context.Background(), Request{Message: "hi"})
	assert.ErrorIs(t, err, down)
}

func TestHandleCancelledTurnIsSaved(t *testing.T) {
	store := session.NewMemoryStore()
	svc := newTestService(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := svc.Handle(ctx, Request{Message: "analyze"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, reply)
	assert.Equal(t, workflow.FallbackReply, reply.Message)

	stored, loadErr := store.Load(context.Background(), "session-1")
	require.NoError(t, loadErr)
	assert.Len(t, stored.Messages, 2)
}

func TestSessionLocksAreReleased(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, session.NewMemoryStore())

	next := 0
	svc.newID = func() string {
		next++
		return fmt.Sprintf("session-%d", next)
	}

	for i := 0; i < 1000; i++ {
		reply, err := svc.Handle(ctx, Request{Message: "hello"})
		require.NoError(t, err)
		if i%2 == 0 {
			require.NoError(t, svc.Reset(ctx, reply.SessionID))
		}
	}

	ids, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 500)
	assert.Zero(t, svc.locks.size())
}

func TestSessionLocksSerializeOneSession(t *testing.T) {
	locks := newSessionLocks()

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("shared")
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "two turns held the same session lock")
	assert.Zero(t, locks.size())
}

func TestHandleStoresPreferences(t *testing.T) {
	store := session.NewMemoryStore()
	svc := newTestService(t, store)

	_, err := svc.Handle(context.Background(), Request{
		Message:      "hello",
		TravelPolicy: map[string]any{"class": "economy"},
		Preferences:  map[string]any{"seat": "aisle"},
	})
	require.NoError(t, err)

	stored, err := store.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "aisle", stored.UserPreferences["seat"])
	assert.Equal(t, "economy", stored.TravelPolicy["class"])
}
