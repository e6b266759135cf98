// Package assistant runs one conversation turn against a stored session.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spigell/navihire/internal/logger"
	"github.com/spigell/navihire/internal/resume"
	"github.com/spigell/navihire/internal/session"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

// GeneralAgent is reported when a turn was answered without a task node.
const GeneralAgent = "general"

var ErrEmptyMessage = errors.New("message is empty")

// Runner executes the workflow over a state.
type Runner interface {
	Run(ctx context.Context, state *workflow.State) (*workflow.State, error)
}

// Request is one user turn plus the data attached to it. Empty payload fields
// keep whatever the session already holds.
type Request struct {
	SessionID      string                   `json:"session_id,omitempty"`
	UserID         string                   `json:"user_id,omitempty"`
	UserRole       string                   `json:"user_role,omitempty"`
	Message        string                   `json:"message"`
	JobID          string                   `json:"job_id,omitempty"`
	Resumes        []resume.Upload          `json:"resumes,omitempty"`
	JobDescription map[string]any           `json:"job_description,omitempty"`
	TravelRequests []workflow.TravelRequest `json:"travel_requests,omitempty"`
	TravelPolicy   map[string]any           `json:"travel_policy,omitempty"`
	Preferences    map[string]any           `json:"user_preferences,omitempty"`
}

type Reply struct {
	SessionID    string                       `json:"session_id"`
	Message      string                       `json:"message"`
	Agent        string                       `json:"agent"`
	TaskProgress map[string]workflow.Progress `json:"task_progress"`
}

type Service struct {
	runner      Runner
	store       session.Store
	logger      *zap.Logger
	defaultRole string
	newID       func() string

	// turns on one session are serialized
	locks *sessionLocks
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithDefaultRole(role string) Option {
	return func(s *Service) {
		if role != "" {
			s.defaultRole = role
		}
	}
}

func NewService(runner Runner, store session.Store, opts ...Option) *Service {
	s := &Service{
		runner:      runner,
		store:       store,
		logger:      zap.NewNop(),
		defaultRole: workflow.DefaultUserRole,
		newID:       uuid.NewString,
		locks:       newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Handle(ctx context.Context, req Request) (*Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.newID()
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID, req)
	if err != nil {
		return nil, err
	}

	state.Append(workflow.RoleUser, message)
	apply(state, req)
	state.NextAction = ""
	state.CurrentTask = ""

	log := logger.WithFields(s.logger, logger.RunFields(state.SessionID, state.UserID)...)
	log.Info("handling chat turn", zap.Int("messages", len(state.Messages)))

	state, runErr := s.runner.Run(ctx, state)
	if runErr != nil && !isContextError(runErr) {
		return nil, fmt.Errorf("run workflow: %w", runErr)
	}

	// A cancelled turn still carries the fallback reply worth keeping.
	if err := s.store.Save(context.WithoutCancel(ctx), sessionID, state); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	reply := &Reply{
		SessionID:    sessionID,
		Agent:        GeneralAgent,
		TaskProgress: state.TaskProgress,
	}
	if state.CurrentTask != "" {
		reply.Agent = state.CurrentTask
	}
	if last, ok := state.LastMessage(); ok {
		reply.Message = last.Content
	}

	return reply, runErr
}

// History returns the stored messages of a session.
func (s *Service) History(ctx context.Context, sessionID string) ([]workflow.Message, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.Messages, nil
}

// Reset waits for a running turn on the session and then forgets it.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) Sessions(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

func (s *Service) load(ctx context.Context, sessionID string, req Request) (*workflow.State, error) {
	state, err := s.store.Load(ctx, sessionID)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, session.ErrSessionNotFound):
		s.logger.Debug("starting new session", zap.String(logger.FieldSession, sessionID))
		role := req.UserRole
		if role == "" {
			role = s.defaultRole
		}
		return &workflow.State{
			UserID:       req.UserID,
			SessionID:    sessionID,
			UserRole:     role,
			TaskProgress: make(map[string]workflow.Progress),
		}, nil
	default:
		return nil, fmt.Errorf("load session: %w", err)
	}
}

// sessionLocks hands out one mutex per session while someone holds or waits
// for it. Entries are dropped with the last holder.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	entry, ok := l.held[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.held[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func apply(state *workflow.State, req Request) {
	if req.UserRole != "" {
		state.UserRole = req.UserRole
	}
	if req.JobID != "" {
		state.CurrentJobID = req.JobID
	}
	if len(req.Resumes) > 0 {
		state.UploadedResumes = req.Resumes
	}
	if len(req.JobDescription) > 0 {
		state.JobDescription = req.JobDescription
	}
	if len(req.TravelRequests) > 0 {
		state.TravelRequests = req.TravelRequests
	}
	if len(req.TravelPolicy) > 0 {
		state.TravelPolicy = req.TravelPolicy
	}
	if len(req.Preferences) > 0 {
		state.UserPreferences = req.Preferences
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
