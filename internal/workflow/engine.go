// Package workflow routes a chat request to at most one task node and
// produces the assistant's reply.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/navihire/internal/logger"
	"go.uber.org/zap"
)

// ErrEmptyState is returned when a run has no message to work on.
var ErrEmptyState = errors.New("workflow state has no messages")

// Engine runs entry -> classify -> (one node) -> respond. It keeps no per-run
// data, so a single Engine may serve concurrent runs over distinct states.
type Engine struct {
	classifier IntentClassifier
	responder  ResponseGenerator
	routes     map[Route]Node
	logger     *zap.Logger
	recorder   Recorder
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithNode registers node as the handler for route. Registering
// RouteDirectResponse has no effect on the fall-through behaviour of
// unknown labels.
func WithNode(route Route, node Node) Option {
	return func(e *Engine) {
		if node != nil {
			e.routes[route] = node
		}
	}
}

func NewEngine(classifier IntentClassifier, responder ResponseGenerator, opts ...Option) *Engine {
	e := &Engine{
		classifier: classifier,
		responder:  responder,
		routes:     make(map[Route]Node),
		logger:     zap.NewNop(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one pass of the workflow over state and returns it. The only
// errors are ErrEmptyState (nothing was run) and a context error; in the
// latter case the state still carries the fallback reply.
func (e *Engine) Run(ctx context.Context, state *State) (*State, error) {
	if state == nil || len(state.Messages) == 0 {
		return state, ErrEmptyState
	}
	if state.TaskProgress == nil {
		state.TaskProgress = make(map[string]Progress)
	}

	started := time.Now()
	log := logger.WithFields(e.logger, logger.RunFields(state.SessionID, state.UserID)...)

	state.CurrentTask = ""
	e.classify(ctx, state, log)

	node, ok := e.route(state)
	routed := RouteDirectResponse
	if ok {
		routed = state.NextAction
	}
	log = log.With(zap.String(logger.FieldRoute, string(routed)))

	if ok {
		if err := ctx.Err(); err != nil {
			log.Warn("skipping task node", zap.String(logger.FieldNode, node.Name()), zap.Error(err))
		} else {
			state.CurrentTask = node.Name()
			e.process(ctx, node, state, log)
		}
	}

	if err := e.responder.Respond(ctx, state); err != nil {
		e.recorder.ResponseFallback()
		log.Warn("response generation failed, fallback reply used", zap.Error(err))
	}

	e.recorder.ObserveRun(string(routed), time.Since(started).Seconds())
	log.Info("workflow run finished", zap.Duration("took", time.Since(started)))

	return state, ctx.Err()
}

// route looks up NextAction in the routing table. Labels without a node,
// including direct_response and anything the classifier made up, go
// straight to the response step.
func (e *Engine) route(state *State) (Node, bool) {
	node, ok := e.routes[state.NextAction]
	return node, ok
}

func (e *Engine) classify(ctx context.Context, state *State, log *zap.Logger) {
	if err := ctx.Err(); err != nil {
		state.NextAction = RouteDirectResponse
		return
	}

	if _, err := e.classifier.Classify(ctx, state); err != nil {
		state.NextAction = RouteDirectResponse
		e.recorder.ClassificationFailed()
		log.Warn("intent classification failed, answering directly", zap.Error(err))
		return
	}

	log.Debug("intent classified", zap.String("next_action", string(state.NextAction)))
}

// process runs node and contains its failures, panics included, as an error
// entry under the node's name.
func (e *Engine) process(ctx context.Context, node Node, state *State, log *zap.Logger) {
	name := node.Name()
	log = log.With(zap.String(logger.FieldNode, name))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("task node panicked: %v", r)
			state.SetProgress(name, Progress{Status: StatusError, Error: err.Error()})
			log.Error("task node panicked", zap.Any("panic", r))
		}
		status := StatusError
		if p, ok := state.Progress(name); ok {
			status = p.Status
		}
		e.recorder.NodeOutcome(name, string(status))
	}()

	if err := node.Process(ctx, state); err != nil {
		state.SetProgress(name, Progress{Status: StatusError, Error: err.Error()})
		log.Warn("task node failed", zap.Error(err))
		return
	}

	log.Debug("task node finished")
}
