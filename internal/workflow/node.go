package workflow

import "context"

// Node is a task handler the engine dispatches to. Name is also the
// TaskProgress key the node writes.
//
// Process records expected-empty inputs as a progress entry and returns nil.
// Any returned error is recorded by the engine as an error entry; the run
// still continues to the response step.
type Node interface {
	Name() string
	Process(ctx context.Context, state *State) error
}

// IntentClassifier picks the route for a run and stores it in NextAction.
type IntentClassifier interface {
	Classify(ctx context.Context, state *State) (Route, error)
}

// ResponseGenerator appends exactly one assistant message to the state.
type ResponseGenerator interface {
	Respond(ctx context.Context, state *State) error
}

// Recorder receives run level measurements.
type Recorder interface {
	ObserveRun(route string, seconds float64)
	NodeOutcome(node, status string)
	ClassificationFailed()
	ResponseFallback()
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, float64) {}
func (nopRecorder) NodeOutcome(string, string) {}
func (nopRecorder) ClassificationFailed() {}
func (nopRecorder) ResponseFallback() {}
