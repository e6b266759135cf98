package workflow

import (
	"github.com/spigell/navihire/internal/flights"
	"github.com/spigell/navihire/internal/resume"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const DefaultUserRole = "hr_manager"

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Route selects the task node for a run.
type Route string

const (
	RouteResumeAnalysis     Route = "resume_analysis"
	RouteCandidateMatching  Route = "candidate_matching"
	RouteTravelOptimization Route = "travel_optimization"
	RouteWorkflowAutomation Route = "workflow_automation"
	RouteDirectResponse     Route = "direct_response"
)

// Routes lists every label the classifier is asked to choose from.
var Routes = []Route{
	RouteResumeAnalysis,
	RouteCandidateMatching,
	RouteTravelOptimization,
	RouteWorkflowAutomation,
	RouteDirectResponse,
}

type Status string

const (
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusMissingData Status = "missing_data"
	StatusNoResumes   Status = "no_resumes"
	StatusNoRequests  Status = "no_requests"
	// Per-item statuses inside a node result.
	StatusAnalyzed Status = "analyzed"
	StatusFailed   Status = "failed"
)

// Progress is the result a node records under its own name.
type Progress struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// TravelRequest is a caller supplied trip. Empty fields take defaults when
// the trip is optimized.
type TravelRequest struct {
	Origin      string `json:"origin,omitempty" mapstructure:"origin"`
	Destination string `json:"destination,omitempty" mapstructure:"destination"`
	Date        string `json:"date,omitempty" mapstructure:"date"`
	Purpose     string `json:"purpose,omitempty" mapstructure:"purpose"`
	Traveler    string `json:"traveler,omitempty" mapstructure:"traveler"`
}

// TravelRecommendations holds the three picks for one trip.
type TravelRecommendations struct {
	BestValue *flights.Flight `json:"best_value,omitempty"`
	Fastest   *flights.Flight `json:"fastest,omitempty"`
	Cheapest  *flights.Flight `json:"cheapest,omitempty"`
}

type TravelPlan struct {
	Request           TravelRequest          `json:"original_request"`
	Options           []flights.Flight       `json:"flight_options,omitempty"`
	Recommendations   *TravelRecommendations `json:"recommendations,omitempty"`
	Analysis          string                 `json:"ai_analysis,omitempty"`
	OptimizationScore float64                `json:"optimization_score"`
	Error             string                 `json:"error,omitempty"`
}

// CandidateMatch is one scored candidate for the current job description.
type CandidateMatch struct {
	Filename       string   `json:"filename"`
	MatchScore     float64  `json:"match_score"`
	Reasoning      string   `json:"reasoning,omitempty"`
	Strengths      []string `json:"strengths,omitempty"`
	Gaps           []string `json:"gaps,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Error          string   `json:"error,omitempty"`
	Rank           int      `json:"rank"`
	Percentile     float64  `json:"percentile"`
}

// State is threaded through one workflow run. The engine owns it for the
// duration of Run; nodes write only their own progress key and payload field.
type State struct {
	Messages     []Message `json:"messages"`
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	UserRole     string    `json:"user_role"`
	CurrentJobID string    `json:"current_job_id,omitempty"`

	NextAction  Route  `json:"next_action,omitempty"`
	CurrentTask string `json:"current_task,omitempty"`

	TaskProgress map[string]Progress `json:"task_progress"`

	UploadedResumes  []resume.Upload  `json:"uploaded_resumes,omitempty"`
	JobDescription   map[string]any   `json:"job_description,omitempty"`
	TravelRequests   []TravelRequest  `json:"travel_requests,omitempty"`
	TravelPolicy     map[string]any   `json:"travel_policy,omitempty"`
	UserPreferences  map[string]any   `json:"user_preferences,omitempty"`
	CandidateMatches []CandidateMatch `json:"candidate_matches"`
	TravelPlans      []TravelPlan     `json:"travel_plans,omitempty"`
}

// NewState starts a conversation with a single user message.
func NewState(userID, sessionID, role, message string) *State {
	s := &State{
		UserID:    userID,
		SessionID: sessionID,
		UserRole:  role,
	}
	s.Append(RoleUser, message)
	return s
}

func (s *State) Append(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// LastMessage returns the most recent message of any role.
func (s *State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastUserMessage returns the text of the most recent user turn.
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

func (s *State) Role() string {
	if s.UserRole == "" {
		return DefaultUserRole
	}
	return s.UserRole
}

// SetProgress records the entry for node, replacing any previous run's entry.
func (s *State) SetProgress(node string, p Progress) {
	if s.TaskProgress == nil {
		s.TaskProgress = make(map[string]Progress)
	}
	s.TaskProgress[node] = p
}

func (s *State) Progress(node string) (Progress, bool) {
	p, ok := s.TaskProgress[node]
	return p, ok
}
