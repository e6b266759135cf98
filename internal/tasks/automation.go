package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/calendar"
	"github.com/spigell/navihire/internal/mailer"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type AutomationType string

const (
	AutomationInterview    AutomationType = "interview_scheduling"
	AutomationFollowUp     AutomationType = "follow_up_email"
	AutomationTravel       AutomationType = "travel_approval"
	AutomationStatusUpdate AutomationType = "candidate_status_update"
	AutomationBulkEmail    AutomationType = "bulk_email"
	AutomationGeneral      AutomationType = "general"
)

const (
	automationPrompt = `Analyze this HR workflow automation request:
"{{MESSAGE}}"

Classify the request as one of:
1. interview_scheduling - scheduling interviews, calendar management
2. follow_up_email - sending follow-up emails to candidates
3. travel_approval - approving or managing travel requests
4. candidate_status_update - updating candidate application status
5. bulk_email - sending bulk emails to multiple candidates
6. general - general automation inquiry

Respond with just the classification.`

	automationOptions = `I can help automate various HR workflows:

**Interview Scheduling**
- Schedule candidate interviews
- Create calendar events
- Send interview invitations

**Email Automation**
- Send follow-up emails
- Application confirmations
- Status update notifications

**Travel Management**
- Approve travel requests
- Process candidate travel
- Send travel notifications

**Status Updates**
- Update candidate status
- Bulk status changes
- Progress notifications

**Bulk Communications**
- Job announcements
- Newsletter campaigns
- Survey distribution

What workflow would you like to automate?`
)

// AutomationResult is recorded as the node's progress payload.
type AutomationResult struct {
	Type      AutomationType `json:"automation_type"`
	Timestamp time.Time      `json:"timestamp"`
	Details   any            `json:"details,omitempty"`
}

type automationHandler func(ctx context.Context, message string, state *workflow.State) (string, any, error)

// WorkflowAutomation classifies an automation request and runs the matching
// handler. Unlike the other nodes it writes its own reply into the messages.
type WorkflowAutomation struct {
	llm
	scheduler calendar.Scheduler
	mailer    mailer.Mailer
	handlers  map[AutomationType]automationHandler
	now       func() time.Time
}

func NewWorkflowAutomation(generator ai.Generator, scheduler calendar.Scheduler, m mailer.Mailer, logger *zap.Logger, maxLogLength int) *WorkflowAutomation {
	n := &WorkflowAutomation{
		llm:       newLLM(generator, logger, maxLogLength),
		scheduler: scheduler,
		mailer:    m,
		now:       time.Now,
	}
	n.handlers = map[AutomationType]automationHandler{
		AutomationInterview:    n.scheduleInterview,
		AutomationFollowUp:     n.sendFollowUps,
		AutomationTravel:       n.reviewTravel,
		AutomationStatusUpdate: n.updateStatus,
		AutomationBulkEmail:    n.bulkEmail,
		AutomationGeneral:      n.general,
	}
	return n
}

func (n *WorkflowAutomation) Name() string { return string(workflow.RouteWorkflowAutomation) }

func (n *WorkflowAutomation) Process(ctx context.Context, state *workflow.State) error {
	message := state.LastUserMessage()
	if strings.TrimSpace(message) == "" {
		err := errors.New("no user request to automate")
		state.Append(workflow.RoleAssistant, apology("workflow automation", err)+" Please try again or contact support.")
		return err
	}

	kind := n.classify(ctx, message)
	handler, ok := n.handlers[kind]
	if !ok {
		kind, handler = AutomationGeneral, n.general
	}

	text, details, err := handler(ctx, message, state)
	if err != nil {
		n.logger.Warn("automation handler failed", zap.String("automation_type", string(kind)), zap.Error(err))
		text, details = apology(strings.ReplaceAll(string(kind), "_", " "), err)+" Please try again.", nil
	}

	state.Append(workflow.RoleAssistant, text)
	state.SetProgress(n.Name(), workflow.Progress{
		Status: workflow.StatusCompleted,
		Result: AutomationResult{Type: kind, Timestamp: n.now(), Details: details},
	})
	return nil
}

// classify falls back to general when the model is unavailable.
func (n *WorkflowAutomation) classify(ctx context.Context, message string) AutomationType {
	raw, err := n.generate(ctx, "automation classification", fill(automationPrompt, map[string]string{"MESSAGE": message}))
	if err != nil {
		n.logger.Warn("automation classification failed", zap.Error(err))
		return AutomationGeneral
	}
	return AutomationType(strings.ToLower(strings.TrimSpace(raw)))
}

func apology(what string, err error) string {
	return fmt.Sprintf("I encountered an issue with %s: %v.", what, err)
}

func (n *WorkflowAutomation) general(context.Context, string, *workflow.State) (string, any, error) {
	return automationOptions, nil, nil
}

func titleWords(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
