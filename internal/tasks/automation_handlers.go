package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/navihire/internal/calendar"
	"github.com/spigell/navihire/internal/mailer"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

const (
	defaultInterviewTime = "10:00"
	defaultInterviewer   = "hr@company.com"
	meetingLinkURL       = "https://meet.google.com/new"

	interviewPrompt = `Extract interview scheduling details from: "{{MESSAGE}}"

Return JSON format:
{
  "candidate_name": "candidate name or null",
  "job_title": "job title or null",
  "interview_date": "YYYY-MM-DD or null",
  "interview_time": "HH:MM or null",
  "interviewer_email": "email or null",
  "meeting_type": "in-person/virtual or null"
}`

	followUpPrompt = `Extract follow-up email details from: "{{MESSAGE}}"

Return JSON:
{
  "email_type": "application_confirmation/interview_reminder/status_update",
  "candidate_names": ["name1", "name2"],
  "job_title": "job title or null",
  "custom_message": "custom message or null"
}`

	travelApprovalPrompt = `Extract travel approval details from: "{{MESSAGE}}"

Return JSON:
{
  "action": "approve/reject/review",
  "travel_request_id": "ID or null",
  "candidate_name": "name or null",
  "approval_reason": "reason or null"
}`

	statusUpdatePrompt = `Extract candidate status update details from: "{{MESSAGE}}"

Return JSON:
{
  "candidate_names": ["name1", "name2"],
  "new_status": "screening/interview/offer/hired/rejected",
  "job_title": "job title or null",
  "update_reason": "reason or null"
}`

	bulkEmailPrompt = `Extract bulk email campaign details from: "{{MESSAGE}}"

Return JSON:
{
  "campaign_type": "job_announcement/newsletter/survey",
  "target_group": "all_candidates/active_candidates/specific_skills",
  "subject": "email subject or null",
  "message_content": "email content or null"
}`
)

var estimatedRecipients = map[string]int{
	"all_candidates":    150,
	"active_candidates": 75,
	"specific_skills":   25,
}

type InterviewDetails struct {
	CandidateName    string `json:"candidate_name"`
	JobTitle         string `json:"job_title"`
	InterviewDate    string `json:"interview_date"`
	InterviewTime    string `json:"interview_time"`
	InterviewerEmail string `json:"interviewer_email"`
	MeetingType      string `json:"meeting_type"`
	EventID          string `json:"event_id,omitempty"`
	MeetingLink      string `json:"meeting_link,omitempty"`
}

func (n *WorkflowAutomation) scheduleInterview(ctx context.Context, message string, _ *workflow.State) (string, any, error) {
	var d InterviewDetails
	if err := n.decode(ctx, "interview extraction", fill(interviewPrompt, map[string]string{"MESSAGE": message}), &d); err != nil {
		return "", nil, err
	}

	if blank(d.CandidateName) || blank(d.InterviewDate) {
		return `I need more information to schedule the interview:
- Candidate name
- Interview date
- Interview time (optional, defaults to 10:00 AM)
- Interviewer email (optional)

Please provide these details.`, nil, nil
	}

	d.InterviewTime = orDefault(d.InterviewTime, defaultInterviewTime)
	d.InterviewerEmail = orDefault(d.InterviewerEmail, defaultInterviewer)
	d.JobTitle = orDefault(d.JobTitle, "")
	d.MeetingType = orDefault(d.MeetingType, "in-person")

	start, err := time.ParseInLocation("2006-01-02 15:04", d.InterviewDate+" "+d.InterviewTime, time.Local)
	if err != nil {
		return "", nil, fmt.Errorf("parse interview time: %w", err)
	}

	if strings.EqualFold(d.MeetingType, "virtual") {
		d.MeetingLink = meetingLinkURL
	}

	id, err := n.scheduler.CreateInterview(ctx, calendar.Interview{
		CandidateName:    d.CandidateName,
		JobTitle:         d.JobTitle,
		InterviewerEmail: d.InterviewerEmail,
		Start:            start,
		MeetingLink:      d.MeetingLink,
	})
	if err != nil {
		n.logger.Warn("calendar event not created", zap.Error(err))
		return "I created the interview details but couldn't create the calendar event. Please check manually.", d, nil
	}
	d.EventID = id

	return fmt.Sprintf(`Interview scheduled successfully!

Details:
- Candidate: %s
- Date: %s
- Time: %s
- Type: %s

Calendar invite sent to interviewer.
Would you like me to send an invitation email to the candidate?`, d.CandidateName, d.InterviewDate, d.InterviewTime, titleWords(d.MeetingType)), d, nil
}

type FollowUpDetails struct {
	EmailType      string   `json:"email_type"`
	CandidateNames []string `json:"candidate_names"`
	JobTitle       string   `json:"job_title"`
	CustomMessage  string   `json:"custom_message"`
	Sent           int      `json:"sent"`
	Failed         []string `json:"failed,omitempty"`
}

func (n *WorkflowAutomation) sendFollowUps(ctx context.Context, message string, _ *workflow.State) (string, any, error) {
	var d FollowUpDetails
	if err := n.decode(ctx, "follow-up extraction", fill(followUpPrompt, map[string]string{"MESSAGE": message}), &d); err != nil {
		return "", nil, err
	}

	if len(d.CandidateNames) == 0 {
		return `I need candidate information to send follow-up emails:
- Candidate names or email addresses
- Email type (confirmation, reminder, status update)
- Job title (optional)
- Custom message (optional)

Please provide these details.`, nil, nil
	}

	d.EmailType = orDefault(d.EmailType, "status_update")
	job := orDefault(d.JobTitle, "Position")

	for _, name := range d.CandidateNames {
		to := mailer.AddressFor(name)

		var email mailer.Email
		switch d.EmailType {
		case "application_confirmation":
			email = mailer.ApplicationConfirmation(to, name, job)
		case "interview_reminder":
			email = mailer.InterviewInvitation(to, name, job, n.now().AddDate(0, 0, 7).Format(dateLayout), "10:00 AM", "HR Team", "")
		default:
			email = mailer.StatusUpdate(to, job, orDefault(d.CustomMessage, ""))
		}

		if err := n.mailer.Send(ctx, email); err != nil {
			n.logger.Warn("follow-up email failed", zap.String("recipient", to), zap.Error(err))
			d.Failed = append(d.Failed, name)
			continue
		}
		d.Sent++
	}

	return fmt.Sprintf(`Follow-up emails sent!

- Email type: %s
- Recipients: %d/%d emails sent
- Job: %s`, titleWords(d.EmailType), d.Sent, len(d.CandidateNames), orDefault(d.JobTitle, "Not specified")), d, nil
}

type TravelApprovalDetails struct {
	Action          string `json:"action"`
	TravelRequestID string `json:"travel_request_id"`
	CandidateName   string `json:"candidate_name"`
	ApprovalReason  string `json:"approval_reason"`
}

func (n *WorkflowAutomation) reviewTravel(ctx context.Context, message string, _ *workflow.State) (string, any, error) {
	var d TravelApprovalDetails
	if err := n.decode(ctx, "travel approval extraction", fill(travelApprovalPrompt, map[string]string{"MESSAGE": message}), &d); err != nil {
		return "", nil, err
	}

	d.Action = strings.ToLower(orDefault(d.Action, "review"))
	id := orDefault(d.TravelRequestID, "TRV-001")

	switch d.Action {
	case "approve":
		n.notify(ctx, d.CandidateName, fmt.Sprintf("Travel request %s approved", id), "Your travel request has been approved. Flight booking can now proceed.")
		return fmt.Sprintf(`Travel request approved!

- Request ID: %s
- Candidate: %s
- Reason: %s

Flight booking can now proceed.`, id, orDefault(d.CandidateName, "Candidate"), orDefault(d.ApprovalReason, "Standard approval")), d, nil
	case "reject":
		reason := orDefault(d.ApprovalReason, "Budget constraints")
		n.notify(ctx, d.CandidateName, fmt.Sprintf("Travel request %s rejected", id), "Your travel request was not approved: "+reason)
		return fmt.Sprintf(`Travel request rejected.

- Request ID: %s
- Reason: %s`, id, reason), d, nil
	default:
		return `Travel approval workflow options:

1. Approve travel request
2. Reject travel request
3. Request more information
4. View pending approvals

Please specify the action and travel request ID.`, d, nil
	}
}

type StatusUpdateDetails struct {
	CandidateNames []string `json:"candidate_names"`
	NewStatus      string   `json:"new_status"`
	JobTitle       string   `json:"job_title"`
	UpdateReason   string   `json:"update_reason"`
	Notified       int      `json:"notified"`
}

func (n *WorkflowAutomation) updateStatus(ctx context.Context, message string, _ *workflow.State) (string, any, error) {
	var d StatusUpdateDetails
	if err := n.decode(ctx, "status update extraction", fill(statusUpdatePrompt, map[string]string{"MESSAGE": message}), &d); err != nil {
		return "", nil, err
	}

	if len(d.CandidateNames) == 0 {
		return `I need candidate information to update status:
- Candidate names
- New status (screening, interview, offer, hired, rejected)
- Job title (optional)
- Update reason (optional)

Please provide these details.`, nil, nil
	}

	d.NewStatus = orDefault(d.NewStatus, "screening")
	job := orDefault(d.JobTitle, "Not specified")
	for _, name := range d.CandidateNames {
		body := fmt.Sprintf("Your application status is now: %s.", titleWords(d.NewStatus))
		if n.notify(ctx, name, fmt.Sprintf("Update on your application - %s", job), body) {
			d.Notified++
		}
	}

	return fmt.Sprintf(`Candidate status updated successfully!

- Candidates: %s
- New status: %s
- Job: %s
- Reason: %s

%d candidate(s) updated, %d notified.`, strings.Join(d.CandidateNames, ", "), titleWords(d.NewStatus), job,
		orDefault(d.UpdateReason, "Standard update"), len(d.CandidateNames), d.Notified), d, nil
}

type BulkEmailDetails struct {
	CampaignType        string `json:"campaign_type"`
	TargetGroup         string `json:"target_group"`
	Subject             string `json:"subject"`
	MessageContent      string `json:"message_content"`
	EstimatedRecipients int    `json:"estimated_recipients"`
}

func (n *WorkflowAutomation) bulkEmail(ctx context.Context, message string, _ *workflow.State) (string, any, error) {
	var d BulkEmailDetails
	if err := n.decode(ctx, "bulk email extraction", fill(bulkEmailPrompt, map[string]string{"MESSAGE": message}), &d); err != nil {
		return "", nil, err
	}

	d.CampaignType = orDefault(d.CampaignType, "newsletter")
	d.TargetGroup = orDefault(d.TargetGroup, "all_candidates")
	d.EstimatedRecipients = 50
	if v, ok := estimatedRecipients[d.TargetGroup]; ok {
		d.EstimatedRecipients = v
	}

	return fmt.Sprintf(`Bulk email campaign initiated!

- Campaign type: %s
- Target group: %s
- Estimated recipients: %d
- Subject: %s

Campaign scheduled for delivery. You'll receive a summary report once complete.`,
		titleWords(d.CampaignType), titleWords(d.TargetGroup), d.EstimatedRecipients, orDefault(d.Subject, "Important Update")), d, nil
}

// notify emails a candidate and reports whether delivery succeeded.
func (n *WorkflowAutomation) notify(ctx context.Context, name, subject, body string) bool {
	if blank(name) {
		return false
	}
	to := mailer.AddressFor(name)
	if err := n.mailer.Send(ctx, mailer.Email{To: []string{to}, Subject: subject, Body: body}); err != nil {
		n.logger.Warn("notification email failed", zap.String("recipient", to), zap.Error(err))
		return false
	}
	return true
}
