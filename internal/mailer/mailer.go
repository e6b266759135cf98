// Package mailer sends candidate notifications.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Email struct {
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer records messages and logs them instead of delivering them.
type LogMailer struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Email
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(email.To) == 0 {
		return errors.New("email has no recipients")
	}
	for _, to := range email.To {
		if !strings.Contains(to, "@") {
			return fmt.Errorf("invalid recipient %q", to)
		}
	}

	m.mu.Lock()
	m.sent = append(m.sent, email)
	m.mu.Unlock()

	m.logger.Info("email sent",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
	)
	return nil
}

func (m *LogMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

// AddressFor derives a placeholder address from a candidate name until a
// candidate directory is available.
func AddressFor(name string) string {
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	return local + "@example.com"
}

func ApplicationConfirmation(to, name, jobTitle string) Email {
	return Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Application Received - %s", jobTitle),
		Body: fmt.Sprintf("Dear %s,\n\nThank you for your interest in the %s position. "+
			"Our recruitment team will review your application and get back to you within 5-7 business days.\n\n"+
			"Best regards,\nNaviHire Recruitment Team", name, jobTitle),
	}
}

func InterviewInvitation(to, name, jobTitle, date, clock, interviewer, meetingLink string) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nWe are pleased to invite you for an interview for the position of %s.\n\n", name, jobTitle)
	fmt.Fprintf(&b, "Date: %s\nTime: %s\nInterviewer: %s\n", date, clock, interviewer)
	if meetingLink != "" {
		fmt.Fprintf(&b, "Meeting link: %s\n", meetingLink)
	}
	b.WriteString("\nPlease confirm your availability by replying to this email.\n\nBest regards,\nNaviHire Recruitment Team")

	return Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Interview Invitation - %s", jobTitle),
		Body:    b.String(),
	}
}

func StatusUpdate(to, jobTitle, message string) Email {
	if message == "" {
		message = "Thank you for your interest in our company."
	}
	return Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Update on your application - %s", jobTitle),
		Body:    message,
	}
}
