package notification

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log"

	"darkGuardAPI/internal/types/subscription"

	"github.com/resend/resend-go/v3"
)

//go:embed reminder_email.html
var reminderEmail string

var reminderTemplate = template.Must(template.New("reminder").Parse(reminderEmail))

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailService sends reminders through Resend. Without an API key it only
// logs what it would have sent.
type EmailService struct {
	emails emailSender
	from   string
	domain string
}

func NewEmailService(apiKey, from, domain string) *EmailService {
	s := &EmailService{from: from, domain: domain}
	if apiKey == "" {
		log.Println("[Email] RESEND_API_KEY is missing. Falling back to mock email.")
		return s
	}
	s.emails = resend.NewClient(apiKey).Emails
	return s
}

type emailData struct {
	Title        string
	Body         string
	DashboardURL string
	Plan         subscription.Plan
	ExpiryDate   string
}

func (s *EmailService) SendReminder(ctx context.Context, to string, r Reminder) error {
	if s.emails == nil {
		log.Printf("[Email] MOCK to %s: %s | %s", to, r.Title(), r.Body())
		return nil
	}

	var buf bytes.Buffer
	err := reminderTemplate.Execute(&buf, emailData{
		Title:        r.Title(),
		Body:         r.Body(),
		DashboardURL: s.domain + "/dashboard?edit=" + r.Plan.ID,
		Plan:         r.Plan,
		ExpiryDate:   r.Plan.ExpiryDate.Format(subscription.DateLayout),
	})
	if err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}

	sent, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: r.Title(),
		Html:    buf.String(),
		Text:    r.Body(),
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}

	log.Printf("[Email] Sent reminder to %s via Resend. ID: %s", to, sent.Id)
	return nil
}
