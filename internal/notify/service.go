package notify

import (
	"context"
	"fmt"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// Lead temperature tiers used in alert subjects. The team triages from the
// subject line alone, so the label leads.
const (
	hotThreshold       = 85
	warmThreshold      = 70
	qualifiedThreshold = 50
)

// Service sends lead alerts to the team inbox.
type Service struct {
	email     EmailSender
	recipient string
	logger    *logging.Logger
}

// NewService creates a notification service. A nil sender or empty recipient
// yields a service that silently skips sends.
func NewService(email EmailSender, recipient string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:     email,
		recipient: recipient,
		logger:    logger,
	}
}

// NotifyLead emails the team about a submitted lead.
func (s *Service) NotifyLead(ctx context.Context, lead *leads.Lead) error {
	if s == nil || s.email == nil || s.recipient == "" {
		return nil
	}

	emoji, label := leadTemperature(lead.Score)
	name := lead.Name
	if name == "" {
		name = "Unknown"
	}
	subjectName := name
	if lead.Company != "" {
		subjectName = fmt.Sprintf("%s - %s", name, lead.Company)
	}
	subject := fmt.Sprintf("%s %s Lead: %s (Score: %d)", emoji, label, subjectName, lead.Score)

	msg := EmailMessage{
		To:      s.recipient,
		Subject: subject,
		Body:    plainLeadBody(lead, label),
		HTML:    htmlLeadBody(lead, emoji, label),
	}

	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send lead alert: %w", err)
	}

	s.logger.Info("lead alert sent",
		"reference", lead.ReferenceNumber, "score", lead.Score, "tier", label)
	return nil
}

func leadTemperature(score int) (emoji, label string) {
	switch {
	case score >= hotThreshold:
		return "🔥", "HOT"
	case score >= warmThreshold:
		return "⚡", "WARM"
	case score >= qualifiedThreshold:
		return "✨", "QUALIFIED"
	default:
		return "❄️", "COLD"
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func plainLeadBody(lead *leads.Lead, label string) string {
	return fmt.Sprintf(`A new %s lead just came through the website assistant.

Reference: %s
Name: %s
Company: %s
Email: %s
Phone: %s
Project: %s
Timeline: %s
Budget: %s
Score: %d

Summary:
%s

— Amplifyx Assistant`,
		label,
		lead.ReferenceNumber,
		orDash(lead.Name), orDash(lead.Company), orDash(lead.Email), orDash(lead.Phone),
		orDash(lead.ProjectType), orDash(lead.Timeline), orDash(lead.Budget),
		lead.Score,
		orDash(lead.Summary),
	)
}

func htmlLeadBody(lead *leads.Lead, emoji, label string) string {
	row := func(k, v string) string {
		return fmt.Sprintf(`<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`, k, orDash(v))
	}
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #6366f1;">%s %s Lead (Score: %d)</h2>
<table style="border-collapse: collapse; margin: 20px 0;">
%s%s%s%s%s%s%s%s
</table>
<p style="background: #eef2ff; padding: 12px; border-radius: 8px; border-left: 4px solid #6366f1;">
  %s
</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— Amplifyx Assistant</p>
</div>`,
		emoji, label, lead.Score,
		row("Reference", lead.ReferenceNumber),
		row("Name", lead.Name),
		row("Company", lead.Company),
		row("Email", lead.Email),
		row("Phone", lead.Phone),
		row("Project", lead.ProjectType),
		row("Timeline", lead.Timeline),
		row("Budget", lead.Budget),
		orDash(lead.Summary),
	)
}
