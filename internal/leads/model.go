package leads

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Lead captures the qualification fields gathered over a chat conversation.
type Lead struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	ReferenceNumber string    `json:"reference_number"`
	Name            string    `json:"name"`
	Company         string    `json:"company"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	ProjectType     string    `json:"project_type"`
	Timeline        string    `json:"timeline"`
	Budget          string    `json:"budget"`
	Summary         string    `json:"summary"`
	Score           int       `json:"score"`
	Qualified       bool      `json:"qualified"`
	CreatedAt       time.Time `json:"created_at"`
}

// FieldStatus tracks which qualification fields have been collected.
// Once a field is marked collected the passive extractor leaves it alone;
// only an explicit correction may overwrite it.
type FieldStatus struct {
	Name        bool `json:"name"`
	Company     bool `json:"company"`
	Email       bool `json:"email"`
	Phone       bool `json:"phone"`
	ProjectType bool `json:"project_type"`
	Timeline    bool `json:"timeline"`
	Budget      bool `json:"budget"`
}

// Missing returns the labels of fields not yet collected.
func (s FieldStatus) Missing() []string {
	var out []string
	if !s.Name {
		out = append(out, "name")
	}
	if !s.Company {
		out = append(out, "company")
	}
	if !s.Email {
		out = append(out, "email")
	}
	if !s.Phone {
		out = append(out, "phone")
	}
	if !s.ProjectType {
		out = append(out, "project type")
	}
	if !s.Timeline {
		out = append(out, "timeline")
	}
	if !s.Budget {
		out = append(out, "budget")
	}
	return out
}

// AllCollected reports whether every qualification field has a value.
func (s FieldStatus) AllCollected() bool {
	return len(s.Missing()) == 0
}

// TranscriptEntry is one turn of the conversation attached to a submission.
type TranscriptEntry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateLeadRequest is the payload handed to a repository when a confirmed
// lead is submitted.
type CreateLeadRequest struct {
	SessionID       string            `json:"session_id"`
	ReferenceNumber string            `json:"reference_number"`
	Name            string            `json:"name"`
	Company         string            `json:"company"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	ProjectType     string            `json:"project_type"`
	Timeline        string            `json:"timeline"`
	Budget          string            `json:"budget"`
	Summary         string            `json:"summary"`
	Score           int               `json:"score"`
	Qualified       bool              `json:"qualified"`
	UserAgent       string            `json:"user_agent,omitempty"`
	Referrer        string            `json:"referrer,omitempty"`
	Conversation    []TranscriptEntry `json:"conversation,omitempty"`
}

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable address. The check is
// intentionally loose: one token before @, a dot somewhere in the domain.
func ValidEmail(s string) bool {
	return emailRE.MatchString(strings.TrimSpace(s))
}

// Validate checks the request before it reaches storage.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return ErrMissingSession
	}
	if !ValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// NewReferenceNumber mints a customer-facing reference of the form AMP-XXXXXXXX
// from a timestamp. A reference mints once per conversation and survives
// correction loops.
func NewReferenceNumber(t time.Time) string {
	return "AMP-" + strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
}
