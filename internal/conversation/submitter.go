package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/observability/metrics"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// LeadNotifier alerts the team about a submitted lead. Implementations must
// tolerate being called for every qualifying submission exactly once.
type LeadNotifier interface {
	NotifyLead(ctx context.Context, lead *leads.Lead) error
}

// SubmissionResult reports what happened to a confirmed lead.
type SubmissionResult struct {
	Lead            *leads.Lead
	ReferenceNumber string
	Duplicate       bool
	Persisted       bool
}

// Submitter pushes a confirmed lead through the persistence pipeline:
// primary repository, sheets fallback, local backup log, team notification.
// The session latch guarantees each conversation submits at most once.
type Submitter struct {
	repo     leads.Repository
	fallback *leads.SheetsWebhook
	backup   *leads.BackupWriter
	notifier LeadNotifier
	metrics  *metrics.IntakeMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// SubmitterConfig wires the sinks. Repo is required; everything else
// degrades gracefully when absent.
type SubmitterConfig struct {
	Repo     leads.Repository
	Fallback *leads.SheetsWebhook
	Backup   *leads.BackupWriter
	Notifier LeadNotifier
	Metrics  *metrics.IntakeMetrics
	Logger   *logging.Logger
	Now      func() time.Time
}

// NewSubmitter creates a submitter. Panics when no repository is configured.
func NewSubmitter(cfg SubmitterConfig) *Submitter {
	if cfg.Repo == nil {
		panic("conversation: submitter requires a lead repository")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Submitter{
		repo:     cfg.Repo,
		fallback: cfg.Fallback,
		backup:   cfg.Backup,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.WithComponent("submitter"),
		now:      cfg.Now,
	}
}

// Submit runs the pipeline for the session's lead. The caller must hold the
// session lock. The latch is taken before any I/O, so a second confirmation
// racing the first returns Duplicate without touching the sinks.
func (s *Submitter) Submit(ctx context.Context, sess *Session) (SubmissionResult, error) {
	if sess.Submitted() {
		s.metrics.ObserveSubmission("duplicate")
		return SubmissionResult{ReferenceNumber: sess.lead.ReferenceNumber, Duplicate: true}, nil
	}

	lead := sess.lead
	lead.SessionID = sess.ID
	if lead.ReferenceNumber == "" {
		lead.ReferenceNumber = leads.NewReferenceNumber(s.now())
	}

	score := sess.modelScore
	if score <= 0 {
		score = leads.Score(&lead)
	}
	lead.Score = score
	lead.Qualified = leads.Qualified(score)

	req := &leads.CreateLeadRequest{
		SessionID:       lead.SessionID,
		ReferenceNumber: lead.ReferenceNumber,
		Name:            lead.Name,
		Company:         lead.Company,
		Email:           lead.Email,
		Phone:           lead.Phone,
		ProjectType:     lead.ProjectType,
		Timeline:        lead.Timeline,
		Budget:          lead.Budget,
		Summary:         lead.Summary,
		Score:           lead.Score,
		Qualified:       lead.Qualified,
		UserAgent:       sess.UserAgent,
		Referrer:        sess.Referrer,
		Conversation:    transcriptEntries(sess.history),
	}

	// Validation runs before the latch. A bad email sends the visitor back
	// to the correction loop, and a consumed latch would lock them out of
	// ever submitting the fixed details.
	if err := req.Validate(); err != nil {
		s.metrics.ObserveSubmission("failed")
		s.record(leads.OutcomeFailed, err, &lead)
		return SubmissionResult{ReferenceNumber: lead.ReferenceNumber}, fmt.Errorf("conversation: submit lead: %w", err)
	}

	if !sess.BeginSubmission() {
		s.metrics.ObserveSubmission("duplicate")
		return SubmissionResult{ReferenceNumber: lead.ReferenceNumber, Duplicate: true}, nil
	}

	stored, err := s.repo.Create(ctx, req)
	outcome := leads.OutcomePrimary
	if err != nil {
		s.logger.Error("primary lead store failed", "reference", lead.ReferenceNumber, "error", err)
		// No webhook configured means nothing caught the lead: the backup
		// record must say failed so an operator knows to re-process it.
		outcome = leads.OutcomeFailed
		if s.fallback != nil {
			if fbErr := s.fallback.Submit(ctx, &lead); fbErr != nil {
				s.logger.Error("sheets fallback failed", "reference", lead.ReferenceNumber, "error", fbErr)
			} else {
				outcome = leads.OutcomeFallback
			}
		}
	}
	if stored == nil {
		stored = &lead
	}

	s.metrics.ObserveSubmission(outcome)
	s.record(outcome, recordedError(outcome, err), stored)

	if s.notifier != nil && stored.Score >= leads.NotifyThreshold {
		if nErr := s.notifier.NotifyLead(ctx, stored); nErr != nil {
			s.logger.Warn("lead notification failed", "reference", stored.ReferenceNumber, "error", nErr)
		}
	}

	s.logger.Info("lead submitted",
		"reference", stored.ReferenceNumber,
		"score", stored.Score,
		"qualified", stored.Qualified,
		"outcome", outcome,
	)

	return SubmissionResult{
		Lead:            stored,
		ReferenceNumber: stored.ReferenceNumber,
		Persisted:       outcome != leads.OutcomeFailed,
	}, nil
}

func (s *Submitter) record(outcome string, cause error, lead *leads.Lead) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	rec := leads.BackupRecord{
		Timestamp: s.now().UTC(),
		Outcome:   outcome,
		Error:     msg,
		Lead:      *lead,
	}
	if err := s.backup.Append(rec); err != nil {
		s.logger.Error("backup append failed", "reference", lead.ReferenceNumber, "error", err)
	}
}

func recordedError(outcome string, primaryErr error) error {
	if outcome == leads.OutcomePrimary {
		return nil
	}
	return primaryErr
}

// submissionTurnLimit caps the conversation history attached to a lead
// record. Long sessions keep their most recent turns.
const submissionTurnLimit = 20

func transcriptEntries(history []Turn) []leads.TranscriptEntry {
	if len(history) > submissionTurnLimit {
		history = history[len(history)-submissionTurnLimit:]
	}
	out := make([]leads.TranscriptEntry, 0, len(history))
	for _, t := range history {
		out = append(out, leads.TranscriptEntry{Role: t.Role, Text: t.Text, Timestamp: t.Timestamp})
	}
	return out
}
