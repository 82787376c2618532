package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// SheetsWebhook posts leads to a Google Apps Script endpoint backing a
// spreadsheet. It is the fallback sink when the database write fails, so a
// failure here is logged and swallowed by callers.
type SheetsWebhook struct {
	url    string
	client *http.Client
	logger *logging.Logger
}

// NewSheetsWebhook creates a webhook client. Returns nil when no URL is
// configured so call sites can nil-check instead of branching on config.
func NewSheetsWebhook(url string, logger *logging.Logger) *SheetsWebhook {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetsWebhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// sheetRow is the flat record the spreadsheet script expects. Missing fields
// post as empty strings so columns stay aligned.
type sheetRow struct {
	Timestamp       string `json:"timestamp"`
	ReferenceNumber string `json:"referenceNumber"`
	Name            string `json:"name"`
	Company         string `json:"company"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ProjectType     string `json:"projectType"`
	Timeline        string `json:"timeline"`
	Budget          string `json:"budget"`
	Score           int    `json:"score"`
	Qualified       bool   `json:"qualified"`
	SessionID       string `json:"sessionId"`
}

// Submit posts one lead. The webhook accepts anything with a 2xx status.
func (w *SheetsWebhook) Submit(ctx context.Context, lead *Lead) error {
	if w == nil {
		return nil
	}

	row := sheetRow{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ReferenceNumber: lead.ReferenceNumber,
		Name:            lead.Name,
		Company:         lead.Company,
		Email:           lead.Email,
		Phone:           lead.Phone,
		ProjectType:     lead.ProjectType,
		Timeline:        lead.Timeline,
		Budget:          lead.Budget,
		Score:           lead.Score,
		Qualified:       lead.Qualified,
		SessionID:       lead.SessionID,
	}

	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("leads: marshal sheet row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("leads: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("leads: webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("leads: webhook returned status %d", resp.StatusCode)
	}

	w.logger.Info("lead posted to sheets webhook", "reference", lead.ReferenceNumber)
	return nil
}
