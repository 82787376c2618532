package conversation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

type failingRepo struct{}

func (failingRepo) Create(context.Context, *leads.CreateLeadRequest) (*leads.Lead, error) {
	return nil, errors.New("db down")
}

func (failingRepo) GetByID(context.Context, string) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}

func (failingRepo) GetByReference(context.Context, string) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []*leads.Lead
	err   error
}

func (n *recordingNotifier) NotifyLead(_ context.Context, lead *leads.Lead) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, lead)
	return n.err
}

func confirmedSession(t *testing.T) *Session {
	t.Helper()
	mgr := NewManager(ManagerConfig{}, PhaseCollecting)
	sess := mgr.Create("agent", "https://amplifyx.com.au")
	sess.phase = PhaseConfirming
	sess.lead = leads.Lead{
		ReferenceNumber: "AMP-TEST1",
		Name:            "Adrian",
		Company:         "OnCore Services",
		Email:           "adrian@example.com",
		Phone:           "0431481227",
		ProjectType:     "AI chatbot for customer support",
		Timeline:        "ASAP",
		Budget:          "$100k",
	}
	sess.appendTurn(ChatRoleUser, "My name is Adrian", time.Now())
	return sess
}

func TestSubmitterPrimaryPath(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	notifier := &recordingNotifier{}
	backupPath := filepath.Join(t.TempDir(), "backup.jsonl")

	sub := NewSubmitter(SubmitterConfig{
		Repo:     repo,
		Backup:   leads.NewBackupWriter(backupPath, logging.Default()),
		Notifier: notifier,
		Logger:   logging.Default(),
	})

	sess := confirmedSession(t)
	res, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.True(t, res.Persisted)
	assert.Equal(t, "AMP-TEST1", res.ReferenceNumber)
	require.NotNil(t, res.Lead)
	assert.Equal(t, 100, res.Lead.Score)
	assert.True(t, res.Lead.Qualified)

	stored, err := repo.GetByReference(context.Background(), "AMP-TEST1")
	require.NoError(t, err)
	assert.Equal(t, "Adrian", stored.Name)
	require.Len(t, notifier.calls, 1)

	f, err := os.Open(backupPath)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var rec leads.BackupRecord
	require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
	assert.Equal(t, leads.OutcomePrimary, rec.Outcome)
	assert.Empty(t, rec.Error)
}

func TestSubmitterDuplicateLatch(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	sub := NewSubmitter(SubmitterConfig{Repo: repo, Logger: logging.Default()})

	sess := confirmedSession(t)
	first, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, "AMP-TEST1", second.ReferenceNumber)
}

func TestSubmitterConcurrentSubmitOnce(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	sub := NewSubmitter(SubmitterConfig{Repo: repo, Logger: logging.Default()})
	sess := confirmedSession(t)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		duplicates int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := sub.Submit(context.Background(), sess)
			assert.NoError(t, err)
			if res.Duplicate {
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 49, duplicates)
}

func TestSubmitterFallsBackToSheets(t *testing.T) {
	var posted sheetPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	backupPath := filepath.Join(t.TempDir(), "backup.jsonl")
	sub := NewSubmitter(SubmitterConfig{
		Repo:     failingRepo{},
		Fallback: leads.NewSheetsWebhook(srv.URL, logging.Default()),
		Backup:   leads.NewBackupWriter(backupPath, logging.Default()),
		Logger:   logging.Default(),
	})

	sess := confirmedSession(t)
	res, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Equal(t, "AMP-TEST1", posted.ReferenceNumber)

	f, err := os.Open(backupPath)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var rec leads.BackupRecord
	require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
	assert.Equal(t, leads.OutcomeFallback, rec.Outcome)
	assert.Contains(t, rec.Error, "db down")
}

type sheetPayload struct {
	ReferenceNumber string `json:"referenceNumber"`
}

func TestSubmitterWebhookFailureRecordsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	backupPath := filepath.Join(t.TempDir(), "backup.jsonl")
	sub := NewSubmitter(SubmitterConfig{
		Repo:     failingRepo{},
		Fallback: leads.NewSheetsWebhook(srv.URL, logging.Default()),
		Backup:   leads.NewBackupWriter(backupPath, logging.Default()),
		Logger:   logging.Default(),
	})

	sess := confirmedSession(t)
	res, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, res.Persisted)

	f, err := os.Open(backupPath)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var rec leads.BackupRecord
	require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
	assert.Equal(t, leads.OutcomeFailed, rec.Outcome)
	assert.Contains(t, rec.Error, "db down")
}

func TestSubmitterAllSinksFail(t *testing.T) {
	backupPath := filepath.Join(t.TempDir(), "backup.jsonl")
	sub := NewSubmitter(SubmitterConfig{
		Repo:   failingRepo{},
		Backup: leads.NewBackupWriter(backupPath, logging.Default()),
		Logger: logging.Default(),
	})

	sess := confirmedSession(t)
	res, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, res.Persisted)

	f, err := os.Open(backupPath)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var rec leads.BackupRecord
	require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
	assert.Equal(t, leads.OutcomeFailed, rec.Outcome)
	assert.Equal(t, "Adrian", rec.Lead.Name)
}

func TestSubmitterInvalidEmail(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	sub := NewSubmitter(SubmitterConfig{Repo: repo, Logger: logging.Default()})

	sess := confirmedSession(t)
	sess.lead.Email = "not an email"

	_, err := sub.Submit(context.Background(), sess)
	require.Error(t, err)
	assert.ErrorIs(t, err, leads.ErrInvalidEmail)

	_, err = repo.GetByReference(context.Background(), "AMP-TEST1")
	assert.ErrorIs(t, err, leads.ErrLeadNotFound)
}

func TestSubmitterSkipsNotifyBelowThreshold(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	notifier := &recordingNotifier{}
	sub := NewSubmitter(SubmitterConfig{Repo: repo, Notifier: notifier, Logger: logging.Default()})

	sess := confirmedSession(t)
	sess.lead.Timeline = "Just researching"
	sess.lead.Budget = ""
	sess.lead.Phone = ""
	sess.lead.ProjectType = ""

	res, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)
	assert.Less(t, res.Lead.Score, leads.NotifyThreshold)
	assert.Empty(t, notifier.calls)
}

func TestTranscriptEntriesCapped(t *testing.T) {
	base := time.Now()
	history := make([]Turn, 0, submissionTurnLimit+5)
	for i := 0; i < submissionTurnLimit+5; i++ {
		history = append(history, Turn{Role: ChatRoleUser, Text: fmt.Sprintf("turn %d", i), Timestamp: base})
	}

	entries := transcriptEntries(history)
	require.Len(t, entries, submissionTurnLimit)
	assert.Equal(t, "turn 5", entries[0].Text)
	assert.Equal(t, fmt.Sprintf("turn %d", submissionTurnLimit+4), entries[len(entries)-1].Text)
}

func TestSubmitterModelScoreWins(t *testing.T) {
	repo := leads.NewInMemoryRepository()
	sub := NewSubmitter(SubmitterConfig{Repo: repo, Logger: logging.Default()})

	sess := confirmedSession(t)
	sess.modelScore = 42

	res, err := sub.Submit(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 42, res.Lead.Score)
	assert.False(t, res.Lead.Qualified)
}
