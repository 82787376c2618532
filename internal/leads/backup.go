package leads

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// Submission outcomes recorded in the backup log.
const (
	OutcomePrimary  = "primary"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// BackupRecord is one line of the local JSONL submission log. Every
// submission attempt lands here regardless of whether the remote sinks
// accepted it.
type BackupRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Lead      Lead      `json:"lead"`
}

// BackupWriter appends submission records to an append-only JSONL file.
type BackupWriter struct {
	mu     sync.Mutex
	path   string
	logger *logging.Logger
}

// NewBackupWriter creates a writer for the given path. Returns nil when the
// path is empty.
func NewBackupWriter(path string, logger *logging.Logger) *BackupWriter {
	if path == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BackupWriter{path: path, logger: logger}
}

// Append writes one record. The file is opened per call so a crashed process
// never holds a partial line.
func (b *BackupWriter) Append(rec BackupRecord) error {
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("leads: marshal backup record: %w", err)
	}

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("leads: open backup file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("leads: write backup record: %w", err)
	}
	return nil
}
