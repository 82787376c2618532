package leads

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

func TestBackupWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.jsonl")
	w := NewBackupWriter(path, logging.Default())

	recs := []BackupRecord{
		{Timestamp: time.Now().UTC(), Outcome: OutcomePrimary, Lead: Lead{ReferenceNumber: "AMP-1"}},
		{Timestamp: time.Now().UTC(), Outcome: OutcomeFailed, Error: "db down", Lead: Lead{ReferenceNumber: "AMP-2"}},
	}
	for _, rec := range recs {
		if err := w.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer f.Close()

	var lines []BackupRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec BackupRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, rec)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Lead.ReferenceNumber != "AMP-1" || lines[1].Outcome != OutcomeFailed {
		t.Fatalf("records out of order or corrupted: %+v", lines)
	}
	if lines[1].Error != "db down" {
		t.Fatalf("error detail lost: %+v", lines[1])
	}
}

func TestBackupWriterNil(t *testing.T) {
	var w *BackupWriter
	if err := w.Append(BackupRecord{}); err != nil {
		t.Fatalf("nil writer should be a no-op, got %v", err)
	}
	if NewBackupWriter("", nil) != nil {
		t.Fatal("empty path should produce nil writer")
	}
}
