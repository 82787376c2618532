package conversation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
)

// Phase is the conversation lifecycle state.
type Phase string

const (
	// PhaseCollecting gathers qualification fields turn by turn.
	PhaseCollecting Phase = "collecting"
	// PhaseConfirming shows the summary and waits for a yes or a correction.
	PhaseConfirming Phase = "confirming"
	// PhaseUpdating waits for the corrected value after the visitor flagged
	// something wrong.
	PhaseUpdating Phase = "updating"
	// PhaseSubmitted is terminal for intake; the lead has been handed off.
	PhaseSubmitted Phase = "submitted"
	// PhaseUnavailable means no model backend is configured. Terminal.
	PhaseUnavailable Phase = "unavailable"
)

// Session is the full per-conversation state. All mutation happens under mu,
// held by the engine for the duration of a turn, so concurrent messages to
// the same session serialize.
type Session struct {
	ID        string
	CreatedAt time.Time
	UserAgent string
	Referrer  string

	mu           sync.Mutex
	phase        Phase
	lead         leads.Lead
	status       leads.FieldStatus
	modelScore   int
	history      []Turn
	lastActivity time.Time
	messageCount int
	recent       []time.Time

	submitted atomic.Bool
}

func (s *Session) lock()   { s.mu.Lock() }
func (s *Session) unlock() { s.mu.Unlock() }

// BeginSubmission flips the submission latch. Only the first caller gets
// true; every subsequent caller sees an already-latched session. The latch
// never resets, which is what makes submission exactly-once per conversation.
func (s *Session) BeginSubmission() bool {
	return s.submitted.CompareAndSwap(false, true)
}

// Submitted reports whether the latch has been taken.
func (s *Session) Submitted() bool {
	return s.submitted.Load()
}

// allowMessage applies the per-minute sliding window and the session cap.
// Rejected messages are not recorded against either limit.
func (s *Session) allowMessage(now time.Time, perMinute, perSession int) bool {
	if perSession > 0 && s.messageCount >= perSession {
		return false
	}
	if perMinute > 0 {
		cutoff := now.Add(-time.Minute)
		kept := s.recent[:0]
		for _, t := range s.recent {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		s.recent = kept
		if len(s.recent) >= perMinute {
			return false
		}
		s.recent = append(s.recent, now)
	}
	s.messageCount++
	return true
}

func (s *Session) appendTurn(role, text string, now time.Time) {
	s.history = append(s.history, Turn{Role: role, Text: text, Timestamp: now})
}

// snapshotHistory copies the history for use outside the session lock.
func (s *Session) snapshotHistory() []Turn {
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// ManagerConfig tunes session lifecycle behavior.
type ManagerConfig struct {
	IdleTimeout time.Duration
	Now         func() time.Time
}

// Manager owns the in-memory session table. Sessions idle past the timeout
// are replaced with a fresh session under the same ID on next access, so a
// returning visitor silently starts over.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	now         func() time.Time
	initial     Phase
}

// NewManager creates a session manager. initialPhase is PhaseCollecting in
// normal operation and PhaseUnavailable when no model backend exists.
func NewManager(cfg ManagerConfig, initialPhase Phase) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		idleTimeout: cfg.IdleTimeout,
		now:         cfg.Now,
		initial:     initialPhase,
	}
}

// Create opens a new session.
func (m *Manager) Create(userAgent, referrer string) *Session {
	now := m.now()
	sess := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		UserAgent:    userAgent,
		Referrer:     referrer,
		phase:        m.initial,
		lastActivity: now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess
}

// Get returns the session for id, applying idle expiry: a session quiet for
// longer than the timeout is swapped for a fresh one with the same ID.
func (m *Manager) Get(id string) (*Session, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	if now.Sub(sess.lastActivity) > m.idleTimeout {
		fresh := &Session{
			ID:           sess.ID,
			CreatedAt:    now,
			UserAgent:    sess.UserAgent,
			Referrer:     sess.Referrer,
			phase:        m.initial,
			lastActivity: now,
		}
		m.sessions[id] = fresh
		return fresh, true
	}

	sess.lastActivity = now
	return sess, true
}
