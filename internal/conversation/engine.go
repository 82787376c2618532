package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/leads"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/observability/metrics"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// ErrSessionNotFound is returned for message sends against unknown sessions.
var ErrSessionNotFound = errors.New("conversation: session not found")

// Canned replies for turns that never reach the model.
const (
	greetingText = "Hi! I'm the Amplifyx assistant. We help companies ship AI products fast. What are you looking to build?"

	unavailableText = "Our assistant is temporarily unavailable. Please email us at hello@amplifyx.com.au and we'll get back to you directly."

	rateLimitText = "You're sending messages a little too quickly. Give it a moment and try again."

	rejectedText = "I couldn't process that message. Could you rephrase it?"

	securityText = "I'm here to help you explore how Amplifyx can support your project. What would you like to build?"

	apologyText = "Sorry, I'm having trouble responding right now. Please try again in a moment."

	updatePromptText = "No problem! What would you like to update? Just tell me the correct details."
)

var (
	greetingQuickReplies = []string{
		"AI Automation",
		"Custom AI Chatbots",
		"Rapid Prototyping",
		"AI Strategy Consulting",
		"Technical Assessment",
		"Just Exploring",
	}
	confirmQuickReplies = []string{"✅ Yes, that's correct", "📝 Update details"}
)

// Confirmation replies are classified by substring. Corrective tokens are
// checked first: "incorrect" contains "correct", so the order matters.
var (
	correctiveTokens  = []string{"update", "change", "wrong", "incorrect", "📝"}
	affirmativeTokens = []string{"yes", "correct", "good", "right", "perfect", "✅", "looks good"}
)

// Phrases in a model reply that signal it is presenting the final summary.
var confirmationPhrases = []string{
	"is this correct",
	"is this information correct",
	"is everything correct",
	"if that's everything correct",
	"if that's correct",
	"i'll pass these details",
}

// Reply is one assistant turn delivered to the visitor.
type Reply struct {
	SessionID       string   `json:"session_id"`
	Text            string   `json:"text"`
	Phase           Phase    `json:"phase"`
	QuickReplies    []string `json:"quick_replies,omitempty"`
	ReferenceNumber string   `json:"reference_number,omitempty"`
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	LLM                LLMClient
	Provider           string
	Model              string
	MaxTokens          int32
	Temperature        float32
	HistoryWindow      int
	MessagesPerMinute  int
	MessagesPerSession int

	Augmenter  *Augmenter
	Submitter  *Submitter
	Sessions   *Manager
	Transcript *TranscriptStore
	Policy     MessagePolicy
	Metrics    *metrics.IntakeMetrics
	Logger     *logging.Logger
	Now        func() time.Time
}

// Engine drives the intake conversation: screening, extraction, the model
// round trip, the confirmation state machine, and the submission handoff.
// A nil LLM puts every session into the unavailable phase.
type Engine struct {
	llm        LLMClient
	provider   string
	model      string
	maxTokens  int32
	temp       float32
	window     int
	perMinute  int
	perSession int

	augmenter  *Augmenter
	submitter  *Submitter
	sessions   *Manager
	transcript *TranscriptStore
	policy     MessagePolicy
	metrics    *metrics.IntakeMetrics
	logger     *logging.Logger
	now        func() time.Time
}

// NewEngine creates the conversation engine. Panics when the session manager
// or submitter is missing.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Sessions == nil {
		panic("conversation: engine requires a session manager")
	}
	if cfg.Submitter == nil {
		panic("conversation: engine requires a submitter")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Policy.MaxLength == 0 {
		cfg.Policy = DefaultMessagePolicy()
	}
	return &Engine{
		llm:        cfg.LLM,
		provider:   cfg.Provider,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		temp:       cfg.Temperature,
		window:     cfg.HistoryWindow,
		perMinute:  cfg.MessagesPerMinute,
		perSession: cfg.MessagesPerSession,
		augmenter:  cfg.Augmenter,
		submitter:  cfg.Submitter,
		sessions:   cfg.Sessions,
		transcript: cfg.Transcript,
		policy:     cfg.Policy,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.WithComponent("engine"),
		now:        cfg.Now,
	}
}

// StartSession opens a new conversation and returns the greeting.
func (e *Engine) StartSession(ctx context.Context, userAgent, referrer string) Reply {
	sess := e.sessions.Create(userAgent, referrer)

	sess.lock()
	defer sess.unlock()

	if sess.phase == PhaseUnavailable {
		e.appendAssistant(ctx, sess, unavailableText)
		return Reply{SessionID: sess.ID, Text: unavailableText, Phase: PhaseUnavailable}
	}

	e.appendAssistant(ctx, sess, greetingText)
	return Reply{
		SessionID:    sess.ID,
		Text:         greetingText,
		Phase:        sess.phase,
		QuickReplies: greetingQuickReplies,
	}
}

// HandleMessage processes one visitor message and returns the assistant turn.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, message string) (Reply, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return Reply{}, ErrSessionNotFound
	}

	sess.lock()
	defer sess.unlock()

	if sess.phase == PhaseUnavailable {
		return e.reply(sess, unavailableText), nil
	}

	// Screening runs before the rate limiter so refused messages never
	// count against the visitor's budget.
	if reason, rejected := e.policy.Check(message); rejected {
		e.metrics.ObserveMessage(string(sess.phase), "rejected")
		e.logger.Info("message rejected", "session_id", sess.ID, "reason", reason)
		return e.reply(sess, rejectedText), nil
	}
	if guard := ScanForPromptInjection(message); guard.Blocked {
		e.metrics.ObserveMessage(string(sess.phase), "blocked")
		e.logger.Warn("prompt injection blocked",
			"session_id", sess.ID, "score", guard.Score, "reasons", strings.Join(guard.Reasons, ","))
		return e.reply(sess, securityText), nil
	} else if guard.Score > 0 {
		// Warn territory: strip the markers but let the message through.
		message = SanitizeForLLM(message)
		e.logger.Info("message sanitized",
			"session_id", sess.ID, "score", guard.Score, "reasons", strings.Join(guard.Reasons, ","))
	}

	if !sess.allowMessage(e.now(), e.perMinute, e.perSession) {
		e.metrics.ObserveMessage(string(sess.phase), "rate_limited")
		return e.reply(sess, rateLimitText), nil
	}

	if sess.phase == PhaseSubmitted {
		text := fmt.Sprintf("Your details are already with our team (reference %s). They'll be in touch shortly!", sess.lead.ReferenceNumber)
		return e.reply(sess, text), nil
	}

	e.appendUser(ctx, sess, message)

	var out Reply
	switch sess.phase {
	case PhaseConfirming:
		out = e.handleConfirming(ctx, sess, message)
	case PhaseUpdating:
		out = e.handleUpdating(ctx, sess, message)
	default:
		out = e.handleCollecting(ctx, sess, message)
	}

	e.metrics.ObserveMessage(string(out.Phase), "ok")
	return out, nil
}

// History returns a copy of the session transcript.
func (e *Engine) History(sessionID string) ([]Turn, bool) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	sess.lock()
	defer sess.unlock()
	return sess.snapshotHistory(), true
}

func (e *Engine) handleConfirming(ctx context.Context, sess *Session, message string) Reply {
	lower := strings.ToLower(message)

	if containsAny(lower, correctiveTokens) {
		sess.phase = PhaseUpdating
		e.appendAssistant(ctx, sess, updatePromptText)
		return e.reply(sess, updatePromptText)
	}

	if containsAny(lower, affirmativeTokens) {
		return e.submit(ctx, sess)
	}

	// Ambiguous. The visitor may have typed the correction directly instead
	// of saying "update", so try to pull a field out of the message first.
	var text string
	if up := ExtractAnyField(message); !up.Empty() {
		ApplyUpdate(&sess.lead, &sess.status, up)
		text = "Got it, here's what I have now:\n\n" + summarizeLead(&sess.lead) +
			"\n\nIs everything correct?"
	} else {
		text = "Just to be sure before I pass this on:\n\n" + summarizeLead(&sess.lead) +
			"\n\nIs this information correct?"
	}
	e.appendAssistant(ctx, sess, text)
	out := e.reply(sess, text)
	out.QuickReplies = confirmQuickReplies
	return out
}

func (e *Engine) handleUpdating(ctx context.Context, sess *Session, message string) Reply {
	up := ExtractAnyField(message)
	if up.Empty() {
		text := "I couldn't tell which detail you'd like to change. Could you tell me the field and the new value, like \"my email is name@company.com\"?"
		e.appendAssistant(ctx, sess, text)
		return e.reply(sess, text)
	}

	ApplyUpdate(&sess.lead, &sess.status, up)
	sess.phase = PhaseConfirming

	text := "Got it, here's what I have now:\n\n" + summarizeLead(&sess.lead) +
		"\n\nIs everything correct?"
	e.appendAssistant(ctx, sess, text)
	out := e.reply(sess, text)
	out.QuickReplies = confirmQuickReplies
	return out
}

func (e *Engine) handleCollecting(ctx context.Context, sess *Session, message string) Reply {
	if e.llm == nil {
		sess.phase = PhaseUnavailable
		return e.reply(sess, unavailableText)
	}

	up := ExtractFields(message, sess.status)
	ApplyUpdate(&sess.lead, &sess.status, up)

	aug := e.augmenter.Augment(ctx, message)
	if aug.Context != "" {
		e.metrics.ObserveRetrieval("hit")
	} else {
		e.metrics.ObserveRetrieval("skip")
	}

	system := []string{systemPrompt}
	if aug.Context != "" {
		system = append(system, aug.Context)
	}
	// The hint goes in every third turn so the model steers without nagging.
	if hint := buildMissingFieldsHint(sess.status); hint != "" && sess.messageCount%3 == 0 {
		system = append(system, hint)
	}

	start := e.now()
	resp, err := e.llm.Complete(ctx, LLMRequest{
		Model:       e.model,
		System:      system,
		Messages:    chatWindow(sess.history, e.window),
		MaxTokens:   e.maxTokens,
		Temperature: e.temp,
	})
	e.metrics.ObserveLLMLatency(e.provider, e.now().Sub(start).Seconds())
	if err != nil {
		e.logger.Error("model completion failed", "session_id", sess.ID, "error", err)
		e.appendAssistant(ctx, sess, apologyText)
		return e.reply(sess, apologyText)
	}

	sd, text := ParseStructuredData(resp.Text)
	if sd != nil {
		sd.Apply(&sess.lead, &sess.status)
		if sd.Score > 0 {
			sess.modelScore = int(sd.Score)
		}
	}

	out := e.reply(sess, text)
	if replySignalsConfirmation(text) {
		// The hidden block sometimes goes missing; recover the fields from
		// the visitor's own messages before showing the summary.
		if sd == nil {
			ApplyUpdate(&sess.lead, &sess.status, ExtractFromTranscript(sess.history))
		}
		if sess.lead.ReferenceNumber == "" {
			sess.lead.ReferenceNumber = leads.NewReferenceNumber(e.now())
		}
		sess.phase = PhaseConfirming
		out.Phase = PhaseConfirming
		out.ReferenceNumber = sess.lead.ReferenceNumber
		out.QuickReplies = confirmQuickReplies
	}

	e.appendAssistant(ctx, sess, text)
	return out
}

// submit hands the lead off and moves the session to submitted. The phase
// advances even when every sink failed: the backup log has the record and
// re-running the pipeline would double-submit through the webhook.
func (e *Engine) submit(ctx context.Context, sess *Session) Reply {
	res, err := e.submitter.Submit(ctx, sess)
	if err != nil {
		e.logger.Error("lead submission rejected", "session_id", sess.ID, "error", err)
		sess.phase = PhaseUpdating
		text := "Hmm, that email address doesn't look right. Could you give me the correct one?"
		e.appendAssistant(ctx, sess, text)
		return e.reply(sess, text)
	}

	sess.phase = PhaseSubmitted
	if res.Lead != nil {
		sess.lead = *res.Lead
	}
	sess.lead.ReferenceNumber = res.ReferenceNumber

	var text string
	switch {
	case res.Duplicate:
		text = fmt.Sprintf("Your details are already with our team (reference %s). They'll be in touch shortly!", res.ReferenceNumber)
	case res.Lead != nil && res.Lead.Qualified:
		text = fmt.Sprintf("Perfect, you're all set! 🎉 Your reference number is %s. Our team will reach out to you shortly to discuss next steps.", res.ReferenceNumber)
	default:
		text = fmt.Sprintf("Thanks for sharing all that! Your reference number is %s. We've recorded your details and our team will be in touch if there's a good fit.", res.ReferenceNumber)
	}
	e.appendAssistant(ctx, sess, text)

	out := e.reply(sess, text)
	out.ReferenceNumber = res.ReferenceNumber
	return out
}

func (e *Engine) reply(sess *Session, text string) Reply {
	return Reply{SessionID: sess.ID, Text: text, Phase: sess.phase}
}

func (e *Engine) appendUser(ctx context.Context, sess *Session, text string) {
	now := e.now()
	sess.appendTurn(ChatRoleUser, text, now)
	e.archive(ctx, sess, ChatRoleUser, text, now)
}

func (e *Engine) appendAssistant(ctx context.Context, sess *Session, text string) {
	now := e.now()
	sess.appendTurn(ChatRoleAssistant, text, now)
	e.archive(ctx, sess, ChatRoleAssistant, text, now)
}

// archive mirrors the turn into Redis. Best effort: the in-memory history is
// the source of truth for the live conversation.
func (e *Engine) archive(ctx context.Context, sess *Session, role, text string, now time.Time) {
	if e.transcript == nil {
		return
	}
	err := e.transcript.Append(ctx, sess.ID, TranscriptMessage{
		Role:      role,
		Body:      text,
		Phase:     string(sess.phase),
		Timestamp: now,
	})
	if err != nil {
		e.logger.Warn("transcript archive failed", "session_id", sess.ID, "error", err)
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func replySignalsConfirmation(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// summarizeLead renders the collected fields the way the model presents them,
// used when the engine has to re-show the summary itself.
func summarizeLead(lead *leads.Lead) string {
	var b strings.Builder
	writeLine := func(emoji, label, value string) {
		if value == "" {
			value = "—"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", emoji, label, value)
	}
	writeLine("👤", "Name", lead.Name)
	writeLine("🏢", "Company", lead.Company)
	writeLine("📧", "Email", lead.Email)
	writeLine("📱", "Phone", lead.Phone)
	writeLine("🛠", "Project", lead.ProjectType)
	writeLine("📅", "Timeline", lead.Timeline)
	writeLine("💰", "Budget", lead.Budget)
	return strings.TrimRight(b.String(), "\n")
}
