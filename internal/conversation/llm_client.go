package conversation

import (
	"context"
	"time"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one exchange in the session history, retained with its timestamp so
// transcripts can be archived and attached to submissions.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// chatWindow converts the most recent turns into chat messages for the model.
// window <= 0 means no trimming.
func chatWindow(history []Turn, window int) []ChatMessage {
	turns := history
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	out := make([]ChatMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, ChatMessage{Role: t.Role, Content: t.Text})
	}
	return out
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
