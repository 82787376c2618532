package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var llmTracer = otel.Tracer("amplifyx.internal.conversation.llm")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAILLMClient implements LLMClient using the OpenAI chat completions API.
type OpenAILLMClient struct {
	client chatClient
	model  string
}

// NewOpenAILLMClient wraps an OpenAI client. Tests inject a fake chatClient.
func NewOpenAILLMClient(client chatClient, model string) *OpenAILLMClient {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAILLMClient{client: client, model: model}
}

// Complete sends a completion request to OpenAI and returns the response.
func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, span := llmTracer.Start(ctx, "conversation.openai")
	defer span.End()

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sys,
		})
	}
	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case ChatRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case ChatRoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	if len(messages) == 0 {
		return LLMResponse{}, errors.New("conversation: openai requires at least one message")
	}

	request := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if req.MaxTokens > 0 {
		request.MaxTokens = int(req.MaxTokens)
	}

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, request)
	if err != nil {
		span.RecordError(err)
		return LLMResponse{}, fmt.Errorf("conversation: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := errors.New("conversation: openai returned no choices")
		span.RecordError(err)
		return LLMResponse{}, err
	}
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("amplifyx.openai.model", model),
			attribute.Int("amplifyx.openai.choices", len(resp.Choices)),
		)
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
