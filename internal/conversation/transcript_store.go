package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const transcriptKeyPrefix = "intake_transcript:"

// transcriptTTL keeps archived conversations around well past the session
// idle timeout so submitted leads keep their transcript.
const transcriptTTL = 7 * 24 * time.Hour

type TranscriptMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Body      string    `json:"body"`
	Phase     string    `json:"phase,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore archives conversation turns in Redis, independent of the
// in-memory session state. All methods are nil-safe so the engine can run
// without Redis configured.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("amplifyx.internal.conversation.transcript"),
		maxMessages: 200,
	}
}

func (s *TranscriptStore) Append(ctx context.Context, sessionID string, msg TranscriptMessage) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return errors.New("conversation: transcript sessionID required")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.append")
	defer span.End()

	key := transcriptKey(sessionID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append transcript message: %w", err)
	}
	return nil
}

func (s *TranscriptStore) List(ctx context.Context, sessionID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return nil, errors.New("conversation: transcript sessionID required")
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.list")
	defer span.End()

	start := int64(0)
	end := int64(-1)
	if limit > 0 {
		start = -limit
	}

	key := transcriptKey(sessionID)
	raw, err := s.redis.LRange(ctx, key, start, end).Result()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return []TranscriptMessage{}, nil
		}
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(sessionID string) string {
	return transcriptKeyPrefix + sessionID
}
