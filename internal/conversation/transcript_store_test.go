package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTranscriptStore(t *testing.T) *TranscriptStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTranscriptStore(client)
}

func TestTranscriptStoreAppendAndList(t *testing.T) {
	store := newTestTranscriptStore(t)
	ctx := context.Background()

	msgs := []TranscriptMessage{
		{Role: ChatRoleUser, Body: "hi there", Phase: string(PhaseCollecting)},
		{Role: ChatRoleAssistant, Body: "welcome!", Phase: string(PhaseCollecting)},
		{Role: ChatRoleUser, Body: "yes, correct", Phase: string(PhaseConfirming)},
	}
	for _, m := range msgs {
		if err := store.Append(ctx, "sess-1", m); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.List(ctx, "sess-1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Body != "hi there" || got[2].Phase != string(PhaseConfirming) {
		t.Fatalf("messages out of order: %+v", got)
	}
	for _, m := range got {
		if m.ID == "" || m.Timestamp.IsZero() {
			t.Fatalf("ID/timestamp not backfilled: %+v", m)
		}
	}
}

func TestTranscriptStoreListLimit(t *testing.T) {
	store := newTestTranscriptStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, "sess-1", TranscriptMessage{Role: ChatRoleUser, Body: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.List(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Body != "m3" || got[1].Body != "m4" {
		t.Fatalf("expected last two messages, got %+v", got)
	}
}

func TestTranscriptStoreTrimsAtCap(t *testing.T) {
	store := newTestTranscriptStore(t)
	store.maxMessages = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, "sess-1", TranscriptMessage{Body: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.List(ctx, "sess-1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 || got[0].Body != "m2" {
		t.Fatalf("expected oldest messages trimmed, got %+v", got)
	}
}

func TestTranscriptStoreNilSafe(t *testing.T) {
	var store *TranscriptStore
	if err := store.Append(context.Background(), "sess", TranscriptMessage{Body: "x"}); err != nil {
		t.Fatalf("nil store Append should be a no-op: %v", err)
	}
	msgs, err := store.List(context.Background(), "sess", 0)
	if err != nil || msgs != nil {
		t.Fatalf("nil store List should return nothing: %v %v", msgs, err)
	}
	if NewTranscriptStore(nil) != nil {
		t.Fatal("nil redis client should produce nil store")
	}
}

func TestTranscriptStoreRequiresSession(t *testing.T) {
	store := newTestTranscriptStore(t)
	if err := store.Append(context.Background(), "", TranscriptMessage{Body: "x"}); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestTranscriptStoreSetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewTranscriptStore(client)

	if err := store.Append(context.Background(), "sess-1", TranscriptMessage{Body: "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	ttl := mr.TTL(transcriptKey("sess-1"))
	if ttl <= 0 || ttl > 7*24*time.Hour {
		t.Fatalf("unexpected TTL %s", ttl)
	}
}
