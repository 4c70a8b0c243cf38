package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TranscriptMessage is one stored chat turn.
type TranscriptMessage struct {
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore persists chat history per session.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, msg TranscriptMessage) error
	List(ctx context.Context, sessionID string, limit int64) ([]TranscriptMessage, error)
}

// RedisTranscript stores transcripts as capped Redis lists with a TTL, so
// idle chat sessions age out on their own.
type RedisTranscript struct {
	client  *redis.Client
	ttl     time.Duration
	maxSize int64
}

// NewRedisTranscript creates a transcript store. A nil client yields a nil
// store, which callers treat as history disabled.
func NewRedisTranscript(client *redis.Client, ttl time.Duration) *RedisTranscript {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTranscript{client: client, ttl: ttl, maxSize: 200}
}

func transcriptKey(sessionID string) string {
	return "chat:transcript:" + sessionID
}

// Append adds a turn to the session transcript.
func (t *RedisTranscript) Append(ctx context.Context, sessionID string, msg TranscriptMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("assistant: marshal transcript message: %w", err)
	}
	key := transcriptKey(sessionID)
	pipe := t.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -t.maxSize, -1)
	pipe.Expire(ctx, key, t.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("assistant: append transcript: %w", err)
	}
	return nil
}

// List returns up to limit most recent turns in chronological order.
func (t *RedisTranscript) List(ctx context.Context, sessionID string, limit int64) ([]TranscriptMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := t.client.LRange(ctx, transcriptKey(sessionID), -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("assistant: list transcript: %w", err)
	}
	result := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		result = append(result, msg)
	}
	return result, nil
}

var _ TranscriptStore = (*RedisTranscript)(nil)
