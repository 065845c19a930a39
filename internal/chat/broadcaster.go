package chat

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Broadcaster delivers an event to every transport connection subscribed to a
// logical session's broadcast group. Publishing to a group with no
// subscribers is a no-op, not an error.
type Broadcaster interface {
	Publish(ctx context.Context, sessionID, eventType string, fields map[string]any) error
}

// SessionChannel names the pub/sub channel for one logical session.
func SessionChannel(sessionID string) string {
	return "chat:session:" + sessionID
}

// RedisBroadcaster fans events out over redis pub/sub so every process
// holding a connection for the session receives them.
type RedisBroadcaster struct {
	rdb *redis.Client
}

func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, sessionID, eventType string, fields map[string]any) error {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["type"] = eventType

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, SessionChannel(sessionID), raw).Err()
}
