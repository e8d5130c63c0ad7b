package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const inboxPrefix = "notifications:"

// Inbox implements repository.NotificationInbox with one Redis list per
// session.
type Inbox struct {
	client redis.UniversalClient
	size   int
	ttl    time.Duration
}

// NewInbox creates a Redis-backed notification inbox holding at most size
// entries per session.
func NewInbox(client redis.UniversalClient, size int, ttl time.Duration) *Inbox {
	return &Inbox{client: client, size: size, ttl: ttl}
}

// Push appends payload and trims the list to the newest entries.
func (i *Inbox) Push(ctx context.Context, sessionID string, payload []byte) error {
	key := inboxPrefix + sessionID

	pipe := i.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-i.size), -1)
	if i.ttl > 0 {
		pipe.Expire(ctx, key, i.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push notification: %w", err)
	}
	return nil
}

// Drain atomically reads and deletes the session inbox.
func (i *Inbox) Drain(ctx context.Context, sessionID string) ([][]byte, error) {
	key := inboxPrefix + sessionID

	pipe := i.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis drain notifications: %w", err)
	}

	vals := rangeCmd.Val()
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}
