package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EventDedupCache implements ports.EventDedupCache using Redis.
// It only remembers event ids that were fully processed; the webhook log
// remains the source of truth when a key has expired or Redis is down.
type EventDedupCache struct {
	client *goredis.Client
	prefix string
}

// NewEventDedupCache creates a new Redis-backed dedup cache.
func NewEventDedupCache(client *goredis.Client) *EventDedupCache {
	return &EventDedupCache{
		client: client,
		prefix: "webhook:processed:",
	}
}

// IsProcessed reports whether eventID was marked processed and has not expired.
func (c *EventDedupCache) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis dedup exists: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed remembers eventID for ttl.
func (c *EventDedupCache) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+eventID, time.Now().UTC().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis dedup set: %w", err)
	}
	return nil
}
