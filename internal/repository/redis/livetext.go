package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	liveTextPrefix = "livetext:"
	liveTextTTL    = 30 * time.Minute
)

// LiveTextCache caches the current rendered text of an in-flight
// message. Token events are cumulative, so each recorded token event
// simply overwrites the prior entry. The event log remains the source
// of truth; a miss falls back to the last token event in storage.
type LiveTextCache struct {
	client *Client
}

// NewLiveTextCache creates a new live text cache
func NewLiveTextCache(client *Client) *LiveTextCache {
	return &LiveTextCache{client: client}
}

// Get retrieves the current text for a message. A cache miss returns
// ("", false, nil).
func (c *LiveTextCache) Get(ctx context.Context, messageID uuid.UUID) (string, bool, error) {
	key := fmt.Sprintf("%s%s", liveTextPrefix, messageID.String())

	text, err := c.client.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false, nil // Cache miss
	}
	return text, true, nil
}

// Set stores the current text for a message
func (c *LiveTextCache) Set(ctx context.Context, messageID uuid.UUID, text string) error {
	key := fmt.Sprintf("%s%s", liveTextPrefix, messageID.String())
	return c.client.rdb.Set(ctx, key, text, liveTextTTL).Err()
}

// Invalidate removes the cached text for a message
func (c *LiveTextCache) Invalidate(ctx context.Context, messageID uuid.UUID) error {
	key := fmt.Sprintf("%s%s", liveTextPrefix, messageID.String())
	return c.client.rdb.Del(ctx, key).Err()
}
