// Package session caches recent conversation turns in Redis so the chat
// handler can rebuild short histories without a Postgres round trip. The
// Postgres conversation log remains the durable record; this cache is
// best effort and optional.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biddeed/deedscout/models"
)

const (
	// DefaultMaxTurns bounds the cached list per session.
	DefaultMaxTurns = 20
	// DefaultTTL expires idle sessions.
	DefaultTTL = 30 * time.Minute
)

type Cache struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

func NewCache(addr, password string, db int, maxTurns int, ttl time.Duration) *Cache {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: rdb, maxTurns: maxTurns, ttl: ttl}
}

// NewCacheWithClient wraps an existing client. Used by tests.
func NewCacheWithClient(client *redis.Client, maxTurns int, ttl time.Duration) *Cache {
	c := &Cache{client: client, maxTurns: maxTurns, ttl: ttl}
	if c.maxTurns <= 0 {
		c.maxTurns = DefaultMaxTurns
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	return c
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping verifies the connection at startup.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func turnsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:turns", sessionID)
}

// Append pushes one turn onto the session list, trims it to the configured
// bound and refreshes the TTL.
func (c *Cache) Append(ctx context.Context, sessionID string, turn models.ChatTurn) error {
	if sessionID == "" {
		return fmt.Errorf("session id required")
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	key := turnsKey(sessionID)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-c.maxTurns), -1)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the cached turns for a session, oldest first. A missing
// session yields an empty slice, not an error.
func (c *Cache) Recent(ctx context.Context, sessionID string) ([]models.ChatTurn, error) {
	raw, err := c.client.LRange(ctx, turnsKey(sessionID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	turns := make([]models.ChatTurn, 0, len(raw))
	for _, item := range raw {
		var t models.ChatTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}
