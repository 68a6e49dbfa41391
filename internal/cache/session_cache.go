package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"classpulse/internal/model"
)

// SessionCache is a write-through Redis mirror of live session metadata,
// used by REST lookups. The in-memory registry stays authoritative.
type SessionCache interface {
	SetMeta(ctx context.Context, meta *model.LiveSession) error
	GetMeta(ctx context.Context, code string) (*model.LiveSession, error)
	Delete(ctx context.Context, code string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a new session cache
func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) key(code string) string {
	return fmt.Sprintf("live:%s", code)
}

func (c *sessionCache) SetMeta(ctx context.Context, meta *model.LiveSession) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(meta.Code), data, c.ttl).Err()
}

func (c *sessionCache) GetMeta(ctx context.Context, code string) (*model.LiveSession, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.LiveSession
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *sessionCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
