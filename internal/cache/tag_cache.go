package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"classpulse/internal/model"
)

// TagCache keeps a course's tag set hot so the submit path does not hit
// MongoDB for every question. Invalidated when tags change.
type TagCache interface {
	Set(ctx context.Context, courseID string, tags []model.Tag) error
	Get(ctx context.Context, courseID string) ([]model.Tag, error)
	Invalidate(ctx context.Context, courseID string) error
}

type tagCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTagCache creates a new tag cache
func NewTagCache(client *redis.Client, ttl time.Duration) TagCache {
	return &tagCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *tagCache) key(courseID string) string {
	return fmt.Sprintf("tags:%s", courseID)
}

func (c *tagCache) Set(ctx context.Context, courseID string, tags []model.Tag) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(courseID), data, c.ttl).Err()
}

// Get returns the cached tag set, or nil on a miss.
func (c *tagCache) Get(ctx context.Context, courseID string) ([]model.Tag, error) {
	data, err := c.client.Get(ctx, c.key(courseID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tags []model.Tag
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *tagCache) Invalidate(ctx context.Context, courseID string) error {
	return c.client.Del(ctx, c.key(courseID)).Err()
}
