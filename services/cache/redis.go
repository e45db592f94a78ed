// Package cachesvc implements the application caches on top of Redis.
package cachesvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
)

const branchKeyPrefix = "springhub:branch:"

// NewRedisClient returns nil when no Redis address is configured.
func NewRedisClient(conf *core.Config) *redis.Client {
	if conf.Redis.Address == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// BranchCache caches branch existence lookups.
type BranchCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ branch.Cache = (*BranchCache)(nil)

func NewBranchCache(client *redis.Client, ttl time.Duration) *BranchCache {
	return &BranchCache{client: client, ttl: ttl}
}

func (c *BranchCache) key(id string) string { return branchKeyPrefix + id }

func (c *BranchCache) Exists(ctx context.Context, id string) (bool, bool, error) {
	val, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *BranchCache) Set(ctx context.Context, id string, exists bool) error {
	val := "0"
	if exists {
		val = "1"
	}
	return c.client.Set(ctx, c.key(id), val, c.ttl).Err()
}

func (c *BranchCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
