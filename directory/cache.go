package directory

import (
	"context"
	"errors"
	"time"

	"citycare-be/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RoleCache stores resolved roles keyed by actor id. Get reports a miss with
// ok=false and a nil error.
type RoleCache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisRoleCache is a RoleCache backed by Redis string keys.
type RedisRoleCache struct {
	client redis.Cmdable
	prefix string
}

func NewRedisRoleCache(client redis.Cmdable, prefix string) *RedisRoleCache {
	if prefix == "" {
		prefix = "citycare:actor-role"
	}
	return &RedisRoleCache{client: client, prefix: prefix}
}

func (c *RedisRoleCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+":"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *RedisRoleCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+":"+key, value, ttl).Err()
}

// CachedDirectory fronts another directory with a role cache. Cache failures
// are logged and fall through to the underlying directory.
type CachedDirectory struct {
	next   ActorDirectory
	cache  RoleCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedDirectory(next ActorDirectory, cache RoleCache, ttl time.Duration, logger *zap.Logger) *CachedDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedDirectory{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (d *CachedDirectory) Lookup(ctx context.Context, id primitive.ObjectID) (models.Actor, error) {
	key := id.Hex()
	role, ok, err := d.cache.Get(ctx, key)
	switch {
	case err != nil:
		d.logger.Warn("actor role cache read failed", zap.String("actor_id", key), zap.Error(err))
	case ok:
		return models.Actor{ID: id, Role: models.ParseRole(role)}, nil
	}

	actor, err := d.next.Lookup(ctx, id)
	if err != nil {
		return models.Actor{}, err
	}
	if err := d.cache.Set(ctx, key, string(actor.Role), d.ttl); err != nil {
		d.logger.Warn("actor role cache write failed", zap.String("actor_id", key), zap.Error(err))
	}
	return actor, nil
}
