package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/config"
)

const (
	keyPrefix        = "cache:"
	tagPrefix        = "tag:"
	tagVersionPrefix = "tag:version:"
)

// NewRedisClient connects to redis and checks the connection with a ping.
func NewRedisClient(cfg *config.RedisConfig, log *zap.Logger) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("Connected to redis", zap.String("addr", cfg.Addr))
	return rdb, nil
}

// RedisStore keeps each tag as a redis set of cache keys.
type RedisStore struct {
	rdb goredis.UniversalClient
	log *zap.Logger
}

// NewRedisStore creates a Store backed by rdb.
func NewRedisStore(rdb goredis.UniversalClient, log *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, log: log}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, tags []string, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+key, payload, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, tagPrefix+tag, keyPrefix+key)
		}
		return nil
	})
	return err
}

// TagVersions reads the tag:version counters; a missing counter is 0.
func (s *RedisStore) TagVersions(ctx context.Context, tags []string) ([]int64, error) {
	versions := make([]int64, len(tags))
	if len(tags) == 0 {
		return versions, nil
	}

	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = tagVersionPrefix + tag
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read tag versions: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version of tag %s: %w", tags[i], err)
		}
		versions[i] = n
	}
	return versions, nil
}

// InvalidateTags deletes every key registered under the tags, the tag sets
// themselves, and bumps each tag's version counter.
func (s *RedisStore) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, err := s.rdb.SMembers(ctx, tagPrefix+tag).Result()
		if err != nil {
			return fmt.Errorf("read tag %s: %w", tag, err)
		}

		_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if len(keys) > 0 {
				pipe.Del(ctx, keys...)
			}
			pipe.Del(ctx, tagPrefix+tag)
			pipe.Incr(ctx, tagVersionPrefix+tag)
			return nil
		})
		if err != nil {
			return fmt.Errorf("invalidate tag %s: %w", tag, err)
		}
		s.log.Debug("Cache tag invalidated", zap.String("tag", tag), zap.Int("keys", len(keys)))
	}
	return nil
}
