// Package cache keeps list views cached under tags so that a mutation can
// mark every dependent view stale at once.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/constants"
)

// Invalidator marks cached views stale by tag.
type Invalidator interface {
	InvalidateTags(ctx context.Context, tags ...string) error
}

// Store is an Invalidator that also holds the cached payloads.
type Store interface {
	Invalidator

	// Get returns the payload stored under key. ok is false on a miss.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)

	// Set stores payload under key and registers key with every tag.
	Set(ctx context.Context, key string, payload []byte, tags []string, ttl time.Duration) error

	// TagVersions returns the invalidation counter of each tag, in order.
	TagVersions(ctx context.Context, tags []string) ([]int64, error)
}

// Remember returns the cached value for key, or computes it with fn and
// caches the result under tags. Cache failures never hide fn's result.
//
// The tag versions read before fn are part of the stored key, so a value
// computed while a tag was invalidated lands under a key nobody reads.
func Remember[T any](ctx context.Context, store Store, log *zap.Logger, key string, tags []string, ttl time.Duration, fn func() (T, error)) (T, error) {
	versions, err := store.TagVersions(ctx, tags)
	if err != nil {
		log.Warn("Failed to read cache tag versions", zap.String("key", key), zap.Error(err))
		return fn()
	}
	key = versionedKey(key, versions)

	var value T
	if payload, ok, err := store.Get(ctx, key); err != nil {
		log.Warn("Failed to read cache", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(payload, &value); err == nil {
			return value, nil
		}
	}

	value, err = fn()
	if err != nil {
		return value, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		log.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := store.Set(ctx, key, payload, tags, ttl); err != nil {
		log.Warn("Failed to write cache", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func versionedKey(key string, versions []int64) string {
	if len(versions) == 0 {
		return key
	}
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return key + "@" + strings.Join(parts, ".")
}

// UserTimesheetsTag tags the entry lists of one user.
func UserTimesheetsTag(userID uint64) string {
	return fmt.Sprintf("%s:user:%d", constants.CacheTagTimesheets, userID)
}

// UserHRTimesheetsTag tags the HR timesheet lists of one user.
func UserHRTimesheetsTag(userID uint64) string {
	return fmt.Sprintf("%s:user:%d", constants.CacheTagHRTimesheets, userID)
}

// HRTimesheetTag tags the detail view of one HR timesheet.
func HRTimesheetTag(id uint64) string {
	return fmt.Sprintf("hr-timesheet:%d", id)
}

// ProjectTag tags the detail view of one project.
func ProjectTag(id uint64) string {
	return fmt.Sprintf("project:%d", id)
}

// Noop is used when no cache backend is configured.
type Noop struct{}

func (Noop) InvalidateTags(context.Context, ...string) error { return nil }

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, []string, time.Duration) error { return nil }

func (Noop) TagVersions(_ context.Context, tags []string) ([]int64, error) {
	return make([]int64, len(tags)), nil
}
