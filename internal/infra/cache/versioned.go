package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned when no entry exists for the requested version.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheDisabled is returned by a VersionedCache built without a client.
	ErrCacheDisabled = errors.New("cache: disabled")
)

// VersionedCache stores one JSON document per data version. Writers bump the
// version, so readers never see an entry computed before the latest write.
// A nil client turns every call into a miss.
type VersionedCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewVersionedCache(rdb *redis.Client, prefix string, ttl time.Duration) *VersionedCache {
	return &VersionedCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *VersionedCache) Enabled() bool { return c != nil && c.rdb != nil }

func (c *VersionedCache) versionKey() string { return c.prefix + ":version" }

func (c *VersionedCache) entryKey(version int64) string {
	return c.prefix + ":v" + strconv.FormatInt(version, 10)
}

// Version returns the current data version; an unset version is 0.
func (c *VersionedCache) Version(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, ErrCacheDisabled
	}
	v, err := c.rdb.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Bump invalidates every cached entry by moving to a new version.
func (c *VersionedCache) Bump(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Incr(ctx, c.versionKey()).Err()
}

func (c *VersionedCache) Get(ctx context.Context, version int64, dest any) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}
	b, err := c.rdb.Get(ctx, c.entryKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return sonic.Unmarshal(b, dest)
}

func (c *VersionedCache) Set(ctx context.Context, version int64, v any) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.entryKey(version), b, c.ttl).Err()
}
