package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

const (
	cacheVersionKey = "authz:version"
	bumpChannel     = "authz.bump"
)

// Cache wraps Redis based caching of resolved permission sets with
// versioning controls. Bumping the version invalidates every cached set at
// once, which keeps invalidation correct without tracking which subjects a
// given assignment change touches.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	joined := strings.Join(parts, ":")
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Loader
// failures are returned without caching anything.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every cached set by incrementing the global version and
// publishing an event for other instances.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// CachedResolver layers the versioned cache plus request collapsing over the
// plain Resolver. Concurrent resolutions of one subject share a single
// traversal.
type CachedResolver struct {
	inner *Resolver
	cache *Cache
	group singleflight.Group
}

// NewCachedResolver wraps resolver with cache.
func NewCachedResolver(resolver *Resolver, cache *Cache) *CachedResolver {
	return &CachedResolver{inner: resolver, cache: cache}
}

// EffectivePermissions resolves through the cache. Any cache failure falls
// back to a direct resolution so a Redis outage degrades to latency, not to
// authorization errors.
func (c *CachedResolver) EffectivePermissions(ctx context.Context, subjectID int64) (*PermissionSet, error) {
	key, err := c.cache.BuildKey(ctx, "authz", "subject", strconv.FormatInt(subjectID, 10))
	if err != nil {
		return c.inner.EffectivePermissions(ctx, subjectID)
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		var grants []Grant
		err := c.cache.FetchJSON(ctx, key, &grants, func(ctx context.Context) (interface{}, error) {
			set, err := c.inner.EffectivePermissions(ctx, subjectID)
			if err != nil {
				return nil, err
			}
			return set.List(), nil
		})
		if err != nil {
			if shared.IsNotFound(err) || isResolution(err) {
				return nil, err
			}
			// Cache transport failure: resolve directly.
			set, err := c.inner.EffectivePermissions(ctx, subjectID)
			if err != nil {
				return nil, err
			}
			return set.List(), nil
		}
		return grants, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return SetFromGrants(res.Val.([]Grant)), nil
	}
}

func isResolution(err error) bool {
	var target *shared.ResolutionError
	return errors.As(err, &target)
}
