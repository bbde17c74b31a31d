// README: Redis-backed route cache keyed by the endpoint pair.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cargoflow/internal/maps"
	"cargoflow/internal/types"
)

// RedisRouteCache stores computed routes under route:<origin>:<dest>
// with a TTL. Misses and Redis failures both read as cache misses; the
// router is always the source of truth.
type RedisRouteCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

func NewRedisRouteCache(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *RedisRouteCache {
	if log == nil {
		log = logrus.New()
	}
	return &RedisRouteCache{rdb: rdb, ttl: ttl, log: log}
}

// Five decimal places is about a meter of precision, enough to collapse
// repeated quotes for the same endpoints onto one key.
func routeKey(origin, dest types.Point) string {
	return fmt.Sprintf("route:%.5f,%.5f:%.5f,%.5f", origin.Lat, origin.Lng, dest.Lat, dest.Lng)
}

func (c *RedisRouteCache) Get(ctx context.Context, origin, dest types.Point) (maps.Route, bool) {
	raw, err := c.rdb.Get(ctx, routeKey(origin, dest)).Bytes()
	if err == redis.Nil {
		return maps.Route{}, false
	}
	if err != nil {
		c.log.WithError(err).Debug("route cache read failed")
		return maps.Route{}, false
	}
	var r maps.Route
	if err := json.Unmarshal(raw, &r); err != nil {
		c.log.WithError(err).Warn("route cache entry corrupt, ignoring")
		return maps.Route{}, false
	}
	return r, true
}

func (c *RedisRouteCache) Set(ctx context.Context, origin, dest types.Point, r maps.Route) {
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, routeKey(origin, dest), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("route cache write failed")
	}
}
