package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopcart/internal/pkg/logger"
	"shopcart/internal/service/order/domain/port"
)

// keyTracking caches carrier status reads: tracking:{shipment_ref}
const keyTracking = "tracking:%s"

// RedisTrackingCache is a short-TTL cache in front of the logistics
// tracking read. A miss or a redis failure just falls through to the
// gateway; the cache is never authoritative.
type RedisTrackingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTrackingCache(rdb *redis.Client, ttl time.Duration) *RedisTrackingCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisTrackingCache{rdb: rdb, ttl: ttl}
}

func (c *RedisTrackingCache) Get(ctx context.Context, shipmentRef string) (port.TrackingStatus, bool) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(keyTracking, shipmentRef)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("tracking cache read failed")
		}
		return port.TrackingStatus{}, false
	}
	var status port.TrackingStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return port.TrackingStatus{}, false
	}
	return status, true
}

func (c *RedisTrackingCache) Set(ctx context.Context, status port.TrackingStatus) {
	raw, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(keyTracking, status.ShipmentRef), raw, c.ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("tracking cache write failed")
	}
}
