package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"station-rental-backend/internal/config"
)

// RedisCache provides the short-lived locks used around the booking flow:
// a per-vehicle hold lock taken while a customer holds a reservation, and a
// cool-down key that blocks duplicate payment initiations. Redis is the fast
// path only; the database overlap query and the unique transaction_ref
// column stay authoritative.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// AcquireVehicleHold takes the hold lock for a vehicle. Returns false when
// another hold is already in flight.
func (c *RedisCache) AcquireVehicleHold(ctx context.Context, vehicleID int32, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, vehicleHoldKey(vehicleID), "held", ttl).Result()
}

// ReleaseVehicleHold drops the hold lock for a vehicle.
func (c *RedisCache) ReleaseVehicleHold(ctx context.Context, vehicleID int32) error {
	return c.client.Del(ctx, vehicleHoldKey(vehicleID)).Err()
}

// AcquirePaymentInitLock takes the payment-initiation cool-down key for a
// booking or rental. Returns false when an initiation happened within the
// cool-down window.
func (c *RedisCache) AcquirePaymentInitLock(ctx context.Context, kind string, id int32, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, paymentInitKey(kind, id), "pending", ttl).Result()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func vehicleHoldKey(vehicleID int32) string {
	return fmt.Sprintf("hold:vehicle:%d", vehicleID)
}

func paymentInitKey(kind string, id int32) string {
	return fmt.Sprintf("payinit:%s:%d", kind, id)
}
