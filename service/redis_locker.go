// api/service/redis_locker.go
package service

import (
	"context"
	"time"

	"github.com/labops/labportal/api/db"
)

// redisLocker backs the resourceLocker interface with the shared Redis
// client.
type redisLocker struct{}

func NewRedisLocker() resourceLocker {
	return redisLocker{}
}

func (redisLocker) Lock(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	return db.LockResource(ctx, resourceName, ttl)
}

func (redisLocker) Unlock(ctx context.Context, resourceName string) error {
	return db.UnlockResource(ctx, resourceName)
}
