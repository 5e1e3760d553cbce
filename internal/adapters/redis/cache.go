package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache mirrors live holds into redis so sibling API processes observe
// them, and backs the rate limiter. Keys expire with the hold TTL, so a
// crashed process leaks nothing.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func holdKey(showID, seatID uuid.UUID) string {
	return "hold:" + showID.String() + ":" + seatID.String()
}

// SetHoldLock claims or refreshes the mirror entry for a seat. SET NX
// wins the cross-process race; a refused claim by the same holder is
// treated as a refresh and the TTL is extended.
func (c *Cache) SetHoldLock(ctx context.Context, showID, seatID uuid.UUID, holderRef string, ttl time.Duration) (bool, error) {
	key := holdKey(showID, seatID)
	ok, err := c.client.SetNX(ctx, key, holderRef, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	owner, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if owner != holderRef {
		return false, nil
	}
	return true, c.client.Expire(ctx, key, ttl).Err()
}

func (c *Cache) ReleaseHoldLock(ctx context.Context, showID, seatID uuid.UUID) error {
	return c.client.Del(ctx, holdKey(showID, seatID)).Err()
}

// HoldTTL reports the mirror entry's remaining life; negative when no
// entry exists.
func (c *Cache) HoldTTL(ctx context.Context, showID, seatID uuid.UUID) (time.Duration, error) {
	return c.client.TTL(ctx, holdKey(showID, seatID)).Result()
}
