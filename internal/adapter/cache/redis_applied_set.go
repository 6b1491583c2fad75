package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/nodesandbox/event-bus-sample/internal/inventory"
)

// RedisAppliedSet implements the inventory applied-set on Redis SETNX, so the
// at-most-once reserve/release guard holds across process restarts. Keys are
// not expired: an order's effect markers must outlive any redelivery window.
type RedisAppliedSet struct {
	rdb *redis.Client
}

func NewRedisAppliedSet(rdb *redis.Client) *RedisAppliedSet {
	return &RedisAppliedSet{rdb: rdb}
}

func (s *RedisAppliedSet) Apply(ctx context.Context, scope, orderID string) (bool, error) {
	return s.rdb.SetNX(ctx, "applied:"+scope+":"+orderID, "1", 0).Result()
}

func (s *RedisAppliedSet) Has(ctx context.Context, scope, orderID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, "applied:"+scope+":"+orderID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ inventory.AppliedSet = (*RedisAppliedSet)(nil)
