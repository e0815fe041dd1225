package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fathima-sithara/moms/internal/cart"
	"github.com/redis/go-redis/v9"
)

// CartStore keeps one cart per session key. Missing keys read as an empty
// cart.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartStore(rdb *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{rdb: rdb, ttl: ttl}
}

func (s *CartStore) Get(ctx context.Context, key string) (*cart.Cart, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &cart.Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	var c cart.Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CartStore) Save(ctx context.Context, key string, c *cart.Cart) error {
	if c.Empty() {
		return s.Delete(ctx, key)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, s.ttl).Err()
}

func (s *CartStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
