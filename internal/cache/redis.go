package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

// setIfVersion writes KEYS[1] only while KEYS[2] still holds ARGV[1].
// A missing generation key counts as 0.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client:     client,
		baseTTL:    5 * time.Minute,
		versionTTL: 24 * time.Hour,
	}
}

type RedisCache struct {
	client     redis.UniversalClient
	baseTTL    time.Duration
	versionTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

func (r *RedisCache) Version(ctx context.Context, owner domain.Owner) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(owner)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

func (r *RedisCache) Set(ctx context.Context, owner domain.Owner, cart *domain.Cart, version int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// jitter keeps entries written together from expiring together
	ttl := r.baseTTL + time.Duration(rand.IntN(5))*time.Minute
	keys := []string{cacheKey(owner), versionKey(owner)}
	if err := setIfVersion.Run(ctx, r.client, keys, version, data, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete drops the entry and advances the owner's generation.
func (r *RedisCache) Delete(ctx context.Context, owner domain.Owner) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(owner))
		pipe.Expire(ctx, versionKey(owner), r.versionTTL)
		pipe.Del(ctx, cacheKey(owner))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Both keys share a hash tag so the script and transaction stay on one
// cluster slot.
func cacheKey(owner domain.Owner) string {
	return "cart:{" + owner.Key() + "}"
}

func versionKey(owner domain.Owner) string {
	return "cart:{" + owner.Key() + "}:gen"
}
