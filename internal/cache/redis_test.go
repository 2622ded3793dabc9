package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mash-30/full-ecommerce-rest-api-with-supabase-integrated/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.Owner{UserID: "user-1"}
	uid := "user-1"

	cart := &domain.Cart{
		ID:     "cart-1",
		UserID: &uid,
		Totals: domain.Totals{Subtotal: domain.Dollars("12.50"), GrandTotal: domain.Dollars("23.75")},
		Items:  []domain.LineItem{{ID: "i1", ProductID: "p1", Quantity: 2, Price: domain.Dollars("6.25")}},
	}

	require.NoError(t, c.Set(ctx, owner, cart, 0))
	assert.True(t, mr.Exists("cart:{user:user-1}"))

	ttl := mr.TTL("cart:{user:user-1}")
	assert.GreaterOrEqual(t, ttl, 5*time.Minute)
	assert.Less(t, ttl, 10*time.Minute)

	got, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "cart-1", got.ID)
	assert.True(t, got.GrandTotal.Equal(domain.Dollars("23.75")))
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Price.Equal(domain.Dollars("6.25")))
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), domain.Owner{SessionID: "nobody"})
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.Owner{SessionID: "sess-9"}

	require.NoError(t, c.Set(ctx, owner, &domain.Cart{ID: "c"}, 0))
	require.NoError(t, c.Delete(ctx, owner))
	assert.False(t, mr.Exists("cart:{session:sess-9}"))

	_, err := c.Get(ctx, owner)
	assert.ErrorIs(t, err, ErrCacheMiss)

	v, err := c.Version(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Greater(t, mr.TTL("cart:{session:sess-9}:gen"), time.Duration(0))
}

func TestRedisCache_StaleSetDropped(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.Owner{UserID: "user-2"}

	before, err := c.Version(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), before)

	// a mutation lands between the reader's load and its write-back
	require.NoError(t, c.Delete(ctx, owner))

	require.NoError(t, c.Set(ctx, owner, &domain.Cart{ID: "stale"}, before))
	assert.False(t, mr.Exists("cart:{user:user-2}"))

	after, err := c.Version(ctx, owner)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, owner, &domain.Cart{ID: "fresh"}, after))

	got, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.ID)
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:{user:u}", "{not json"))

	_, err := c.Get(context.Background(), domain.Owner{UserID: "u"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
