package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

func newRedisTier(t *testing.T, ttl time.Duration) (*RedisTier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTier(client, ttl), mr
}

func TestRedisTierRoundTrip(t *testing.T) {
	tier, mr := newRedisTier(t, time.Hour)
	ctx := context.Background()
	f := testFilter()

	_, ok, err := tier.Get(ctx, f, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ds := &fiscal.Dataset{
		Filter:    f,
		Items:     []fiscal.LineItem{{AccountCode: "RO1", AccountDescription: "Receitas Correntes", ColumnLabel: "Realizado", Value: 10.5}},
		Meta:      fiscal.Metadata{EntityName: "São Paulo", UF: "SP"},
		FetchedAt: time.Now().UTC(),
	}
	require.NoError(t, tier.Put(ctx, ds))
	assert.True(t, mr.Exists(redisKey(f)))

	got, ok, err := tier.Get(ctx, f, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ds.Items, got.Items)
	assert.Equal(t, ds.Meta, got.Meta)

	mr.FastForward(2 * time.Hour)
	_, ok, err = tier.Get(ctx, f, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTierRejectsStaleDataset(t *testing.T) {
	tier, _ := newRedisTier(t, 0)
	ctx := context.Background()
	f := testFilter()

	require.NoError(t, tier.Put(ctx, &fiscal.Dataset{Filter: f, FetchedAt: time.Now().Add(-48 * time.Hour)}))
	_, ok, err := tier.Get(ctx, f, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tier.Delete(ctx, f))
	_, ok, err = tier.Get(ctx, f, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheWithRedisTier(t *testing.T) {
	tier, _ := newRedisTier(t, time.Hour)
	var calls int32
	c := New(tier, countingLoader(&calls), Options{TTL: time.Hour}, nil)

	_, err := c.Get(context.Background(), testFilter())
	require.NoError(t, err)
	res, err := c.Get(context.Background(), testFilter())
	require.NoError(t, err)
	assert.Equal(t, SourcePersistent, res.Source)
	assert.EqualValues(t, 1, calls)
}
