package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Total string `json:"total"`
}

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, time.Minute), mr, client
}

func TestVersionedFetchAndBump(t *testing.T) {
	c, mr, _ := newTestCache(t)
	ctx := context.Background()
	scope := "reports:company:1"

	key, err := c.BuildKey(ctx, scope, "ageing", "10")
	require.NoError(t, err)
	assert.Equal(t, "reports:company:1:ageing:10:v1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Total: "150"}, nil
	}
	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, "150", got.Total)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	require.NoError(t, c.Bump(ctx, scope))
	bumped, err := c.BuildKey(ctx, scope, "ageing", "10")
	require.NoError(t, err)
	assert.Equal(t, "reports:company:1:ageing:10:v2", bumped)
	require.NoError(t, c.FetchJSON(ctx, bumped, &got, loader))
	assert.Equal(t, 2, calls)

	other, err := c.BuildKey(ctx, "reports:company:2", "ageing")
	require.NoError(t, err)
	assert.Equal(t, "reports:company:2:ageing:v1", other, "scopes version independently")
}

func TestVersionedLoaderErrorNotCached(t *testing.T) {
	c, mr, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("db down")
	var got payload
	err := c.FetchJSON(ctx, "k", &got, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestVersionedBumpPublishes(t *testing.T) {
	c, _, client := newTestCache(t)
	ctx := context.Background()
	sub := client.Subscribe(ctx, BumpChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Bump(ctx, "reports:company:9"))
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "reports:company:9:1", msg.Payload)
}

func TestNilCachePassesThrough(t *testing.T) {
	var c *Versioned
	ctx := context.Background()
	key, err := c.BuildKey(ctx, "s", "a")
	require.NoError(t, err)
	assert.Equal(t, "s:a", key)
	var got payload
	require.NoError(t, c.FetchJSON(ctx, key, &got, func(context.Context) (any, error) { return payload{Total: "1"}, nil }))
	assert.Equal(t, "1", got.Total)
	require.NoError(t, c.Bump(ctx, "s"))
}
