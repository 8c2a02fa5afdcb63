package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, c.Ping(context.Background()))
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestGetSet(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "greeting", "hola"))
	val, err := c.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hola", val)
	assert.Equal(t, DefaultTTL, mr.TTL("greeting"))

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Delete(ctx, "greeting"))
	assert.False(t, mr.Exists("greeting"))
}

func TestTTLRules(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	c.RegisterTTL("*:playlist", 24*time.Hour)

	tests := []struct {
		key  string
		want time.Duration
	}{
		{"123:playlist", 24 * time.Hour},
		{"AnonymousRepository:base_settings:1", DefaultTTL},
	}
	for _, tt := range tests {
		if got := c.TTLFor(tt.key); got != tt.want {
			t.Errorf("TTLFor(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}

	require.NoError(t, c.RPush(ctx, "123:playlist", "a"))
	assert.Equal(t, 24*time.Hour, mr.TTL("123:playlist"))

	// Reading refreshes the expiry
	mr.SetTTL("123:playlist", time.Minute)
	_, err := c.LLen(ctx, "123:playlist")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, mr.TTL("123:playlist"))
}

func TestJSON(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	type doc struct {
		GuildID string   `json:"guild_id"`
		Enabled bool     `json:"enabled"`
		IDs     []string `json:"ids"`
	}
	in := doc{GuildID: "1", Enabled: true, IDs: []string{"a", "b"}}
	require.NoError(t, c.SetJSON(ctx, "k", in))

	var out doc
	require.NoError(t, c.GetJSON(ctx, "k", &out))
	assert.Equal(t, in, out)

	assert.ErrorIs(t, c.GetJSON(ctx, "nope", &out), ErrNotFound)
}

func TestListOps(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.RPush(ctx, "l", "b", "c"))
	require.NoError(t, c.LPush(ctx, "l", "a"))

	vals, err := c.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, vals)

	first, err := c.LPop(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	last, err := c.RPop(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, "c", last)

	n, err := c.LLen(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = c.LPop(ctx, "empty")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPushBounded(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	c.RegisterTTL("*:playlist", 2*time.Hour)

	ok, err := c.PushBounded(ctx, "1:playlist", 3, false, "b", "c")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.PushBounded(ctx, "1:playlist", 3, true, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Hour, mr.TTL("1:playlist"))

	ok, err = c.PushBounded(ctx, "1:playlist", 3, false, "d")
	require.NoError(t, err)
	assert.False(t, ok)

	vals, err := c.LRange(ctx, "1:playlist", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, vals)

	ok, err = c.PushBounded(ctx, "unbounded", 0, false, "x", "y", "z", "w")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetNX(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "cd", 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "cd", 1, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(31 * time.Second)
	ok, err = c.SetNX(ctx, "cd", 1, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailable(t *testing.T) {
	var nilClient *Client
	assert.False(t, nilClient.Available())

	c, mr := newTestClient(t)
	assert.True(t, c.Available())

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
	assert.False(t, c.Available())
}

func TestHealthCheck(t *testing.T) {
	c, mr := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartHealthCheck(ctx, 10*time.Millisecond)

	mr.Close()
	assert.Eventually(t, func() bool { return !c.Available() }, time.Second, 10*time.Millisecond)

	require.NoError(t, mr.Restart())
	assert.Eventually(t, c.Available, time.Second, 10*time.Millisecond)
}
