// Package cache wraps the Redis client used for cached documents, music
// playlists and short-lived keys such as cooldowns.
package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
)

// DefaultTTL is applied to keys that match no registered pattern
const DefaultTTL = time.Hour

// ErrNotFound is returned when a key or list element does not exist
var ErrNotFound = stderrors.New("cache: key not found")

// ttlRule maps a glob pattern to the expiry refreshed on every access
type ttlRule struct {
	pattern string
	ttl     time.Duration
}

// Client is a Redis client that refreshes key expiry on every operation
type Client struct {
	rdb        *redis.Client
	available  atomic.Bool
	mu         sync.RWMutex
	rules      []ttlRule
	defaultTTL time.Duration
}

var (
	client     *Client
	clientOnce sync.Once
)

// Init connects the global cache client. A failed ping leaves the client
// marked unavailable; callers fall back to the database.
func Init(url string) (*Client, error) {
	var initErr error
	clientOnce.Do(func() {
		client, initErr = New(url)
	})
	return client, initErr
}

// Get returns the global cache client (nil if Init was never called)
func Get() *Client {
	return client
}

// New creates a client from a redis:// URL and pings it
func New(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	c := NewFromRedis(redis.NewClient(opts))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		logger.Warn(fmt.Sprintf("Redis no disponible: %v", err), "Cache")
		return c, nil
	}
	logger.Success("✅ Conectado a Redis", "Cache")
	return c, nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, defaultTTL: DefaultTTL}
}

// Redis exposes the underlying client
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Available reports whether the last ping succeeded
func (c *Client) Available() bool {
	return c != nil && c.available.Load()
}

// Ping checks the connection and updates Available
func (c *Client) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	c.available.Store(err == nil)
	return err
}

// StartHealthCheck pings Redis every interval until ctx is done, so
// Available follows the server going away and coming back
func (c *Client) StartHealthCheck(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			was := c.Available()
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := c.Ping(pingCtx)
			cancel()
			switch {
			case err != nil && was:
				logger.Warn(fmt.Sprintf("Redis no disponible: %v", err), "Cache")
			case err == nil && !was:
				logger.Success("✅ Reconectado a Redis", "Cache")
			}
		}
	}()
}

// Close closes the connection
func (c *Client) Close() error {
	c.available.Store(false)
	return c.rdb.Close()
}

// RegisterTTL sets the expiry for keys matching pattern (path.Match syntax).
// Later registrations win over earlier ones.
func (c *Client) RegisterTTL(pattern string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append([]ttlRule{{pattern: pattern, ttl: ttl}}, c.rules...)
}

// TTLFor returns the expiry applied to key
func (c *Client) TTLFor(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rules {
		if ok, _ := path.Match(r.pattern, key); ok {
			return r.ttl
		}
	}
	return c.defaultTTL
}

func (c *Client) touch(ctx context.Context, key string) error {
	return c.rdb.Expire(ctx, key, c.TTLFor(key)).Err()
}

func mapErr(err error) error {
	if stderrors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}

// Get returns the string stored at key
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return val, c.touch(ctx, key)
}

// Set stores value with the key's expiry
func (c *Client) Set(ctx context.Context, key string, value interface{}) error {
	return c.rdb.Set(ctx, key, value, c.TTLFor(key)).Err()
}

// SetNX stores value only if key is absent, expiring after ttl
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Delete removes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// GetJSON decodes the JSON document at key into dst
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dst)
}

// SetJSON stores v encoded as JSON
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data)
}

// RPush appends values to the list at key
func (c *Client) RPush(ctx context.Context, key string, values ...interface{}) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, c.TTLFor(key))
		return nil
	})
	return err
}

// LPush prepends values to the list at key. The last value ends up first.
func (c *Client) LPush(ctx context.Context, key string, values ...interface{}) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, values...)
		pipe.Expire(ctx, key, c.TTLFor(key))
		return nil
	})
	return err
}

// pushBounded checks the list length and pushes in one step so concurrent
// writers cannot overshoot the limit.
// ARGV: limit, ttl in ms, "1" to push at the head, values...
var pushBounded = redis.NewScript(`
local limit = tonumber(ARGV[1])
local n = #ARGV - 3
if limit > 0 and redis.call("LLEN", KEYS[1]) + n > limit then
	return 0
end
local cmd = "RPUSH"
if ARGV[3] == "1" then
	cmd = "LPUSH"
end
for i = 4, #ARGV do
	redis.call(cmd, KEYS[1], ARGV[i])
end
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

// PushBounded appends values to the list at key (or prepends them when
// front is set) unless that would make it longer than limit. It reports
// false without writing anything when the list has no room. limit <= 0
// means unbounded.
func (c *Client) PushBounded(ctx context.Context, key string, limit int, front bool, values ...interface{}) (bool, error) {
	if len(values) == 0 {
		return true, nil
	}
	head := "0"
	if front {
		head = "1"
	}
	args := make([]interface{}, 0, len(values)+3)
	args = append(args, limit, c.TTLFor(key).Milliseconds(), head)
	args = append(args, values...)

	ok, err := pushBounded.Run(ctx, c.rdb, []string{key}, args...).Int64()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

// LPop removes and returns the first element of the list
func (c *Client) LPop(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.LPop(ctx, key).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return val, c.touch(ctx, key)
}

// RPop removes and returns the last element of the list
func (c *Client) RPop(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.RPop(ctx, key).Result()
	if err != nil {
		return "", mapErr(err)
	}
	return val, c.touch(ctx, key)
}

// LRange returns the elements between start and stop (inclusive)
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	return vals, c.touch(ctx, key)
}

// LLen returns the length of the list at key
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return n, c.touch(ctx, key)
}
