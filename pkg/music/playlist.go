package music

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
)

var (
	// ErrPlaylistEmpty is returned by Pop when there is nothing queued
	ErrPlaylistEmpty = errors.New("playlist is empty")
	// ErrPlaylistFull is returned when a push would exceed the playlist limit
	ErrPlaylistFull = errors.New("playlist is full")
)

// PlaylistTTL is how long an idle guild playlist survives in Redis unless
// configured otherwise
const PlaylistTTL = 24 * time.Hour

// Playlist is an ordered queue of tracks for one guild
type Playlist interface {
	Push(ctx context.Context, tracks ...*Track) error
	PushFront(ctx context.Context, track *Track) error
	Pop(ctx context.Context) (*Track, error)
	List(ctx context.Context) ([]*Track, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// PlaylistFactory builds the playlist of a guild
type PlaylistFactory func(guildID string) Playlist

// PlaylistKey returns the Redis key holding a guild playlist
func PlaylistKey(guildID string) string {
	return guildID + ":playlist"
}

// NewPlaylistFactory stores playlists in Redis when the cache is reachable
// and in memory otherwise. max <= 0 means unbounded and ttl <= 0 means
// PlaylistTTL.
func NewPlaylistFactory(c *cache.Client, max int, ttl time.Duration) PlaylistFactory {
	if ttl <= 0 {
		ttl = PlaylistTTL
	}
	if c != nil {
		c.RegisterTTL(PlaylistKey("*"), ttl)
	}
	return func(guildID string) Playlist {
		if c.Available() {
			return NewRedisPlaylist(c, guildID, max)
		}
		return NewMemoryPlaylist(max)
	}
}

// RedisPlaylist keeps the queue in a Redis list so it survives restarts
type RedisPlaylist struct {
	cache *cache.Client
	key   string
	max   int
}

// NewRedisPlaylist creates the playlist stored under "<guildID>:playlist"
func NewRedisPlaylist(c *cache.Client, guildID string, max int) *RedisPlaylist {
	return &RedisPlaylist{cache: c, key: PlaylistKey(guildID), max: max}
}

func (p *RedisPlaylist) push(ctx context.Context, front bool, tracks ...*Track) error {
	values := make([]interface{}, 0, len(tracks))
	for _, t := range tracks {
		raw, err := encodeTrack(t)
		if err != nil {
			return fmt.Errorf("encode track %q: %w", t.URL, err)
		}
		values = append(values, raw)
	}
	ok, err := p.cache.PushBounded(ctx, p.key, p.max, front, values...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPlaylistFull
	}
	return nil
}

// Push appends tracks to the end of the queue
func (p *RedisPlaylist) Push(ctx context.Context, tracks ...*Track) error {
	if len(tracks) == 0 {
		return nil
	}
	return p.push(ctx, false, tracks...)
}

// PushFront puts a track at the head of the queue
func (p *RedisPlaylist) PushFront(ctx context.Context, track *Track) error {
	return p.push(ctx, true, track)
}

// Pop removes and returns the first track
func (p *RedisPlaylist) Pop(ctx context.Context) (*Track, error) {
	raw, err := p.cache.LPop(ctx, p.key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrPlaylistEmpty
	}
	if err != nil {
		return nil, err
	}
	return decodeTrack(raw)
}

// List returns every queued track without consuming them
func (p *RedisPlaylist) List(ctx context.Context) ([]*Track, error) {
	raws, err := p.cache.LRange(ctx, p.key, 0, -1)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	tracks := make([]*Track, 0, len(raws))
	for _, raw := range raws {
		t, err := decodeTrack(raw)
		if err != nil {
			// Entradas corruptas se ignoran
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Len returns the number of queued tracks
func (p *RedisPlaylist) Len(ctx context.Context) (int, error) {
	n, err := p.cache.LLen(ctx, p.key)
	return int(n), err
}

// Clear drops the whole queue
func (p *RedisPlaylist) Clear(ctx context.Context) error {
	return p.cache.Delete(ctx, p.key)
}

// MemoryPlaylist is the in-process fallback used when Redis is unavailable
type MemoryPlaylist struct {
	mu     sync.Mutex
	tracks []*Track
	max    int
}

// NewMemoryPlaylist creates an empty in-memory playlist
func NewMemoryPlaylist(max int) *MemoryPlaylist {
	return &MemoryPlaylist{max: max}
}

func (p *MemoryPlaylist) full(n int) bool {
	return p.max > 0 && len(p.tracks)+n > p.max
}

// Push appends tracks to the end of the queue
func (p *MemoryPlaylist) Push(_ context.Context, tracks ...*Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full(len(tracks)) {
		return ErrPlaylistFull
	}
	p.tracks = append(p.tracks, tracks...)
	return nil
}

// PushFront puts a track at the head of the queue
func (p *MemoryPlaylist) PushFront(_ context.Context, track *Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full(1) {
		return ErrPlaylistFull
	}
	p.tracks = append([]*Track{track}, p.tracks...)
	return nil
}

// Pop removes and returns the first track
func (p *MemoryPlaylist) Pop(_ context.Context) (*Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return nil, ErrPlaylistEmpty
	}
	t := p.tracks[0]
	p.tracks[0] = nil
	p.tracks = p.tracks[1:]
	return t, nil
}

// List returns a copy of the queued tracks
func (p *MemoryPlaylist) List(_ context.Context) ([]*Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Track(nil), p.tracks...), nil
}

// Len returns the number of queued tracks
func (p *MemoryPlaylist) Len(_ context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracks), nil
}

// Clear drops the whole queue
func (p *MemoryPlaylist) Clear(_ context.Context) error {
	p.mu.Lock()
	p.tracks = nil
	p.mu.Unlock()
	return nil
}
