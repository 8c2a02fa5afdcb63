package music

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
)

// State is the snapshot published on every player event
type State struct {
	GuildID      string      `json:"guildId"`
	Event        string      `json:"event,omitempty"`
	Connected    bool        `json:"connected"`
	ChannelID    string      `json:"channelId,omitempty"`
	IsPlaying    bool        `json:"isPlaying"`
	IsPaused     bool        `json:"isPaused"`
	CurrentTrack *TrackState `json:"currentTrack"`
	Progress     float64     `json:"progress"`
	Volume       int         `json:"volume"`
	Timestamp    int64       `json:"timestamp"`
}

// TrackState represents a track in the published state
type TrackState struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist,omitempty"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	URL         string  `json:"url"`
	RequestedBy string  `json:"requestedBy,omitempty"`
}

func newTrackState(t *Track) *TrackState {
	return &TrackState{
		Title:       t.Title,
		Artist:      t.Uploader,
		Duration:    t.Duration,
		Thumbnail:   t.Thumbnail,
		URL:         t.URL,
		RequestedBy: t.RequestedBy,
	}
}

// Publisher receives player events, e.g. the MQTT communicator
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// Options tune every player created by a Manager
type Options struct {
	DefaultVolume    int
	MaxPlaylist      int
	ProgressInterval time.Duration
	// TopicRoot prefixes published topics: <root>/music/<guild>/<event>
	TopicRoot string
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		DefaultVolume:    DefaultVolume,
		MaxPlaylist:      100,
		ProgressInterval: 5 * time.Second,
		TopicRoot:        "tavern",
	}
}

// Manager owns one Player per guild
type Manager struct {
	ctx       context.Context
	cancel    context.CancelFunc
	joiner    VoiceJoiner
	resolver  Resolver
	streamer  Streamer
	playlists PlaylistFactory
	opts      Options

	mu      sync.Mutex
	players map[string]*Player

	pubMu     sync.RWMutex
	publisher Publisher

	subMu sync.Mutex
	subs  map[string]map[chan State]struct{}
}

var (
	manager     *Manager
	managerOnce sync.Once
)

// Init initializes the global music manager
func Init(joiner VoiceJoiner, resolver Resolver, streamer Streamer, playlists PlaylistFactory, opts Options) *Manager {
	managerOnce.Do(func() {
		manager = NewManager(joiner, resolver, streamer, playlists, opts)
	})
	return manager
}

// GetManager returns the global music manager
func GetManager() *Manager {
	return manager
}

// NewManager creates a manager. A nil playlists factory keeps queues in memory.
func NewManager(joiner VoiceJoiner, resolver Resolver, streamer Streamer, playlists PlaylistFactory, opts Options) *Manager {
	if opts.DefaultVolume == 0 {
		opts.DefaultVolume = DefaultVolume
	}
	if playlists == nil {
		max := opts.MaxPlaylist
		playlists = func(string) Playlist { return NewMemoryPlaylist(max) }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:       ctx,
		cancel:    cancel,
		joiner:    joiner,
		resolver:  resolver,
		streamer:  streamer,
		playlists: playlists,
		opts:      opts,
		players:   make(map[string]*Player),
		subs:      make(map[string]map[chan State]struct{}),
	}
}

// SetPublisher sets where player events are published
func (m *Manager) SetPublisher(pub Publisher) {
	m.pubMu.Lock()
	m.publisher = pub
	m.pubMu.Unlock()
}

// Get returns the player of a guild, creating it on first use
func (m *Manager) Get(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		return p
	}
	p := &Player{
		guildID:  guildID,
		ctx:      m.ctx,
		joiner:   m.joiner,
		resolver: m.resolver,
		streamer: m.streamer,
		playlist: m.playlists(guildID),
		opts:     m.opts,
	}
	p.notify = func(event string, st State) { m.notify(event, st) }
	p.volume.Store(int32(clampVolume(m.opts.DefaultVolume)))
	m.players[guildID] = p
	return p
}

// Lookup returns the player of a guild without creating it
func (m *Manager) Lookup(guildID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

// Guilds returns the IDs of guilds with a player
func (m *Manager) Guilds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	return ids
}

// Remove destroys the player of a guild and clears its playlist
func (m *Manager) Remove(ctx context.Context, guildID string) error {
	m.mu.Lock()
	p, ok := m.players[guildID]
	delete(m.players, guildID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return p.Destroy(ctx)
}

// Forget drops a player whose voice connection went away. The playlist is
// kept so a later join can continue it.
func (m *Manager) Forget(guildID string) {
	m.mu.Lock()
	p, ok := m.players[guildID]
	delete(m.players, guildID)
	m.mu.Unlock()

	if ok {
		p.Detach()
	}
}

// Close disconnects every player and stops background work
func (m *Manager) Close() {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.players = make(map[string]*Player)
	m.mu.Unlock()

	for _, p := range players {
		if err := p.Leave(); err != nil {
			logger.Debug(fmt.Sprintf("Cerrando reproductor %s: %v", p.guildID, err), "Music")
		}
	}
	m.cancel()

	m.subMu.Lock()
	for gid, set := range m.subs {
		for ch := range set {
			close(ch)
		}
		delete(m.subs, gid)
	}
	m.subMu.Unlock()
}

// Subscribe streams the state of a guild's player. Slow readers miss
// events instead of blocking playback. Call the returned func to stop.
func (m *Manager) Subscribe(guildID string) (<-chan State, func()) {
	ch := make(chan State, 16)

	m.subMu.Lock()
	set, ok := m.subs[guildID]
	if !ok {
		set = make(map[chan State]struct{})
		m.subs[guildID] = set
	}
	set[ch] = struct{}{}
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if set, ok := m.subs[guildID]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(m.subs, guildID)
				}
			}
		})
	}
}

// Topic returns the topic an event of a guild is published on
func (m *Manager) Topic(guildID, event string) string {
	return fmt.Sprintf("%s/music/%s/%s", m.opts.TopicRoot, guildID, event)
}

func (m *Manager) notify(event string, st State) {
	st.Event = event

	m.subMu.Lock()
	for ch := range m.subs[st.GuildID] {
		select {
		case ch <- st:
		default:
		}
	}
	m.subMu.Unlock()

	m.pubMu.RLock()
	pub := m.publisher
	m.pubMu.RUnlock()
	if pub == nil {
		return
	}

	topic := m.Topic(st.GuildID, event)
	go func() {
		if err := pub.Publish(topic, st); err != nil {
			logger.Debug(fmt.Sprintf("No se pudo publicar %s: %v", topic, err), "Music")
		}
	}()
}

// Snapshot is the state of a guild's player together with its queue
type Snapshot struct {
	State
	Queue []*TrackState `json:"queue"`
}

// Snapshot returns the current state and queue of a guild. Guilds without a
// player report an idle state at the default volume.
func (m *Manager) Snapshot(ctx context.Context, guildID string) (Snapshot, error) {
	p, ok := m.Lookup(guildID)
	if !ok {
		return Snapshot{
			State: State{GuildID: guildID, Volume: clampVolume(m.opts.DefaultVolume), Timestamp: time.Now().UnixMilli()},
			Queue: []*TrackState{},
		}, nil
	}

	tracks, err := p.Queue(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	queue := make([]*TrackState, 0, len(tracks))
	for _, t := range tracks {
		queue = append(queue, newTrackState(t))
	}
	return Snapshot{State: p.State(), Queue: queue}, nil
}

// HandleStateRequest answers "music/state" requests. The payload must carry
// a guildId.
func (m *Manager) HandleStateRequest(payload map[string]interface{}) (interface{}, error) {
	guildID, _ := payload["guildId"].(string)
	if guildID == "" {
		return nil, fmt.Errorf("guildId is required")
	}
	ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
	defer cancel()
	return m.Snapshot(ctx, guildID)
}

func clampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}
