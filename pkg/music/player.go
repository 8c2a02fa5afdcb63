package music

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Volume bounds and defaults
const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 20

	// frameDuration is the length of one 960 sample opus frame at 48kHz
	frameDuration = 20 * time.Millisecond
	sendTimeout   = time.Second
	resolveLimit  = 4
)

var errSendTimeout = stderrors.New("timed out sending opus frame")

// streamTask is one running playback of a single track
type streamTask struct {
	cancel        context.CancelFunc
	done          chan struct{}
	continueAfter bool
}

// Player plays the playlist of a single guild
type Player struct {
	guildID  string
	ctx      context.Context
	joiner   VoiceJoiner
	resolver Resolver
	streamer Streamer
	playlist Playlist
	opts     Options
	notify   func(event string, st State)

	mu      sync.Mutex
	voice   VoiceConn
	current *Track
	stream  *streamTask
	// gen changes on every Stop so a pending continuation can tell it was cancelled
	gen uint64

	volume atomic.Int32
	frames atomic.Int64

	pauseMu  sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

// GuildID returns the guild this player belongs to
func (p *Player) GuildID() string {
	return p.guildID
}

// Playlist returns the queue backing this player
func (p *Player) Playlist() Playlist {
	return p.playlist
}

// Connected reports whether the player holds a voice connection
func (p *Player) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voice != nil
}

// ChannelID returns the voice channel the player is connected to
func (p *Player) ChannelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.voice == nil {
		return ""
	}
	return p.voice.ChannelID()
}

// Current returns the track being played, if any
func (p *Player) Current() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Playing reports whether a track is streaming (paused or not)
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}

// Progress returns how far into the current track playback is
func (p *Player) Progress() time.Duration {
	return time.Duration(p.frames.Load()) * frameDuration
}

// Volume returns the current volume between 0 and 100
func (p *Player) Volume() int {
	return int(p.volume.Load())
}

// Paused reports whether playback is paused
func (p *Player) Paused() bool {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	return p.paused
}

// WaitResumed blocks while playback is paused or until ctx is done
func (p *Player) WaitResumed(ctx context.Context) error {
	p.pauseMu.Lock()
	if !p.paused {
		p.pauseMu.Unlock()
		return nil
	}
	ch := p.resumeCh
	p.pauseMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Player) pause() bool {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	if p.paused {
		return false
	}
	p.paused = true
	p.resumeCh = make(chan struct{})
	return true
}

func (p *Player) resume() bool {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	if !p.paused {
		return false
	}
	p.paused = false
	close(p.resumeCh)
	return true
}

func errBotNotConnected() error {
	return errors.NewStatusError("music.bot_not_connected", "The bot is not connected to a voice channel")
}

func errNothingPlaying() error {
	return errors.NewStatusError("music.nothing_playing", "Nothing is playing right now")
}

// Join connects to channelID, moving the existing connection if there is one
func (p *Player) Join(channelID string) error {
	p.mu.Lock()
	if p.voice != nil {
		if p.voice.ChannelID() == channelID {
			p.mu.Unlock()
			return nil
		}
		err := p.voice.ChangeChannel(channelID, false, true)
		st := p.stateLocked()
		p.mu.Unlock()
		if err != nil {
			return fmt.Errorf("move to channel %s: %w", channelID, err)
		}
		p.emit("connected", st)
		return nil
	}

	vc, err := p.joiner.JoinVoice(p.guildID, channelID)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("join channel %s: %w", channelID, err)
	}
	p.voice = vc
	st := p.stateLocked()
	p.mu.Unlock()

	logger.Info(fmt.Sprintf("🔊 Conectado al canal de voz %s en %s", channelID, p.guildID), "Music")
	p.emit("connected", st)
	return nil
}

// Leave stops playback and disconnects from voice. The playlist is kept.
func (p *Player) Leave() error {
	p.Stop()

	p.mu.Lock()
	vc := p.voice
	p.voice = nil
	st := p.stateLocked()
	p.mu.Unlock()

	if vc == nil {
		return errBotNotConnected()
	}
	err := vc.Disconnect()
	p.emit("disconnected", st)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Detach forgets a voice connection that was closed from the outside. The
// connection is still disconnected so discordgo drops its websocket and
// UDP state; errors there only get logged.
func (p *Player) Detach() {
	p.Stop()

	p.mu.Lock()
	vc := p.voice
	p.voice = nil
	st := p.stateLocked()
	p.mu.Unlock()

	if vc == nil {
		return
	}
	if err := vc.Disconnect(); err != nil {
		logger.Debug(fmt.Sprintf("Liberando la conexión de voz de %s: %v", p.guildID, err), "Music")
	}
	p.emit("disconnected", st)
}

// Destroy leaves voice and clears the playlist
func (p *Player) Destroy(ctx context.Context) error {
	if err := p.Leave(); err != nil && !errors.IsKind(err, errors.KindStatus) {
		logger.Warn(fmt.Sprintf("⚠️ Error al desconectar en %s: %v", p.guildID, err), "Music")
	}
	return p.playlist.Clear(ctx)
}

// Play starts the next track of the playlist. A paused track is resumed and
// a running one is left alone. An empty playlist is not an error.
func (p *Player) Play(ctx context.Context) error {
	return p.play(ctx, 0, false)
}

func (p *Player) play(ctx context.Context, gen uint64, continuing bool) error {
	p.mu.Lock()
	if continuing && p.gen != gen {
		p.mu.Unlock()
		return nil
	}
	if p.voice == nil {
		p.mu.Unlock()
		return errBotNotConnected()
	}
	if p.stream != nil {
		resumed := p.resume()
		st := p.stateLocked()
		p.mu.Unlock()
		if resumed {
			p.emit("resumed", st)
		}
		return nil
	}

	track, err := p.playlist.Pop(ctx)
	if err != nil {
		p.mu.Unlock()
		if stderrors.Is(err, ErrPlaylistEmpty) {
			return nil
		}
		return fmt.Errorf("pop playlist: %w", err)
	}
	p.startLocked(track)
	st := p.stateLocked()
	p.mu.Unlock()

	logger.Info(fmt.Sprintf("🎵 Reproduciendo %q en %s", track.Title, p.guildID), "Music")
	p.emit("playing", st)
	return nil
}

// Resume continues a paused track, or starts the playlist if idle
func (p *Player) Resume(ctx context.Context) error {
	return p.Play(ctx)
}

// Pause pauses the current track
func (p *Player) Pause() error {
	p.mu.Lock()
	if p.stream == nil {
		p.mu.Unlock()
		return errNothingPlaying()
	}
	changed := p.pause()
	st := p.stateLocked()
	p.mu.Unlock()

	if changed {
		p.emit("paused", st)
	}
	return nil
}

// Stop ends the current track without advancing and waits for it to finish
func (p *Player) Stop() {
	p.mu.Lock()
	p.gen++
	task := p.stream
	if task != nil {
		task.continueAfter = false
		task.cancel()
	}
	p.mu.Unlock()

	// Esperar fuera del lock: after() también lo necesita
	if task != nil {
		<-task.done
	}
}

// Skip ends the current track and lets the next one start. With nothing
// playing it behaves like Play.
func (p *Player) Skip(ctx context.Context) error {
	p.mu.Lock()
	if p.voice == nil {
		p.mu.Unlock()
		return errBotNotConnected()
	}
	task := p.stream
	if task == nil {
		p.mu.Unlock()
		return p.Play(ctx)
	}
	task.continueAfter = true
	task.cancel()
	p.mu.Unlock()
	return nil
}

// SetVolume clamps v to 0..100 and applies it
func (p *Player) SetVolume(v int) int {
	v = clampVolume(v)
	p.volume.Store(int32(v))

	p.mu.Lock()
	st := p.stateLocked()
	p.mu.Unlock()
	p.emit("volume", st)
	return v
}

// AdjustVolume parses a user supplied volume. Only plain digits are
// accepted; values above 100 are clamped.
func (p *Player) AdjustVolume(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.IndexFunc(raw, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return p.Volume(), errors.NewValueError("music.volume_invalid", "Invalid volume: %s", raw)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		// Solo dígitos: el único fallo posible es el desbordamiento
		v = MaxVolume
	}
	return p.SetVolume(v), nil
}

// AddToPlaylist resolves urls concurrently and appends them in order
func (p *Player) AddToPlaylist(ctx context.Context, requestedBy string, urls ...string) ([]*Track, error) {
	if len(urls) == 0 {
		return nil, errors.NewValueError("music.no_urls", "No URLs were given")
	}

	tracks := make([]*Track, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveLimit)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			t, err := p.resolver.Resolve(gctx, url)
			if err != nil {
				return err
			}
			t.RequestedBy = requestedBy
			tracks[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := p.playlist.Push(ctx, tracks...); err != nil {
		return nil, p.pushErr(err)
	}
	p.emitQueue()
	return tracks, nil
}

// AddNext resolves url and queues it right after the current track
func (p *Player) AddNext(ctx context.Context, requestedBy, url string) (*Track, error) {
	t, err := p.resolver.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	t.RequestedBy = requestedBy
	if err := p.playlist.PushFront(ctx, t); err != nil {
		return nil, p.pushErr(err)
	}
	p.emitQueue()
	return t, nil
}

func (p *Player) pushErr(err error) error {
	if stderrors.Is(err, ErrPlaylistFull) {
		return errors.NewValueError("music.playlist_full", "The playlist is full (%d tracks)", p.opts.MaxPlaylist).WithCause(err)
	}
	return fmt.Errorf("push playlist: %w", err)
}

// Queue returns the upcoming tracks
func (p *Player) Queue(ctx context.Context) ([]*Track, error) {
	return p.playlist.List(ctx)
}

// Clear empties the playlist. The current track keeps playing.
func (p *Player) Clear(ctx context.Context) error {
	if err := p.playlist.Clear(ctx); err != nil {
		return err
	}
	p.emitQueue()
	return nil
}

func (p *Player) emitQueue() {
	p.mu.Lock()
	st := p.stateLocked()
	p.mu.Unlock()
	p.emit("queue", st)
}

// startLocked launches the stream goroutine for track. p.mu must be held.
func (p *Player) startLocked(track *Track) {
	ctx, cancel := context.WithCancel(p.ctx)
	task := &streamTask{cancel: cancel, done: make(chan struct{}), continueAfter: true}
	p.stream = task
	p.current = track
	p.frames.Store(0)

	go p.run(ctx, task, p.voice, track)
	if p.opts.ProgressInterval > 0 && p.notify != nil {
		go p.reportProgress(task)
	}
}

func (p *Player) run(ctx context.Context, task *streamTask, voice VoiceConn, track *Track) {
	defer close(task.done)

	var err error
	func() {
		defer errors.RecoverMiddleware()()
		err = p.playTrack(ctx, voice, track)
	}()
	p.after(task, err)
}

func (p *Player) playTrack(ctx context.Context, voice VoiceConn, track *Track) error {
	if err := voice.Speaking(true); err != nil {
		logger.Warn(fmt.Sprintf("⚠️ No se pudo activar speaking en %s: %v", p.guildID, err), "Music")
	}
	defer voice.Speaking(false)

	return p.streamer.Stream(ctx, track.StreamURL, p, func(frame []byte) error {
		return p.send(ctx, voice, frame)
	})
}

func (p *Player) send(ctx context.Context, voice VoiceConn, frame []byte) error {
	select {
	case voice.OpusSend() <- frame:
		p.frames.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sendTimeout):
		return errSendTimeout
	}
}

// after runs once a stream goroutine finishes and advances the playlist
func (p *Player) after(task *streamTask, err error) {
	p.mu.Lock()
	if p.stream != task {
		p.mu.Unlock()
		return
	}
	finished := p.current
	p.stream = nil
	p.current = nil
	p.resume()
	next := task.continueAfter
	gen := p.gen
	st := p.stateLocked()
	p.mu.Unlock()

	task.cancel()
	if err != nil && !stderrors.Is(err, context.Canceled) {
		logger.Warn(fmt.Sprintf("⚠️ Error reproduciendo %q en %s: %v", finished.Title, p.guildID, err), "Music")
		errors.Track(err)
	}
	p.emit("stopped", st)

	if next && p.ctx.Err() == nil {
		if err := p.play(p.ctx, gen, true); err != nil && !errors.IsUserError(err) {
			logger.Error(fmt.Sprintf("❌ Error al continuar la cola en %s: %v", p.guildID, err), "Music")
		}
	}
}

func (p *Player) reportProgress(task *streamTask) {
	ticker := time.NewTicker(p.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-task.done:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.stream != task {
				p.mu.Unlock()
				return
			}
			st := p.stateLocked()
			p.mu.Unlock()
			if !st.IsPaused {
				p.emit("progress", st)
			}
		}
	}
}

func (p *Player) emit(event string, st State) {
	if p.notify != nil {
		p.notify(event, st)
	}
}

// State returns a snapshot of the player
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// stateLocked builds the snapshot. p.mu must be held.
func (p *Player) stateLocked() State {
	st := State{
		GuildID:   p.guildID,
		Connected: p.voice != nil,
		IsPlaying: p.stream != nil,
		IsPaused:  p.Paused(),
		Progress:  p.Progress().Seconds(),
		Volume:    p.Volume(),
		Timestamp: time.Now().UnixMilli(),
	}
	if p.voice != nil {
		st.ChannelID = p.voice.ChannelID()
	}
	if p.current != nil {
		st.CurrentTrack = newTrackState(p.current)
	}
	return st
}
