package music

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"
)

type fakeVoice struct {
	mu           sync.Mutex
	channelID    string
	speaking     bool
	disconnected bool
	opus         chan []byte
}

func newFakeVoice(channelID string) *fakeVoice {
	return &fakeVoice{channelID: channelID, opus: make(chan []byte, 256)}
}

func (v *fakeVoice) ChannelID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.channelID
}

func (v *fakeVoice) Speaking(speaking bool) error {
	v.mu.Lock()
	v.speaking = speaking
	v.mu.Unlock()
	return nil
}

func (v *fakeVoice) OpusSend() chan<- []byte {
	return v.opus
}

func (v *fakeVoice) ChangeChannel(channelID string, _, _ bool) error {
	v.mu.Lock()
	v.channelID = channelID
	v.mu.Unlock()
	return nil
}

func (v *fakeVoice) Disconnect() error {
	v.mu.Lock()
	v.disconnected = true
	v.mu.Unlock()
	return nil
}

func (v *fakeVoice) isDisconnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnected
}

type fakeJoiner struct {
	mu     sync.Mutex
	joins  int
	voices []*fakeVoice
	err    error
}

func (j *fakeJoiner) JoinVoice(_, channelID string) (VoiceConn, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	j.joins++
	v := newFakeVoice(channelID)
	j.voices = append(j.voices, v)
	return v, nil
}

func (j *fakeJoiner) last() *fakeVoice {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.voices) == 0 {
		return nil
	}
	return j.voices[len(j.voices)-1]
}

// fakeResolver resolves any URL; URLs containing "bad" fail and URLs
// containing "slow" take a little longer
type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, url string) (*Track, error) {
	if strings.Contains(url, "bad") {
		return nil, stderrors.New("extraction failed")
	}
	if strings.Contains(url, "slow") {
		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &Track{Title: url, URL: url, StreamURL: "stream:" + url, Duration: 60}, nil
}

// fakeStreamer sends frames frames per track, or blocks until cancelled
// when frames is zero
type fakeStreamer struct {
	frames int

	mu      sync.Mutex
	started []string
}

func (s *fakeStreamer) Stream(ctx context.Context, streamURL string, control PlaybackControl, send func([]byte) error) error {
	s.mu.Lock()
	s.started = append(s.started, streamURL)
	s.mu.Unlock()

	if s.frames == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	for i := 0; i < s.frames; i++ {
		if err := control.WaitResumed(ctx); err != nil {
			return err
		}
		if err := send([]byte{byte(i)}); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStreamer) Started() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.started...)
}

type recordedEvent struct {
	topic string
	state State
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, _ := payload.(State)
	p.events = append(p.events, recordedEvent{topic: topic, state: st})
	return nil
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.topic)
	}
	return out
}
