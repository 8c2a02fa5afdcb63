package music

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestManagerGetAndLookup(t *testing.T) {
	m, _ := newTestManager(&fakeStreamer{})
	defer m.Close()

	_, ok := m.Lookup("g1")
	assert.False(t, ok)

	p := m.Get("g1")
	assert.Same(t, p, m.Get("g1"))

	found, ok := m.Lookup("g1")
	require.True(t, ok)
	assert.Same(t, p, found)
	assert.Equal(t, []string{"g1"}, m.Guilds())
}

func TestManagerRemoveClearsPlaylist(t *testing.T) {
	m, joiner := newTestManager(&fakeStreamer{})
	defer m.Close()

	ctx := context.Background()
	p := m.Get("g1")
	require.NoError(t, p.Join("voice-1"))
	_, err := p.AddToPlaylist(ctx, "alice", "https://youtu.be/a")
	require.NoError(t, err)

	require.NoError(t, m.Remove(ctx, "g1"))
	_, ok := m.Lookup("g1")
	assert.False(t, ok)
	assert.True(t, joiner.last().isDisconnected())

	n, _ := p.Playlist().Len(ctx)
	assert.Zero(t, n)

	assert.NoError(t, m.Remove(ctx, "missing"))
}

func TestManagerForgetReleasesConnection(t *testing.T) {
	m, joiner := newTestManager(&fakeStreamer{})
	defer m.Close()

	p := m.Get("g1")
	require.NoError(t, p.Join("voice-1"))

	m.Forget("g1")
	_, ok := m.Lookup("g1")
	assert.False(t, ok)
	assert.False(t, p.Connected())
	assert.True(t, joiner.last().isDisconnected())

	// A second forget has nothing left to release
	m.Forget("g1")
}

func TestManagerSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	m, _ := newTestManager(&fakeStreamer{})

	states, unsubscribe := m.Subscribe("g1")
	p := m.Get("g1")
	require.NoError(t, p.Join("voice-1"))

	st := <-states
	assert.Equal(t, "connected", st.Event)
	assert.Equal(t, "g1", st.GuildID)
	assert.True(t, st.Connected)
	assert.Equal(t, "voice-1", st.ChannelID)

	p.SetVolume(40)
	st = <-states
	assert.Equal(t, "volume", st.Event)
	assert.Equal(t, 40, st.Volume)

	unsubscribe()
	unsubscribe()
	_, open := <-states
	assert.False(t, open)

	other, _ := m.Subscribe("g2")
	m.Close()
	_, open = <-other
	assert.False(t, open, "close ends every subscription")
}

func TestManagerPublishesEvents(t *testing.T) {
	m, _ := newTestManager(&fakeStreamer{})
	defer m.Close()

	pub := &fakePublisher{}
	m.SetPublisher(pub)

	p := m.Get("g1")
	require.NoError(t, p.Join("voice-1"))

	require.Eventually(t, func() bool {
		for _, topic := range pub.topics() {
			if topic == "tavern/music/g1/connected" {
				return true
			}
		}
		return false
	}, waitFor, tick)
}

func TestManagerTopic(t *testing.T) {
	m := NewManager(&fakeJoiner{}, fakeResolver{}, &fakeStreamer{}, nil, DefaultOptions())
	defer m.Close()
	assert.Equal(t, "tavern/music/123/playing", m.Topic("123", "playing"))
}

func TestStateTrack(t *testing.T) {
	st := newTrackState(&Track{Title: "Song", Uploader: "Band", Duration: 90, URL: "u", RequestedBy: "alice"})
	assert.Equal(t, "Band", st.Artist)
	assert.Equal(t, 90.0, st.Duration)
	assert.Equal(t, "alice", st.RequestedBy)
}

func TestManagerSnapshot(t *testing.T) {
	m, _ := newTestManager(&fakeStreamer{})
	defer m.Close()
	ctx := context.Background()

	idle, err := m.Snapshot(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", idle.GuildID)
	assert.Equal(t, DefaultVolume, idle.Volume)
	assert.False(t, idle.Connected)
	assert.Empty(t, idle.Queue)
	_, ok := m.Lookup("g1")
	assert.False(t, ok, "a snapshot must not create a player")

	_, err = m.Get("g1").AddToPlaylist(ctx, "alice", "https://youtu.be/a", "https://youtu.be/b")
	require.NoError(t, err)

	snap, err := m.Snapshot(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, snap.Queue, 2)
	assert.Equal(t, "https://youtu.be/a", snap.Queue[0].URL)
	assert.Equal(t, "alice", snap.Queue[1].RequestedBy)
}

func TestHandleStateRequest(t *testing.T) {
	m, _ := newTestManager(&fakeStreamer{})
	defer m.Close()

	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{"missing guild", map[string]interface{}{}, true},
		{"wrong type", map[string]interface{}{"guildId": 42}, true},
		{"guild", map[string]interface{}{"guildId": "g1", "_topic": "music/state"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.HandleStateRequest(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleStateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			snap, ok := got.(Snapshot)
			require.True(t, ok)
			assert.Equal(t, "g1", snap.GuildID)
		})
	}
}
