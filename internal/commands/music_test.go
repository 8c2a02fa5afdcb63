package commands

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/stretchr/testify/assert"
)

func TestSplitURLs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{}},
		{"single", "https://youtu.be/a", []string{"https://youtu.be/a"}},
		{"spaces and newlines", " https://youtu.be/a \n https://youtu.be/b ", []string{"https://youtu.be/a", "https://youtu.be/b"}},
		{"suppressed embeds", "<https://youtu.be/a> <https://youtu.be/b>", []string{"https://youtu.be/a", "https://youtu.be/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitURLs(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitURLs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatPlaylist(t *testing.T) {
	assert.Equal(t, "Playlist is empty", formatPlaylist("en", nil))

	tracks := []*music.Track{
		{Title: "First", URL: "https://youtu.be/1", Duration: 65},
		{Title: "Second", URL: "https://youtu.be/2"},
	}
	got := formatPlaylist("en", tracks)
	assert.Contains(t, got, "1.[First](https://youtu.be/1) `1:05`")
	assert.Contains(t, got, "2.[Second](https://youtu.be/2) `LIVE`")
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestFormatPlaylistTruncates(t *testing.T) {
	tracks := make([]*music.Track, playlistPageSize+3)
	for i := range tracks {
		tracks[i] = &music.Track{Title: fmt.Sprintf("t%d", i), URL: "u", Duration: 1}
	}

	got := formatPlaylist("en", tracks)
	assert.Contains(t, got, fmt.Sprintf("%d.[t%d]", playlistPageSize, playlistPageSize-1))
	assert.NotContains(t, got, fmt.Sprintf("%d.[", playlistPageSize+1))
	assert.Contains(t, got, "...and 3 more")
}

func TestVoiceStatus(t *testing.T) {
	st := music.State{ChannelID: "v1", Volume: 20}
	assert.Equal(t, "Connected to <#v1> with 2 track(s) queued at 20% volume", voiceStatus("en", st, 2))

	st.CurrentTrack = &music.TrackState{Title: "Song", URL: "https://youtu.be/s"}
	st.IsPaused = true
	assert.Contains(t, voiceStatus("en", st, 0), "⏸️ [Song](https://youtu.be/s)")
}

func TestNowPlayingEmbed(t *testing.T) {
	track := &music.Track{Title: "Song", URL: "https://youtu.be/s", Duration: 200, Thumbnail: "https://img/s.jpg", RequestedBy: "alice"}
	embed := nowPlayingEmbed("en", track, 0, 35)

	assert.Equal(t, "Now playing: [Song](https://youtu.be/s)", embed.Description)
	assert.Equal(t, "0:00 / 3:20", embed.Fields[0].Value)
	assert.Equal(t, "35%", embed.Fields[1].Value)
	assert.Equal(t, "https://img/s.jpg", embed.Thumbnail.URL)
	assert.Equal(t, "alice", embed.Footer.Text)
}
