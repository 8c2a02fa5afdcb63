package music

import (
	"testing"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wader/goutubedl"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=abc123&list=PL1&t=30", "https://www.youtube.com/watch?v=abc123", false},
		{"https://youtu.be/abc123?si=tracking", "https://youtu.be/abc123", false},
		{"  https://music.youtube.com/watch?v=xyz  ", "https://music.youtube.com/watch?v=xyz", false},
		{"https://soundcloud.com/some/track?in=likes", "https://soundcloud.com/some/track?in=likes", false},
		{"https://www.bilibili.com/video/BV1xx", "https://www.bilibili.com/video/BV1xx", false},
		{"youtube.com/watch?v=abc", "", true},
		{"ftp://files.example.com/song.mp3", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsKind(err, errors.KindValue))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBestAudio(t *testing.T) {
	formats := []goutubedl.Format{
		{FormatID: "137", ACodec: "none", VCodec: "avc1"},
		{FormatID: "18", ACodec: "mp4a", VCodec: "avc1", TBR: 900},
		{FormatID: "249", ACodec: "opus", VCodec: "none", ABR: 50},
		{FormatID: "251", ACodec: "opus", VCodec: "none", ABR: 160},
		{FormatID: "140", ACodec: "mp4a", VCodec: "none", ABR: 300},
	}
	urls := map[string]string{
		"137": "video-only",
		"18":  "muxed",
		"249": "audio-low",
		"251": "audio-high",
	}
	// 140 has no url and is skipped despite the higher bitrate
	assert.Equal(t, "audio-high", bestAudio(formats, urls))
	assert.Equal(t, "muxed", bestAudio(formats[:2], urls))
	assert.Equal(t, "", bestAudio(formats[:1], urls))
	assert.Equal(t, "", bestAudio(formats, nil))
}

func TestFormatURLs(t *testing.T) {
	raw := []byte(`{"title":"Song","formats":[
		{"format_id":"249","url":"https://cdn/249","acodec":"opus"},
		{"format_id":"251","url":"https://cdn/251","acodec":"opus"},
		{"format_id":"sb0","acodec":"none"}
	]}`)
	urls := formatURLs(raw)
	assert.Equal(t, map[string]string{"249": "https://cdn/249", "251": "https://cdn/251"}, urls)

	assert.Nil(t, formatURLs(nil))
	assert.Nil(t, formatURLs([]byte("not json")))
}

func TestTrackFromInfo(t *testing.T) {
	info := goutubedl.Info{
		Title:      "Song",
		URL:        "https://cdn/stream",
		WebpageURL: "https://www.youtube.com/watch?v=abc",
		Duration:   215,
		Thumbnail:  "https://img",
		Uploader:   "Band",
	}
	track, err := trackFromInfo("https://youtu.be/abc", info, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/stream", track.StreamURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", track.URL)
	assert.Equal(t, "3:35", FormatDuration(track.Duration))

	_, err = trackFromInfo("https://youtu.be/abc", goutubedl.Info{Title: "no streams"}, nil)
	assert.True(t, errors.IsKind(err, errors.KindURLExtraction))

	info.URL = ""
	info.Formats = []goutubedl.Format{{FormatID: "251", ACodec: "opus", VCodec: "none", ABR: 160}}
	track, err = trackFromInfo("https://youtu.be/abc", info, map[string]string{"251": "https://cdn/251"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/251", track.StreamURL)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "LIVE"},
		{5, "0:05"},
		{65, "1:05"},
		{3600, "1:00:00"},
		{3725.9, "1:02:05"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
