// Package music implements per-guild music playback: a persistent playlist,
// a player that streams tracks into a voice connection and a manager that
// owns one player per guild.
package music

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Track is a resolved, playable audio source
type Track struct {
	Title       string  `json:"title"`
	StreamURL   string  `json:"stream_url"`
	URL         string  `json:"url"`
	Description string  `json:"description,omitempty"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Uploader    string  `json:"uploader,omitempty"`
	RequestedBy string  `json:"requested_by,omitempty"`
}

// Length returns the track duration as a time.Duration
func (t *Track) Length() time.Duration {
	return time.Duration(t.Duration * float64(time.Second))
}

// FormatDuration renders seconds as m:ss or h:mm:ss. Live streams have no
// duration and render as "LIVE".
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "LIVE"
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func encodeTrack(t *Track) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeTrack(raw string) (*Track, error) {
	var t Track
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}
