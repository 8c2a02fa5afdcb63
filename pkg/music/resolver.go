package music

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/goccy/go-json"
	"github.com/wader/goutubedl"
)

// NormalizeURL validates an http(s) link for yt-dlp. YouTube links are
// reduced to scheme, host, path and the video id, dropping playlist and
// tracking parameters; links of other sites are passed through unchanged.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", errors.NewValueError("music.invalid_url", "Invalid url: %s", raw)
	}
	if !isYouTube(u.Hostname()) {
		return raw, nil
	}

	real := u.Scheme + "://" + u.Hostname() + u.Path
	if v := u.Query().Get("v"); v != "" {
		real += "?v=" + v
	}
	return real, nil
}

func isYouTube(host string) bool {
	host = strings.ToLower(host)
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

// YtDlpResolver extracts stream URLs with yt-dlp
type YtDlpResolver struct {
	timeout time.Duration
}

// NewYtDlpResolver uses the yt-dlp binary at path (or on $PATH when empty)
func NewYtDlpResolver(path string, timeout time.Duration) *YtDlpResolver {
	if path != "" {
		goutubedl.Path = path
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YtDlpResolver{timeout: timeout}
}

// Resolve fetches the metadata of a single video and picks its audio stream
func (r *YtDlpResolver) Resolve(ctx context.Context, raw string) (*Track, error) {
	link, err := NormalizeURL(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := goutubedl.New(ctx, link, goutubedl.Options{Type: goutubedl.TypeSingle})
	if err != nil {
		return nil, errors.NewURLExtractionError("music.extract_failed", "Could not extract audio from %s", link).WithCause(err)
	}
	return trackFromInfo(link, result.Info, formatURLs(result.RawJSON))
}

// formatURLs maps format_id to the media url of each format in the raw
// yt-dlp JSON; goutubedl.Format does not decode the url
func formatURLs(raw []byte) map[string]string {
	var doc struct {
		Formats []struct {
			FormatID string `json:"format_id"`
			URL      string `json:"url"`
		} `json:"formats"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &doc) != nil {
		return nil
	}
	urls := make(map[string]string, len(doc.Formats))
	for _, f := range doc.Formats {
		if f.URL != "" {
			urls[f.FormatID] = f.URL
		}
	}
	return urls
}

func trackFromInfo(link string, info goutubedl.Info, urls map[string]string) (*Track, error) {
	stream := info.URL
	if stream == "" {
		stream = bestAudio(info.Formats, urls)
	}
	if stream == "" {
		return nil, errors.NewURLExtractionError("music.extract_failed", "Could not extract audio from %s", link)
	}

	page := info.WebpageURL
	if page == "" {
		page = link
	}
	return &Track{
		Title:       info.Title,
		StreamURL:   stream,
		URL:         page,
		Description: info.Description,
		Duration:    info.Duration,
		Thumbnail:   info.Thumbnail,
		Uploader:    info.Uploader,
	}, nil
}

// bestAudio prefers audio-only formats with the highest bitrate and falls
// back to any format that carries audio. Formats without a url are skipped.
func bestAudio(formats []goutubedl.Format, urls map[string]string) string {
	var best, fallback *goutubedl.Format
	for i := range formats {
		f := &formats[i]
		if urls[f.FormatID] == "" || f.ACodec == "none" || f.ACodec == "" {
			continue
		}
		if f.VCodec == "none" {
			if best == nil || f.ABR > best.ABR {
				best = f
			}
			continue
		}
		if fallback == nil || f.TBR > fallback.TBR {
			fallback = f
		}
	}
	if best != nil {
		return urls[best.FormatID]
	}
	if fallback != nil {
		return urls[fallback.FormatID]
	}
	return ""
}
