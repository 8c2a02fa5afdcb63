// Package fetch downloads remote resources that users link in commands,
// such as avatar images, with size and content-type limits.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
)

// DefaultMaxSize is the largest body accepted by DownloadImage
const DefaultMaxSize = 10 * 1024 * 1024

// Options limits what DownloadImage accepts
type Options struct {
	MaxSize int64
	// AllowedContentTypes are prefixes such as "image/". Empty means "image/".
	AllowedContentTypes []string
	Client              *http.Client
}

var defaultClient = &http.Client{Timeout: 15 * time.Second}

func downloadError(format string, args ...interface{}) *errors.UserError {
	return errors.NewDownloadError("anonymous.invalid_avatar", format, args...)
}

// DownloadImage fetches url and returns its body
func DownloadImage(ctx context.Context, url string, opts Options) ([]byte, error) {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if len(opts.AllowedContentTypes) == 0 {
		opts.AllowedContentTypes = []string{"image/"}
	}
	client := opts.Client
	if client == nil {
		client = defaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, downloadError("Invalid URL: %s", url).WithCause(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("Download failed: %s, error: %v", url, err), "Fetch")
		return nil, downloadError("Download failed: %s", url).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error(fmt.Sprintf("Download failed: %s, HTTP status code: %d", url, resp.StatusCode), "Fetch")
		return nil, downloadError("Unable to download image, HTTP status code: %d.", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil, downloadError("Unable to determine content type.")
	}
	if !allowed(contentType, opts.AllowedContentTypes) {
		logger.Error(fmt.Sprintf("Download failed: %s, invalid content type: %s", url, contentType), "Fetch")
		return nil, downloadError("Invalid content type: %s.", contentType)
	}

	if resp.ContentLength > opts.MaxSize {
		return nil, downloadError("Download failed, file too large (Content-Length): %d.", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxSize+1))
	if err != nil {
		return nil, downloadError("Download failed: %s", url).WithCause(err)
	}
	if int64(len(body)) > opts.MaxSize {
		return nil, downloadError("Image too large (actual size): %d bytes.", len(body))
	}

	logger.Debug(fmt.Sprintf("Downloaded successfully: %s, size: %d bytes", url, len(body)), "Fetch")
	return body, nil
}

func allowed(contentType string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(contentType, p) {
			return true
		}
	}
	return false
}
