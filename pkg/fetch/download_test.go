package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/avatar.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG fake"))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/big.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte(strings.Repeat("x", 64)))
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadImage(t *testing.T) {
	srv := newServer(t)

	body, err := DownloadImage(context.Background(), srv.URL+"/avatar.png", Options{})
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(body))
}

func TestDownloadImageRejections(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name string
		path string
		opts Options
	}{
		{"wrong content type", "/page", Options{}},
		{"too large", "/big.png", Options{MaxSize: 16}},
		{"not found", "/missing.png", Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DownloadImage(context.Background(), srv.URL+tt.path, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindDownload), "got %v", err)
		})
	}
}

func TestDownloadImageCustomContentTypes(t *testing.T) {
	srv := newServer(t)

	_, err := DownloadImage(context.Background(), srv.URL+"/page", Options{AllowedContentTypes: []string{"text/"}})
	assert.NoError(t, err)
}

func TestDownloadImageBadURL(t *testing.T) {
	_, err := DownloadImage(context.Background(), "://nope", Options{})
	assert.True(t, errors.IsKind(err, errors.KindDownload))
}
