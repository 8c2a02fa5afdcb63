package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestServer(t *testing.T, opts Options, manager *music.Manager) *Server {
	t.Helper()
	s, err := NewServer(opts)
	require.NoError(t, err)
	SetupAPIRoutes(s, manager)
	return s
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewServerRejectsBadHostPattern(t *testing.T) {
	_, err := NewServer(Options{AllowedHosts: "(["})
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, DefaultOptions(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		key    string
		want   interface{}
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK, "status", "healthy"},
		{"not found", http.MethodGet, "/api/nothing", http.StatusNotFound, "error", "Not Found"},
		{"method not allowed", http.MethodPost, "/api/health", http.StatusMethodNotAllowed, "error", "Method Not Allowed"},
		{"bot offline", http.MethodGet, "/api/bot", http.StatusServiceUnavailable, "error", "Bot Offline"},
		{"music offline", http.MethodGet, "/api/music/1", http.StatusServiceUnavailable, "error", "Music Offline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, tt.method, tt.path)
			if w.Code != tt.status {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.status)
			}
			assert.Equal(t, tt.want, decode(t, w)[tt.key])
		})
	}
}

func TestStatusReportsOfflineDependencies(t *testing.T) {
	s := newTestServer(t, DefaultOptions(), nil)

	w := do(s, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["database"].(map[string]interface{})["isOnline"])
	assert.Equal(t, false, body["cache"].(map[string]interface{})["isOnline"])
	assert.Equal(t, false, body["bot"].(map[string]interface{})["isOnline"])
	assert.Equal(t, float64(0), body["music"].(map[string]interface{})["players"])
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, DefaultOptions(), nil)

	w := do(s, http.MethodGet, "/api/health")
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc")
	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(requestIDHeader))
}

func TestAllowedHosts(t *testing.T) {
	s := newTestServer(t, Options{AllowedHosts: `^api\.tavern\.gg$`}, nil)

	w := do(s, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Host = "api.tavern.gg"
	w = httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimit: rate.Every(time.Hour), RateBurst: 2}, nil)

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/health").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(s, http.MethodGet, "/api/health").Code)
}

func TestIPLimiterIsPerClient(t *testing.T) {
	l := newIPLimiter(rate.Every(time.Hour), 1)
	now := time.Now()

	assert.True(t, l.allow("1.1.1.1", now))
	assert.False(t, l.allow("1.1.1.1", now))
	assert.True(t, l.allow("2.2.2.2", now))
}

func TestMusicSnapshot(t *testing.T) {
	m := music.NewManager(nil, nil, nil, nil, music.DefaultOptions())
	defer m.Close()
	s := newTestServer(t, DefaultOptions(), m)

	w := do(s, http.MethodGet, "/api/music/g1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "g1", body["guildId"])
	assert.Equal(t, float64(music.DefaultVolume), body["volume"])
	assert.Equal(t, []interface{}{}, body["queue"])

	m.Get("g1").SetVolume(30)
	body = decode(t, do(s, http.MethodGet, "/api/music/g1"))
	assert.Equal(t, float64(30), body["volume"])
}

func TestMusicSocketStreamsEvents(t *testing.T) {
	m := music.NewManager(nil, nil, nil, nil, music.DefaultOptions())
	defer m.Close()
	s := newTestServer(t, DefaultOptions(), m)

	ts := httptest.NewServer(s.Engine())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/music/g1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snap music.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "g1", snap.GuildID)
	assert.Empty(t, snap.Queue)

	m.Get("g1").SetVolume(42)

	var st music.State
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, "volume", st.Event)
	assert.Equal(t, 42, st.Volume)
}
