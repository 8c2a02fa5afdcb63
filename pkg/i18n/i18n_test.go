package i18n

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tests := []struct {
		lang string
		key  string
		args []interface{}
		want string
	}{
		{"en", "music.volume_set", []interface{}{35}, "Volume set to 35%"},
		{"es", "music.playlist_empty", nil, "La lista de reproducción está vacía"},
		{"zh-TW", "debug.pong", nil, "pong"},
		{"en", "music.now_playing", []interface{}{"Song", "https://youtu.be/x"}, "Now playing: [Song](https://youtu.be/x)"},
	}
	for _, tt := range tests {
		got, err := Get(tt.lang, tt.key, tt.args...)
		if err != nil {
			t.Errorf("Get(%s, %s) error: %v", tt.lang, tt.key, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Get(%s, %s) = %q, want %q", tt.lang, tt.key, got, tt.want)
		}
	}
}

func TestGetInvalidKey(t *testing.T) {
	_, err := Get("en", "music.does_not_exist")
	assert.True(t, errors.Is(err, ErrInvalidKey))

	_, err = Get("en", "music.volume_set.deeper")
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestGetNonStringValue(t *testing.T) {
	_, err := Get("en", "music")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidKey))
}

func TestGetUnknownLanguage(t *testing.T) {
	_, err := Get("xx", "music.playlist_empty")
	assert.Error(t, err)
}

func TestTFallbacks(t *testing.T) {
	assert.Equal(t, "Playlist is empty", T("fr", "music.playlist_empty"))
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))
	assert.Equal(t, "Lista de reproducción vaciada", T("es-ES", "music.cleared"))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en-US", "en"},
		{"en-GB", "en"},
		{"es-ES", "es"},
		{"zh-TW", "zh-TW"},
		{"", "en"},
		{"not a locale!", "en"},
	}
	for _, tt := range tests {
		if got := Match(tt.in); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "a b a", Format("{0} {1} {0}", "a", "b"))
	assert.Equal(t, "{0}", Format("{0}"))
}

func TestReload(t *testing.T) {
	_, err := Get("en", "debug.pong")
	require.NoError(t, err)

	mu.RLock()
	_, cached := cache["en"]
	mu.RUnlock()
	assert.True(t, cached)

	Reload("en")
	mu.RLock()
	_, cached = cache["en"]
	mu.RUnlock()
	assert.False(t, cached)

	_, _ = Get("es", "debug.pong")
	Reload("")
	mu.RLock()
	assert.Empty(t, cache)
	mu.RUnlock()
}

func TestCatalogsHaveTheSameKeys(t *testing.T) {
	flatten := func(lang string) map[string]bool {
		catalog, err := loadLanguage(lang)
		require.NoError(t, err)
		out := map[string]bool{}
		var walk func(prefix string, node map[string]interface{})
		walk = func(prefix string, node map[string]interface{}) {
			for k, v := range node {
				if child, ok := v.(map[string]interface{}); ok {
					walk(prefix+k+".", child)
					continue
				}
				out[prefix+k] = true
			}
		}
		walk("", catalog)
		return out
	}

	base := flatten(DefaultLocale)
	for _, lang := range Supported() {
		keys := flatten(lang)
		for k := range base {
			if !keys[k] {
				t.Errorf("%s is missing key %s", lang, k)
			}
		}
	}
}
