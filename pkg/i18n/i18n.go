// Package i18n resolves translated bot messages from embedded JSON catalogs.
// Keys use dot notation ("music.volume_set") and values may reference
// positional arguments as {0}, {1}, ...
package i18n

import (
	"embed"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// DefaultLocale is used when a locale has no catalog or lacks a key
const DefaultLocale = "en"

// ErrInvalidKey is returned when a key does not resolve to a message
var ErrInvalidKey = stderrors.New("i18n: invalid key")

// supported lists the catalogs shipped with the bot
var supported = []string{"en", "es", "zh-TW"}

var (
	mu    sync.RWMutex
	cache = map[string]map[string]interface{}{}

	matcher = language.NewMatcher([]language.Tag{
		language.English,
		language.Spanish,
		language.MustParse("zh-TW"),
	})
)

// Supported returns the locales with a catalog
func Supported() []string {
	return append([]string(nil), supported...)
}

// Match maps a Discord locale ("en-US", "es-ES", "zh-TW") onto a supported
// catalog, falling back to DefaultLocale
func Match(locale string) string {
	if locale == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLocale
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultLocale
	}
	return supported[idx]
}

func loadLanguage(lang string) (map[string]interface{}, error) {
	mu.RLock()
	catalog, ok := cache[lang]
	mu.RUnlock()
	if ok {
		return catalog, nil
	}

	data, err := localeFS.ReadFile("locales/" + lang + ".json")
	if err != nil {
		return nil, fmt.Errorf("language file not found: %s", lang)
	}
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("language file %s: %w", lang, err)
	}

	mu.Lock()
	cache[lang] = catalog
	mu.Unlock()
	return catalog, nil
}

// Get returns the message for key in lang with args substituted
func Get(lang, key string, args ...interface{}) (string, error) {
	catalog, err := loadLanguage(lang)
	if err != nil {
		return "", err
	}

	var value interface{} = catalog
	for _, part := range strings.Split(key, ".") {
		node, ok := value.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("%w: %s:%s", ErrInvalidKey, lang, key)
		}
		if value, ok = node[part]; !ok {
			return "", fmt.Errorf("%w: %s:%s", ErrInvalidKey, lang, key)
		}
	}

	msg, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("i18n: expected string for %s:%s, got %T", lang, key, value)
	}
	return Format(msg, args...), nil
}

// T is Get with fallbacks: the default locale first, then the key itself
func T(lang, key string, args ...interface{}) string {
	if msg, err := Get(Match(lang), key, args...); err == nil {
		return msg
	}
	if msg, err := Get(DefaultLocale, key, args...); err == nil {
		return msg
	}
	return key
}

// Format replaces {0}, {1}, ... in msg with args
func Format(msg string, args ...interface{}) string {
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(args)*2)
	for i, a := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(a))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// Reload drops cached catalogs so they are read again. An empty lang
// reloads every language.
func Reload(lang string) {
	mu.Lock()
	defer mu.Unlock()
	if lang == "" {
		cache = map[string]map[string]interface{}{}
		return
	}
	delete(cache, lang)
}
