// Package config provides configuration management for the bot.
// Secrets are read from the environment (and an optional .env file) while
// feature settings live in config.toml.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken      string
	CommandPrefix string
	DevGuildID    string
	DevUserIDs    []string

	// MongoDB
	MongoDBURL string
	DBName     string

	// Redis
	RedisURL string

	// MQTT
	MQTTHost      string
	MQTTPort      string
	MQTTUser      string
	MQTTPassword  string
	MQTTTopicRoot string

	// Web Server
	Port         string
	AllowedHosts string
	CORSOrigins  []string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string

	// External tools used by the music player
	YtDlpPath  string
	FFmpegPath string

	// Values from config.toml
	Bot   BotSettings   `toml:"bot"`
	Music MusicSettings `toml:"music"`
	Log   LogSettings   `toml:"log"`
}

// BotSettings is the [bot] table of config.toml
type BotSettings struct {
	CommandPrefix   string   `toml:"command_prefix"`
	CommandCooldown int      `toml:"command_cooldown"`
	Cogs            []string `toml:"cogs"`
	DefaultLocale   string   `toml:"default_locale"`
}

// MusicSettings is the [music] table of config.toml
type MusicSettings struct {
	DefaultVolume    int `toml:"default_volume"`
	MaxPlaylist      int `toml:"max_playlist"`
	PlaylistTTLHours int `toml:"playlist_ttl_hours"`
}

// LogSettings is the [log] table of config.toml
type LogSettings struct {
	Name  string `toml:"name"`
	Level string `toml:"level"`
}

// fileSettings mirrors the layout of config.toml
type fileSettings struct {
	Bot   BotSettings   `toml:"bot"`
	Music MusicSettings `toml:"music"`
	Log   LogSettings   `toml:"log"`
}

// ConfigError is returned when a required setting is missing or invalid
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s. Please check `config.toml` and `.env`.", e.Field, e.Reason)
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// AllCogs lists every cog the bot knows how to load
var AllCogs = []string{"utils", "music", "anonymous", "welcome_farewell", "ticket", "greeting"}

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgErr  error
	cfgOnce sync.Once

	// settingsPath is the location of config.toml, overridable with CONFIG_PATH
	settingsPath = "config.toml"
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgErr = nil
	cfgOnce = sync.Once{}
}

// defaultSettings returns the values used when config.toml is absent
func defaultSettings() fileSettings {
	return fileSettings{
		Bot: BotSettings{
			CommandPrefix:   "!",
			CommandCooldown: 3,
			Cogs:            append([]string(nil), AllCogs...),
			DefaultLocale:   "en",
		},
		Music: MusicSettings{
			DefaultVolume:    20,
			MaxPlaylist:      100,
			PlaylistTTLHours: 24,
		},
		Log: LogSettings{
			Name:  "isekaitavern",
			Level: "debug",
		},
	}
}

// loadSettings decodes config.toml on top of the defaults
func loadSettings(path string) (fileSettings, error) {
	settings := defaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, &ConfigError{Field: path, Reason: "could not be parsed: " + err.Error()}
	}
	return settings, nil
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	settings, err := loadSettings(getEnv("CONFIG_PATH", settingsPath))
	cfgErr = err

	cfg = &Config{
		// Discord
		BotToken:      getEnv("DISCORD_BOT_TOKEN", ""),
		CommandPrefix: getEnv("COMMAND_PREFIX", settings.Bot.CommandPrefix),
		DevGuildID:    getEnv("DEV_GUILD_ID", ""),
		DevUserIDs:    splitList(getEnv("DEV_USER_IDS", "")),

		// MongoDB
		MongoDBURL: getEnv("MONGO_URL", "mongodb://localhost:27017"),
		DBName:     getEnv("MONGO_DB", "isekaitavern"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// MQTT
		MQTTHost:      getEnv("MQTT_HOST", ""),
		MQTTPort:      getEnv("MQTT_PORT", "1883"),
		MQTTUser:      getEnv("MQTT_USER", ""),
		MQTTPassword:  getEnv("MQTT_PASSWORD", ""),
		MQTTTopicRoot: getEnv("MQTT_TOPIC_ROOT", "tavern"),

		// Web Server
		Port:         getEnv("PORT", "3000"),
		AllowedHosts: getEnv("WEB_ALLOWED_HOSTS", ""),
		CORSOrigins:  splitList(getEnv("WEB_CORS_ORIGINS", "")),

		// Environment
		Environment: getEnv("ENV", "dev"),

		// Webhooks
		ErrorWebhook:      getEnv("ERROR_WEBHOOK", ""),
		LogsWebhook:       getEnv("LOGS_WEBHOOK", ""),
		LogsWebServerHook: getEnv("WEB_LOGS_WEBHOOK", ""),

		YtDlpPath:  getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),

		Bot:   settings.Bot,
		Music: settings.Music,
		Log:   settings.Log,
	}

	// El cog de depuración solo existe en desarrollo
	if cfg.IsDev() && !cfg.CogEnabled("debug") {
		cfg.Bot.Cogs = append(cfg.Bot.Cogs, "debug")
	}
}

// Load initializes the configuration from the environment and config.toml
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, cfgErr
}

// Get returns the current configuration
func Get() *Config {
	// Use sync.Once to ensure thread-safe initialization if Load wasn't called
	cfgOnce.Do(loadConfig)
	return cfg
}

// Validate checks the settings the bot cannot start without
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return &ConfigError{Field: "DISCORD_BOT_TOKEN", Reason: "is empty"}
	}
	if c.CommandPrefix == "" {
		return &ConfigError{Field: "COMMAND_PREFIX", Reason: "is empty"}
	}
	switch c.Environment {
	case "dev", "test", "prod":
	default:
		return &ConfigError{Field: "ENV", Reason: fmt.Sprintf("must be dev, test or prod (got %q)", c.Environment)}
	}
	if c.Music.MaxPlaylist <= 0 {
		return &ConfigError{Field: "music.max_playlist", Reason: "must be greater than zero"}
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping blanks
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// IsDev returns true if the environment is development
func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// CogEnabled reports whether the named cog should be loaded
func (c *Config) CogEnabled(name string) bool {
	for _, cog := range c.Bot.Cogs {
		if cog == name {
			return true
		}
	}
	return false
}

// IsDevUser reports whether the user may run developer commands
func (c *Config) IsDevUser(userID string) bool {
	for _, id := range c.DevUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
