package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/bwmarrin/discordgo"
)

const (
	statusOnline  = "🟢 | En linea"
	statusOffline = "🔴 | Desconectado"
)

// StatusInfo is what /utils status reports
type StatusInfo struct {
	Database     string
	DatabaseUp   bool
	Redis        bool
	VoicePlayers int
	Guilds       int
	Latency      time.Duration
}

// createStatusCommand creates the /utils status subcommand
func createStatusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Show the state of the bot and its services",
		"utils",
		statusHandler,
	).WithAliases("status")
}

// statusHandler handles the /utils status command
func statusHandler(ctx *discord.CommandContext) error {
	info := StatusInfo{
		Guilds:  ctx.Client.GuildCount(),
		Latency: ctx.Client.Latency(),
	}
	info.Database, info.DatabaseUp = database.Get().GetStatus()

	if c := cache.Get(); c.Available() {
		pingCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
		info.Redis = c.Ping(pingCtx) == nil
		cancel()
	}
	if m := music.GetManager(); m != nil {
		info.VoicePlayers = len(m.Guilds())
	}

	return ctx.ReplyEmbed(StatusEmbed(ctx.Locale(), info))
}

// StatusEmbed renders info
func StatusEmbed(lang string, info StatusInfo) *discordgo.MessageEmbed {
	color := 0x2ECC71
	if !info.DatabaseUp || !info.Redis {
		color = 0xE67E22
	}

	redis := statusOffline
	if info.Redis {
		redis = statusOnline
	}
	db := info.Database
	if db == "" {
		db = statusOffline
	}

	return &discordgo.MessageEmbed{
		Title: i18n.T(lang, "utils.status_title"),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Bot", Value: statusOnline, Inline: true},
			{Name: "🍃 MongoDB", Value: db, Inline: true},
			{Name: "🧱 Redis", Value: redis, Inline: true},
			{Name: "🎵 Voice", Value: fmt.Sprintf("%d", info.VoicePlayers), Inline: true},
			{Name: "🏠 Guilds", Value: fmt.Sprintf("%d", info.Guilds), Inline: true},
			{Name: "📶 Ping", Value: fmt.Sprintf("%dms", info.Latency.Milliseconds()), Inline: true},
		},
	}
}
