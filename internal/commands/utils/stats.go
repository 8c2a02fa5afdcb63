package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/bwmarrin/discordgo"
)

// createStatsCommand creates the /utils stats subcommand
func createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Show bot statistics",
		"utils",
		statsHandler,
	).WithAliases("stats")
}

// statsHandler handles the /utils stats command
func statsHandler(ctx *discord.CommandContext) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memberCount := 0
	if state := ctx.Session.State; state != nil {
		state.RLock()
		for _, guild := range state.Guilds {
			memberCount += guild.MemberCount
		}
		state.RUnlock()
	}

	players := 0
	if manager := music.GetManager(); manager != nil {
		players = len(manager.Guilds())
	}

	embed := &discordgo.MessageEmbed{
		Title: i18n.T(ctx.Locale(), "utils.stats_title"),
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Versión del Bot", Value: config.Version, Inline: true},
			{Name: "🐹 Versión de Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
			{Name: "📚 Versión de DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🖥 Uso de RAM", Value: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024), Inline: true},
			{Name: "⚙️ Goroutines", Value: fmt.Sprintf("%d / %d CPUs", runtime.NumGoroutine(), runtime.NumCPU()), Inline: true},
			{Name: "⏱ Uptime", Value: formatDuration(time.Since(ctx.Client.StartTime)), Inline: true},
			{Name: "🏠 Guilds", Value: fmt.Sprintf("%d", ctx.Client.GuildCount()), Inline: true},
			{Name: "👥 Miembros", Value: fmt.Sprintf("%d", memberCount), Inline: true},
			{Name: "🎵 Reproductores", Value: fmt.Sprintf("%d", players), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "🍺 Isekai Tavern"},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if state := ctx.Session.State; state != nil && state.User != nil {
		embed.Footer.IconURL = state.User.AvatarURL("")
	}

	return ctx.ReplyEmbed(embed)
}

// formatDuration formats a time.Duration into a human-readable string
func formatDuration(dur time.Duration) string {
	days := int(dur.Hours() / 24)
	hours := int(dur.Hours()) % 24
	minutes := int(dur.Minutes()) % 60
	seconds := int(dur.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d días", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d horas", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutos", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d segundos", seconds))
	}

	return strings.Join(parts, ", ")
}
