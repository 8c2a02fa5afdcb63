package events

import (
	"context"
	"fmt"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// joinWindow separates a real join from the GuildCreate replayed on connect
const joinWindow = 10 * time.Second

func freshJoin(joinedAt, now time.Time) bool {
	return !joinedAt.Before(now.Add(-joinWindow))
}

// onGuildCreate is called when the bot joins a server
func (h *handlers) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !freshJoin(g.JoinedAt, time.Now()) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Miembros: %d | Canales: %d", g.MemberCount, len(g.Channels)), "Guild")

	if g.SystemChannelID == "" {
		return
	}

	welcomeEmbed := &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🍺",
		Description: "Hola, soy **Isekai Tavern**. Usa `/utils help` para ver todos mis comandos.",
		Color:       0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🎵 Música", Value: "`/music play`", Inline: true},
			{Name: "🎭 Anónimo", Value: "`/anonymous set`", Inline: true},
			{Name: "🎫 Tickets", Value: "`/ticket setup`", Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// onGuildDelete is called when the bot is removed from a server
func (h *handlers) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	// Unavailable significa caída de Discord, no expulsión
	if g.Unavailable {
		logger.Warn("Servidor no disponible: "+g.ID, "Guild")
		return
	}

	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")

	if h.music == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.music.Remove(ctx, g.ID); err != nil {
		logger.Error(fmt.Sprintf("Error limpiando la música de %s: %v", g.ID, err), "Guild")
	}
}
