package events

import (
	"context"
	"fmt"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/internal/commands/greeting"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// guildOf reads the guild from the state cache, falling back to the API
func guildOf(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g
		}
	}
	g, err := s.Guild(guildID)
	if err != nil {
		logger.Debug(fmt.Sprintf("Error obteniendo servidor %s: %v", guildID, err), "Member")
		return nil
	}
	return g
}

// onGuildMemberAdd is called when a new member joins the server
func (h *handlers) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	logger.Info(fmt.Sprintf("👋 Nuevo miembro: %s en servidor %s", m.User.Username, m.GuildID), "Member")

	guild := guildOf(s, m.GuildID)
	if h.cfg.CogEnabled("welcome_farewell") {
		h.announce(s, models.GreetingWelcome, m.Member, guild)
	}
	if h.cfg.CogEnabled("greeting") && guild != nil && guild.SystemChannelID != "" {
		msg := i18n.T(i18n.Match(string(guild.PreferredLocale)), "greeting.legacy_welcome", m.User.ID)
		if _, err := s.ChannelMessageSend(guild.SystemChannelID, msg); err != nil {
			logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Member")
		}
	}
}

// onGuildMemberRemove is called when a member leaves the server
func (h *handlers) onGuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil {
		return
	}
	logger.Info(fmt.Sprintf("👋 Adiós: %s salió del servidor %s", m.User.Username, m.GuildID), "Member")

	if h.cfg.CogEnabled("welcome_farewell") {
		h.announce(s, models.GreetingFarewell, m.Member, guildOf(s, m.GuildID))
	}
}

func (h *handlers) announce(s *discordgo.Session, kind models.GreetingKind, member *discordgo.Member, guild *discordgo.Guild) {
	if h.greetings == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := greeting.Announce(ctx, h.greetings, s, kind, member, guild); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de %s: %v", kind, err), "Member")
	}
}
