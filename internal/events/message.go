package events

import (
	"fmt"

	"github.com/IsekaiTavern/TavernBotGo/internal/commands/utils"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// bareMention reports whether content only mentions the bot
func bareMention(content, botID string) bool {
	body, ok := discord.ParseInvocation(content, "", botID)
	return ok && body == ""
}

// onMessageCreate answers a bare mention with the command list
func (h *handlers) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || s.State == nil || s.State.User == nil {
		return
	}
	if !bareMention(m.Content, s.State.User.ID) {
		return
	}

	lang := i18n.DefaultLocale
	if m.GuildID != "" {
		if g := guildOf(s, m.GuildID); g != nil {
			lang = i18n.Match(string(g.PreferredLocale))
		}
	}

	embed := utils.HelpEmbed(lang, h.client.Prefix, h.client.Commands.All())
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		logger.Error(fmt.Sprintf("Error enviando respuesta: %v", err), "Message")
	}
}
