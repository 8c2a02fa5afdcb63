package events

import (
	"fmt"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// botDisconnected reports whether v is the bot leaving voice
func botDisconnected(v *discordgo.VoiceStateUpdate, botID string) bool {
	return v.VoiceState != nil && v.UserID == botID && v.ChannelID == ""
}

// onVoiceStateUpdate drops the player of a guild when the bot is kicked
// from voice
func (h *handlers) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil {
		return
	}
	if !botDisconnected(v, s.State.User.ID) {
		return
	}

	logger.Info(fmt.Sprintf("🔇 Bot desconectado de voz en %s", v.GuildID), "Voice")
	if h.music != nil {
		h.music.Forget(v.GuildID)
	}
}
