package events

import (
	"fmt"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// onReady is called when the bot successfully connects to Discord
func (h *handlers) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Success(fmt.Sprintf("✅ Bot conectado: %s", r.User.Username), "Ready")
	logger.Info(fmt.Sprintf("📊 Conectado a %d servidores", len(r.Guilds)), "Ready")

	status := "🍺 " + h.client.Prefix + "help"
	if h.cfg.CogEnabled("music") {
		status = "🎵 /music play"
	}
	if err := s.UpdateGameStatus(0, status); err != nil {
		logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
		return
	}

	logger.Debug("Estado del bot establecido correctamente", "Ready")
}
