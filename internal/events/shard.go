package events

import (
	"fmt"

	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// RegisterShardEvents logs gateway disconnects and resumes
func RegisterShardEvents(client *discord.ExtendedClient) {
	client.EventHandler.RegisterEvent("Disconnect", onShardDisconnect)
	client.EventHandler.RegisterEvent("Resumed", onShardResumed)
}

func onShardDisconnect(s *discordgo.Session, _ *discordgo.Disconnect) {
	logger.Warn(fmt.Sprintf("🔌 Shard %d desconectado.", s.ShardID), "Shard")
}

func onShardResumed(s *discordgo.Session, _ *discordgo.Resumed) {
	logger.Success(fmt.Sprintf("✅ Shard %d reanudado.", s.ShardID), "Shard")
}
