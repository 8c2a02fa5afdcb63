// Package events provides a registry for organizing bot events.
// Events are organized by category (guild, member, message, voice, etc.)
package events

import (
	"github.com/IsekaiTavern/TavernBotGo/internal/commands/greeting"
	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
)

// Deps are the services the event handlers use. Any of them may be nil.
type Deps struct {
	Music    *music.Manager
	Greeting *database.GreetingRepository
}

type handlers struct {
	client    *discord.ExtendedClient
	cfg       *config.Config
	music     *music.Manager
	greetings greeting.Store
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, cfg *config.Config, deps Deps) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	h := &handlers{client: client, cfg: cfg, music: deps.Music}
	if deps.Greeting != nil {
		h.greetings = deps.Greeting
	}

	// Ready event (bot startup)
	client.EventHandler.OnReady(h.onReady)

	// Guild events (server join/leave)
	client.EventHandler.OnGuildCreate(h.onGuildCreate)
	client.EventHandler.OnGuildDelete(h.onGuildDelete)

	// Member events (welcome/farewell)
	if cfg.CogEnabled("welcome_farewell") || cfg.CogEnabled("greeting") {
		client.EventHandler.OnGuildMemberAdd(h.onGuildMemberAdd)
		client.EventHandler.OnGuildMemberRemove(h.onGuildMemberRemove)
	}

	// Message events (help on mention)
	client.EventHandler.OnMessageCreate(h.onMessageCreate)

	// Voice events (bot disconnected)
	client.EventHandler.OnVoiceStateUpdate(h.onVoiceStateUpdate)

	// Shard events (disconnect/resume)
	RegisterShardEvents(client)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
