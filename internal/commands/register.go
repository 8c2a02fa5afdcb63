// Package commands wires the cogs into the Discord client. Each cog lives in
// its own subpackage, except music which shares this package.
package commands

import (
	"github.com/IsekaiTavern/TavernBotGo/internal/commands/anonymous"
	"github.com/IsekaiTavern/TavernBotGo/internal/commands/debug"
	"github.com/IsekaiTavern/TavernBotGo/internal/commands/greeting"
	"github.com/IsekaiTavern/TavernBotGo/internal/commands/ticket"
	"github.com/IsekaiTavern/TavernBotGo/internal/commands/utils"
	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
)

// Deps are the services the cogs are built on
type Deps struct {
	Music     *music.Manager
	Cache     *cache.Client
	Anonymous *database.AnonymousRepository
	Greeting  *database.GreetingRepository
	Ticket    *database.TicketRepository
}

// RegisterAll registers the commands of every cog enabled in config
func RegisterAll(client *discord.ExtendedClient, cfg *config.Config, deps Deps) {
	load := func(name string, register func()) {
		if !cfg.CogEnabled(name) {
			logger.Debug("Cog deshabilitado: "+name, "Commands")
			return
		}
		register()
		logger.Info("Cog cargado: "+name, "Commands")
	}

	load("utils", func() { utils.RegisterUtilsCommands(client) })
	load("music", func() { RegisterMusicCommands(client, deps.Music) })
	load("anonymous", func() { anonymous.Register(client, deps.Anonymous, deps.Cache) })
	load("welcome_farewell", func() { greeting.Register(client, deps.Greeting) })
	load("ticket", func() { ticket.Register(client, deps.Ticket) })
	load("debug", func() { debug.Register(client) })

	// El cog "greeting" no tiene comandos, solo el evento de bienvenida
	if cfg.CogEnabled("greeting") {
		logger.Info("Cog cargado: greeting", "Commands")
	}
}
