// Package utils provides the /utils commands: latency, status, help and
// runtime statistics.
package utils

import (
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
)

// RegisterUtilsCommands registers all utility commands as /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient) {
	client.CommandHandler.RegisterGroup(
		"utils",
		"Utility commands",
		false,
		createPingCommand(),
		createStatusCommand(),
		createHelpCommand(),
		createStatsCommand(),
		createEchoCommand(),
	)
}
