// Package discord provides the command handler for loading and registering commands.
package discord

import (
	"fmt"

	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler manages command loading and registration
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// LoadCommands reports what was registered before the gateway connects.
// Commands are registered programmatically by the cogs.
func (ch *CommandHandler) LoadCommands() error {
	logger.System(fmt.Sprintf("Comandos cargados: %d (%d globales, %d de desarrollo)",
		ch.client.Commands.Size(), len(ch.slashCommands), len(ch.slashCommandsDev)), "CommandHandler")
	return nil
}

// RegisterCommand adds a top-level command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()

	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

// BuildCommandGroup creates a command group with subcommands, registering
// each one as "name.sub"
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)
		options = append(options, cmd.ToSubcommandOption())
	}

	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// BuildSubcommandGroup creates a subcommand group, registering each
// subcommand as "group.name.sub"
func (ch *CommandHandler) BuildSubcommandGroup(groupName, name, description string, subcommands ...*Command) *discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		ch.client.Commands.Set(groupName+"."+name+"."+cmd.Name, cmd)
		options = append(options, cmd.ToSubcommandOption())
	}

	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// RegisterGroup builds a command group and queues it for registration.
// Dev groups only go to the dev guild.
func (ch *CommandHandler) RegisterGroup(name, description string, dev bool, subcommands ...*Command) *discordgo.ApplicationCommand {
	group := ch.BuildCommandGroup(name, description, subcommands...)
	if dev {
		ch.AddDevCommand(group)
	} else {
		ch.AddGlobalCommand(group)
	}
	logger.Debug(fmt.Sprintf("Grupo registrado: %s (%d subcomandos)", name, len(subcommands)), "CommandHandler")
	return group
}

// GlobalCommands returns the commands queued for global registration
func (ch *CommandHandler) GlobalCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

// DevCommands returns the commands queued for the dev guild
func (ch *CommandHandler) DevCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommandsDev
}

func (ch *CommandHandler) appID() string {
	if ch.client.Session.State != nil && ch.client.Session.State.User != nil {
		return ch.client.Session.State.User.ID
	}
	return ""
}

// RegisterCommands overwrites the slash commands known to Discord
func (ch *CommandHandler) RegisterCommands() {
	cfg := config.Get()
	appID := ch.appID()

	logger.Info("🔄 Registrando comandos globales...", "CommandHandler")

	created, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, "", ch.slashCommands)
	if err != nil {
		logger.Error("Error registrando comandos globales: "+err.Error(), "CommandHandler")
	} else {
		logger.Success(fmt.Sprintf("✅ %d comandos globales registrados.", len(created)), "CommandHandler")
	}

	if cfg.DevGuildID != "" && len(ch.slashCommandsDev) > 0 {
		logger.Info("🔄 Registrando comandos de desarrollo en el servidor "+cfg.DevGuildID+"...", "CommandHandler")

		if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, cfg.DevGuildID, ch.slashCommandsDev); err != nil {
			logger.Error("Error registrando comandos de desarrollo: "+err.Error(), "CommandHandler")
		} else {
			logger.Success("✅ Comandos de desarrollo registrados.", "CommandHandler")
		}
	}
}

// ListGlobalCommands returns the global commands registered in Discord
func (ch *CommandHandler) ListGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.appID(), "")
}

// ListGuildCommands returns the commands registered in a guild
func (ch *CommandHandler) ListGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	return ch.client.Session.ApplicationCommands(ch.appID(), guildID)
}

// UnregisterCommands removes all global commands from Discord
func (ch *CommandHandler) UnregisterCommands() error {
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.appID(), "", []*discordgo.ApplicationCommand{}); err != nil {
		return err
	}
	logger.Success("Comandos globales eliminados.", "CommandHandler")
	return nil
}

// UnregisterGuildCommands removes every command of a guild and returns how
// many were removed
func (ch *CommandHandler) UnregisterGuildCommands(guildID string) (int, error) {
	existing, err := ch.ListGuildCommands(guildID)
	if err != nil {
		return 0, err
	}
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.appID(), guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return 0, err
	}
	logger.Success(fmt.Sprintf("%d comandos eliminados del servidor %s", len(existing), guildID), "CommandHandler")
	return len(existing), nil
}

// CopyGlobalToGuild registers the global commands, plus the dev ones, in a
// guild so changes show up without waiting for global propagation
func (ch *CommandHandler) CopyGlobalToGuild(guildID string) (int, error) {
	commands := make([]*discordgo.ApplicationCommand, 0, len(ch.slashCommands)+len(ch.slashCommandsDev))
	commands = append(commands, ch.slashCommands...)
	commands = append(commands, ch.slashCommandsDev...)

	created, err := ch.client.Session.ApplicationCommandBulkOverwrite(ch.appID(), guildID, commands)
	if err != nil {
		return 0, err
	}
	logger.Success(fmt.Sprintf("%d comandos copiados al servidor %s", len(created), guildID), "CommandHandler")
	return len(created), nil
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// AddDevCommand adds a command to the dev command list
func (ch *CommandHandler) AddDevCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommandsDev = append(ch.slashCommandsDev, cmd)
}
