// Package main syncs the bot's slash commands with Discord without starting
// the full bot.
//
// Usage:
//
//	sync-commands [--guild <id>] <list|diff|clean|sync>
//
// With --guild the action targets that guild instead of the global commands.
// Only cogs enabled in config.toml are registered, so "sync" pushes exactly
// what the bot itself would push.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/IsekaiTavern/TavernBotGo/internal/commands"
	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
)

const prefix = "SyncCommands"

var (
	guildID string
	client  *discord.ExtendedClient
	logs    *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "sync-commands",
	Short:         "Lists and syncs the bot's slash commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logs = logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)

		client, err = discord.NewClient(cfg.BotToken)
		if err != nil {
			return fmt.Errorf("error creating Discord client: %w", err)
		}
		if err := client.Session.Open(); err != nil {
			return fmt.Errorf("error connecting to Discord: %w", err)
		}

		// Los handlers no se ejecutan aquí, así que los cogs no necesitan servicios
		commands.RegisterAll(client, cfg, commands.Deps{})
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if client != nil {
			client.Session.Close()
		}
		if logs != nil {
			logs.Close()
		}
	},
}

// action adapts a sync function to a cobra subcommand
func action(use, short string, run func(client *discord.ExtendedClient, guildID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return run(client, guildID)
		},
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&guildID, "guild", "", "Target a specific guild (leave empty for global)")
	rootCmd.AddCommand(
		action("list", "List the commands registered in Discord", listCommands),
		action("diff", "Show stale and unregistered commands", diffCommands),
		action("clean", "Remove every command", cleanCommands),
		action("sync", "Overwrite the registered commands with the current ones", syncCommands),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logs != nil {
			logger.Error(err.Error(), prefix)
			logs.Close()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// remote returns the commands Discord has for guildID, or the global ones
func remote(client *discord.ExtendedClient, guildID string) ([]*discordgo.ApplicationCommand, error) {
	if guildID != "" {
		return client.CommandHandler.ListGuildCommands(guildID)
	}
	return client.CommandHandler.ListGlobalCommands()
}

// local returns the commands this build would register for guildID
func local(client *discord.ExtendedClient, guildID string) []*discordgo.ApplicationCommand {
	cmds := append([]*discordgo.ApplicationCommand{}, client.CommandHandler.GlobalCommands()...)
	if guildID != "" {
		cmds = append(cmds, client.CommandHandler.DevCommands()...)
	}
	return cmds
}

func scope(guildID string) string {
	if guildID == "" {
		return "globales"
	}
	return "del servidor " + guildID
}

func listCommands(client *discord.ExtendedClient, guildID string) error {
	cmds, err := remote(client, guildID)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("📋 %d comandos %s", len(cmds), scope(guildID)), prefix)
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), prefix)
	}
	return nil
}

// diffCommands reports commands that Discord has but this build does not,
// and the other way around
func diffCommands(client *discord.ExtendedClient, guildID string) error {
	cmds, err := remote(client, guildID)
	if err != nil {
		return err
	}
	stale, missing := diff(cmds, local(client, guildID))
	if len(stale) == 0 && len(missing) == 0 {
		logger.Success("✅ Los comandos "+scope(guildID)+" están al día", prefix)
		return nil
	}
	for _, name := range stale {
		logger.Warn("Comando obsoleto en Discord: /"+name, prefix)
	}
	for _, name := range missing {
		logger.Warn("Comando sin registrar: /"+name, prefix)
	}
	return nil
}

// diff returns the sorted names only in remote (stale) and only in local
// (missing)
func diff(remote, local []*discordgo.ApplicationCommand) (stale, missing []string) {
	names := make(map[string]bool, len(local))
	for _, cmd := range local {
		names[cmd.Name] = false
	}
	for _, cmd := range remote {
		if _, ok := names[cmd.Name]; ok {
			names[cmd.Name] = true
			continue
		}
		stale = append(stale, cmd.Name)
	}
	for name, seen := range names {
		if !seen {
			missing = append(missing, name)
		}
	}
	sort.Strings(stale)
	sort.Strings(missing)
	return stale, missing
}

func cleanCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🧹 Eliminando comandos "+scope(guildID)+"...", prefix)
	if guildID != "" {
		_, err := client.CommandHandler.UnregisterGuildCommands(guildID)
		return err
	}
	return client.CommandHandler.UnregisterCommands()
}

// syncCommands overwrites the remote commands. Discord's bulk overwrite
// drops every command missing from the list.
func syncCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🔄 Sincronizando comandos "+scope(guildID)+"...", prefix)
	if guildID != "" {
		_, err := client.CommandHandler.CopyGlobalToGuild(guildID)
		return err
	}
	client.CommandHandler.RegisterCommands()
	return nil
}
