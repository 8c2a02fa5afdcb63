// Package debug holds the developer commands. They are only registered in
// the dev guild.
package debug

import (
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// Register registers the /debug group in the dev guild
func Register(client *discord.ExtendedClient) {
	echoCmd := discord.NewCommand("echo", "Repeat a text", "debug", echoHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "text",
			Description: "Text to repeat",
			Required:    true,
		})

	pingCmd := discord.NewCommand("ping", "Check the bot answers", "debug", func(ctx *discord.CommandContext) error {
		return ctx.Reply(ctx.T("debug.pong"))
	})

	syncCmd := discord.NewCommand("sync", "Copy the global commands to this guild", "debug", syncHandler)
	clearCmd := discord.NewCommand("clear", "Remove every command of this guild", "debug", clearHandler)

	reloadCmd := discord.NewCommand("reload", "Reload the language files", "debug", reloadHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "lang",
			Description: "Language to reload, all when empty",
			Choices:     languageChoices(),
		})

	cmds := []*discord.Command{echoCmd, pingCmd, syncCmd, clearCmd, reloadCmd, createEvalCommand()}
	for _, cmd := range cmds {
		cmd.AsDev().AsGuildOnly()
	}

	client.CommandHandler.RegisterGroup("debug", "Developer tools", true, cmds...)
}

func languageChoices() []*discordgo.ApplicationCommandOptionChoice {
	langs := i18n.Supported()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(langs))
	for i, lang := range langs {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: lang, Value: lang}
	}
	return choices
}

func echoHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyComplex(&discordgo.InteractionResponseData{
		Content:         ctx.GetStringOption("text"),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
}

// syncHandler handles /debug sync
func syncHandler(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	n, err := ctx.Client.CommandHandler.CopyGlobalToGuild(ctx.GuildID())
	if err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("debug.synced", n))
}

// clearHandler handles /debug clear
func clearHandler(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	n, err := ctx.Client.CommandHandler.UnregisterGuildCommands(ctx.GuildID())
	if err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("debug.cleared", n))
}

// reloadHandler handles /debug reload
func reloadHandler(ctx *discord.CommandContext) error {
	lang := ctx.GetStringOption("lang")
	i18n.Reload(lang)
	logger.Info("Idiomas recargados: "+lang, "Debug")
	return ctx.ReplyEphemeral(ctx.T("debug.reloaded"))
}
