package utils

import (
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createPingCommand creates the /utils ping subcommand
func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Check the bot latency",
		"utils",
		pingHandler,
	).WithAliases("ping")
}

// pingHandler handles the /utils ping command
func pingHandler(ctx *discord.CommandContext) error {
	return ctx.Reply(ctx.T("utils.ping", ctx.Client.Latency().Milliseconds()))
}

// createEchoCommand creates the /utils echo subcommand
func createEchoCommand() *discord.Command {
	return discord.NewCommand(
		"echo",
		"Repeat a text",
		"utils",
		echoHandler,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "text",
		Description: "Text to repeat",
		Required:    true,
		MaxLength:   2000,
	}).WithAliases("echo")
}

func echoHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyComplex(&discordgo.InteractionResponseData{
		Content: ctx.GetStringOption("text"),
		// Sin menciones, el eco no debe hacer ping a nadie
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
}
