// Package greeting provides the /welcome and /farewell commands and the
// rendering of the embeds sent when members join or leave.
package greeting

import (
	"fmt"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/formatter"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

type cog struct {
	repo *database.GreetingRepository
	kind models.GreetingKind
}

// Register registers the /welcome and /farewell groups
func Register(client *discord.ExtendedClient, repo *database.GreetingRepository) {
	for _, kind := range []models.GreetingKind{models.GreetingWelcome, models.GreetingFarewell} {
		g := &cog{repo: repo, kind: kind}
		client.CommandHandler.RegisterGroup(string(kind), g.describe("Configure the %s message"), false, g.commands()...)
	}
}

func (g *cog) describe(format string) string {
	return fmt.Sprintf(format, g.kind)
}

func (g *cog) commands() []*discord.Command {
	category := string(g.kind)

	messageCmd := discord.NewCommand("message", g.describe("Set the channel, title and text of the %s message"), category, g.messageHandler).
		WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Channel the message is sent to",
				Required:     true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "title",
				Description: "Embed title, placeholders like {member.name} are allowed",
				Required:    true,
				MaxLength:   256,
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "Embed text, placeholders like {member} are allowed",
				Required:    true,
				MaxLength:   4000,
			},
		)

	colorCmd := discord.NewCommand("color", g.describe("Set the color of the %s embed"), category, g.colorHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "color",
			Description: "Color name, #RRGGBB or rgb(r,g,b)",
			Required:    true,
		})

	thumbnailCmd := discord.NewCommand("thumbnail", g.describe("Set the thumbnail of the %s embed"), category, g.urlHandler("thumbnail")).
		WithOptions(urlOption())
	imageCmd := discord.NewCommand("image", g.describe("Set the image of the %s embed"), category, g.urlHandler("image")).
		WithOptions(urlOption())

	enableCmd := discord.NewCommand("enable", g.describe("Enable the %s message"), category, g.enableHandler(true))
	disableCmd := discord.NewCommand("disable", g.describe("Disable the %s message"), category, g.enableHandler(false))
	previewCmd := discord.NewCommand("preview", g.describe("Preview the %s message"), category, g.previewHandler)

	cmds := []*discord.Command{messageCmd, colorCmd, thumbnailCmd, imageCmd, enableCmd, disableCmd, previewCmd}
	for _, cmd := range cmds {
		cmd.WithUserPermissions(discordgo.PermissionManageGuild).AsGuildOnly().RequiresDatabase()
	}
	return cmds
}

func urlOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "url",
		Description: "Image URL, {member} and {server} expand to avatar and icon. Empty clears it",
	}
}

// update stores upd and replies with the rendered result
func (g *cog) update(ctx *discord.CommandContext, upd database.GreetingUpdate, content string) error {
	memberID := ctx.User().ID
	upd.SetByMemberID = &memberID

	stored, err := g.repo.Update(ctx.Context(), g.kind, ctx.GuildID(), upd)
	if err != nil {
		return err
	}
	if stored == nil {
		// Mongo desconectado, la escritura quedó en cola
		return ctx.Reply(content)
	}

	logger.Info("Greeting "+string(g.kind)+" actualizado en "+ctx.GuildID(), "Greeting")
	return ctx.ReplyComplex(&discordgo.InteractionResponseData{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{g.preview(ctx, stored)},
	})
}

func (g *cog) preview(ctx *discord.CommandContext, stored *models.Greeting) *discordgo.MessageEmbed {
	return Render(stored, formatter.SubjectFromMember(ctx.Member(), ctx.Guild()), time.Now())
}

// messageHandler handles /<kind> message
func (g *cog) messageHandler(ctx *discord.CommandContext) error {
	channel := ctx.GetChannelOption("channel")
	if channel == nil {
		return errors.NewValueError("common.missing_argument", "missing argument %s", "channel")
	}
	title := ctx.GetStringOption("title")
	description := ctx.GetStringOption("message")

	return g.update(ctx, database.GreetingUpdate{
		ChannelID:   &channel.ID,
		Title:       &title,
		Description: &description,
	}, ctx.T("greeting.message_updated", string(g.kind)))
}

// colorHandler handles /<kind> color
func (g *cog) colorHandler(ctx *discord.CommandContext) error {
	color, err := formatter.ParseColor(ctx.GetStringOption("color"))
	if err != nil {
		return errors.NewValueError("greeting.invalid_color", "invalid color %s", ctx.GetStringOption("color")).WithCause(err)
	}
	return g.update(ctx, database.GreetingUpdate{Color: &color}, ctx.T("greeting.color_updated"))
}

func (g *cog) urlHandler(field string) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		url := ctx.GetStringOption("url")
		if field == "thumbnail" {
			return g.update(ctx, database.GreetingUpdate{ThumbnailURL: &url}, ctx.T("greeting.thumbnail_updated"))
		}
		return g.update(ctx, database.GreetingUpdate{ImageURL: &url}, ctx.T("greeting.image_updated"))
	}
}

func (g *cog) enableHandler(enabled bool) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		key := "greeting.disabled"
		if enabled {
			key = "greeting.enabled"
		}
		return g.update(ctx, database.GreetingUpdate{Enabled: &enabled}, ctx.T(key, string(g.kind)))
	}
}

// previewHandler handles /<kind> preview
func (g *cog) previewHandler(ctx *discord.CommandContext) error {
	stored, err := g.repo.Get(ctx.Context(), g.kind, ctx.GuildID())
	if err != nil {
		return err
	}
	if stored == nil {
		return ctx.ReplyEphemeral(ctx.T("greeting.not_configured", string(g.kind)))
	}
	return ctx.ReplyEmbed(g.preview(ctx, stored))
}
