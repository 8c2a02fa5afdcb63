// Package ticket provides the support ticket workflow: a setup command that
// posts a panel, and buttons that open and close private channels.
package ticket

import (
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

type cog struct {
	service *Service
}

// Register registers the /ticket group and the ticket buttons
func Register(client *discord.ExtendedClient, repo *database.TicketRepository) {
	botID := func() string {
		if state := client.Session.State; state != nil && state.User != nil {
			return state.User.ID
		}
		return ""
	}
	t := &cog{service: NewService(repo, client.Session, botID)}

	setupCmd := discord.NewCommand("setup", "Set up the ticket system in this channel", "ticket", t.setupHandler).
		WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "category",
				Description:  "Category where ticket channels are created",
				Required:     true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "admin_role",
				Description: "Role that can see every ticket",
			},
		).
		WithUserPermissions(discordgo.PermissionAdministrator).
		WithBotPermissions(discordgo.PermissionManageChannels).
		AsGuildOnly().
		RequiresDatabase()

	closeCmd := discord.NewCommand("close", "Close the ticket of this channel", "ticket", t.closeHandler).
		AsGuildOnly().
		RequiresDatabase()

	client.CommandHandler.RegisterGroup("ticket", "Support tickets", false, setupCmd, closeCmd)

	client.Components.Register(models.TicketLaunchButtonID,
		discord.NewCommand("launch", "Create ticket button", "ticket", t.launchHandler).
			WithBotPermissions(discordgo.PermissionManageChannels).
			AsGuildOnly().
			RequiresDatabase())
	client.Components.Register(models.TicketCloseButtonID,
		discord.NewCommand("close", "Close ticket button", "ticket", t.closeHandler).
			AsGuildOnly().
			RequiresDatabase())
}

// setupHandler handles /ticket setup
func (t *cog) setupHandler(ctx *discord.CommandContext) error {
	category := ctx.GetChannelOption("category")
	if category == nil {
		return errors.NewValueError("common.missing_argument", "missing argument %s", "category")
	}
	adminRoleID := ""
	if role := ctx.GetRoleOption("admin_role"); role != nil {
		adminRoleID = role.ID
	}

	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	if err := t.service.Setup(ctx.Context(), ctx.Locale(), ctx.GuildID(), ctx.ChannelID(), category.ID, adminRoleID); err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("ticket.setup_complete", category.ID))
}

// launchHandler handles the Create Ticket button
func (t *cog) launchHandler(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	user := ctx.User()
	opener := Opener{ID: user.ID, Username: user.Username, DisplayName: user.GlobalName}
	if member := ctx.Member(); member != nil {
		opener.DisplayName = member.DisplayName()
	}

	channel, err := t.service.Open(ctx.Context(), ctx.Locale(), ctx.GuildID(), opener)
	if err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("ticket.created", channel.ID))
}

// closeHandler handles /ticket close and the Close Ticket button
func (t *cog) closeHandler(ctx *discord.CommandContext) error {
	if err := t.service.Close(ctx.Context(), ctx.GuildID(), ctx.ChannelID()); err != nil {
		return err
	}
	if err := ctx.Reply(ctx.T("ticket.closing")); err != nil {
		return err
	}
	return t.service.DeleteChannel(ctx.ChannelID())
}
