// Package anonymous provides the /anonymous commands. Members pick a persona
// and post through a channel webhook so their identity is hidden.
package anonymous

import (
	"strconv"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/fetch"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

type cog struct {
	repo    *database.AnonymousRepository
	service *Service
}

var minCooldown = 0.0

// Register registers the /anonymous group
func Register(client *discord.ExtendedClient, repo *database.AnonymousRepository, c *cache.Client) {
	a := &cog{
		repo:    repo,
		service: NewService(repo, c, client.Session),
	}

	textChannel := []discordgo.ChannelType{discordgo.ChannelTypeGuildText}

	setCmd := discord.NewCommand("set", "Set your anonymous nickname and avatar", "anonymous", a.setHandler).
		WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "nickname",
				Description: "Name shown on your anonymous messages",
				Required:    true,
				MaxLength:   80,
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "avatar_url",
				Description: "Image URL used as avatar",
			},
		).AsGuildOnly().RequiresDatabase()

	sendCmd := discord.NewCommand("send", "Send an anonymous message in this channel", "anonymous", a.sendHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "message",
			Description: "Message to send",
			Required:    true,
			MaxLength:   2000,
		}).AsGuildOnly().RequiresDatabase()

	addChannelCmd := admin(discord.NewCommand("add_channel", "Allow anonymous messages in a channel", "anonymous", a.addChannelHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Text channel",
			Required:     true,
			ChannelTypes: textChannel,
		}))

	removeChannelCmd := admin(discord.NewCommand("remove_channel", "Stop anonymous messages in a channel", "anonymous", a.removeChannelHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Text channel",
			Required:     true,
			ChannelTypes: textChannel,
		}))

	listChannelsCmd := discord.NewCommand("list_channels", "List the anonymous channels", "anonymous", a.listChannelsHandler).
		AsGuildOnly().RequiresDatabase()

	enableCmd := admin(discord.NewCommand("enable", "Enable anonymous messaging", "anonymous", a.enableHandler(true)))
	disableCmd := admin(discord.NewCommand("disable", "Disable anonymous messaging", "anonymous", a.enableHandler(false)))

	cooldownCmd := admin(discord.NewCommand("cooldown", "Seconds between anonymous messages in this server", "anonymous", a.cooldownHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "seconds",
			Description: "Cooldown in seconds, 0 disables it",
			Required:    true,
			MinValue:    &minCooldown,
			MaxValue:    MaxCooldown,
		}))

	blockCmd := admin(discord.NewCommand("block", "Block a member from anonymous messaging", "anonymous", a.blockHandler(true)).
		WithOptions(userOption()))
	unblockCmd := admin(discord.NewCommand("unblock", "Unblock a member", "anonymous", a.blockHandler(false)).
		WithOptions(userOption()))

	configCmd := admin(discord.NewCommand("config", "Show the anonymous configuration", "anonymous", a.configHandler))

	client.CommandHandler.RegisterGroup(
		"anonymous",
		"Anonymous messaging",
		false,
		setCmd,
		sendCmd,
		addChannelCmd,
		removeChannelCmd,
		listChannelsCmd,
		enableCmd,
		disableCmd,
		cooldownCmd,
		blockCmd,
		unblockCmd,
		configCmd,
	)
	client.Commands.AliasGroup("anon", "anonymous")
}

// admin marks a command as requiring Manage Server
func admin(cmd *discord.Command) *discord.Command {
	return cmd.WithUserPermissions(discordgo.PermissionManageGuild).AsGuildOnly().RequiresDatabase()
}

func userOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Member",
		Required:    true,
	}
}

// setHandler handles /anonymous set
func (a *cog) setHandler(ctx *discord.CommandContext) error {
	nickname := ctx.GetStringOption("nickname")
	avatarURL := ctx.GetStringOption("avatar_url")

	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	if avatarURL != "" {
		if _, err := fetch.DownloadImage(ctx.Context(), avatarURL, fetch.Options{}); err != nil {
			return err
		}
	}

	if _, err := a.repo.SetUser(ctx.Context(), ctx.GuildID(), ctx.User().ID, nickname, avatarURL); err != nil {
		return err
	}
	return ctx.EditReplyEmbed(BuildPreview(ctx.Locale(), nickname, avatarURL))
}

// sendHandler handles /anonymous send
func (a *cog) sendHandler(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	if err := a.service.Send(ctx.Context(), ctx.GuildID(), ctx.ChannelID(), ctx.User().ID, ctx.GetStringOption("message")); err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("anonymous.sent"))
}

// addChannelHandler handles /anonymous add_channel
func (a *cog) addChannelHandler(ctx *discord.CommandContext) error {
	channel := ctx.GetChannelOption("channel")
	if channel == nil {
		return errors.NewValueError("common.missing_argument", "missing argument %s", "channel")
	}

	if _, err := a.repo.AddChannel(ctx.Context(), ctx.GuildID(), channel.ID); err != nil {
		return err
	}
	if _, err := a.service.EnsureWebhook(channel.ID); err != nil {
		return err
	}
	logger.Info("Canal anónimo añadido: "+channel.ID+" en "+ctx.GuildID(), "Anonymous")
	return ctx.ReplyEphemeral(ctx.T("anonymous.channel_added", channel.ID))
}

// removeChannelHandler handles /anonymous remove_channel
func (a *cog) removeChannelHandler(ctx *discord.CommandContext) error {
	channel := ctx.GetChannelOption("channel")
	if channel == nil {
		return errors.NewValueError("common.missing_argument", "missing argument %s", "channel")
	}

	if _, err := a.repo.RemoveChannel(ctx.Context(), ctx.GuildID(), channel.ID); err != nil {
		return err
	}
	if err := a.service.RemoveWebhook(channel.ID); err != nil {
		return err
	}
	return ctx.ReplyEphemeral(ctx.T("anonymous.channel_removed", channel.ID))
}

// listChannelsHandler handles /anonymous list_channels
func (a *cog) listChannelsHandler(ctx *discord.CommandContext) error {
	settings, err := a.repo.GetSettings(ctx.Context(), ctx.GuildID())
	if err != nil {
		return err
	}
	if settings == nil || len(settings.ChannelIDs) == 0 {
		return ctx.Reply(ctx.T("anonymous.no_channels"))
	}
	return ctx.Reply(ctx.T("anonymous.channels", channelList(settings.ChannelIDs)))
}

func (a *cog) enableHandler(enabled bool) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		if _, err := a.repo.SetEnabled(ctx.Context(), ctx.GuildID(), enabled); err != nil {
			return err
		}
		logger.Info("Anónimo "+strconv.FormatBool(enabled)+" en "+ctx.GuildID(), "Anonymous")
		if enabled {
			return ctx.Reply(ctx.T("anonymous.enabled"))
		}
		return ctx.Reply(ctx.T("anonymous.disabled_ok"))
	}
}

// cooldownHandler handles /anonymous cooldown
func (a *cog) cooldownHandler(ctx *discord.CommandContext) error {
	seconds := ctx.GetIntOption("seconds")
	if seconds < 0 || seconds > MaxCooldown {
		return errors.NewValueError("anonymous.cooldown_invalid", "cooldown out of range: %d", MaxCooldown)
	}
	if _, err := a.repo.SetCooldown(ctx.Context(), ctx.GuildID(), int(seconds)); err != nil {
		return err
	}
	return ctx.Reply(ctx.T("anonymous.cooldown_set", seconds))
}

func (a *cog) blockHandler(block bool) discord.CommandRunFunc {
	return func(ctx *discord.CommandContext) error {
		user := ctx.GetUserOption("user")
		if user == nil {
			return errors.NewValueError("common.missing_argument", "missing argument %s", "user")
		}

		if block {
			if _, err := a.repo.BlockUser(ctx.Context(), ctx.GuildID(), user.ID); err != nil {
				return err
			}
			return ctx.ReplyEphemeral(ctx.T("anonymous.user_blocked", user.ID))
		}
		if _, err := a.repo.UnblockUser(ctx.Context(), ctx.GuildID(), user.ID); err != nil {
			return err
		}
		return ctx.ReplyEphemeral(ctx.T("anonymous.user_unblocked", user.ID))
	}
}

// configHandler handles /anonymous config
func (a *cog) configHandler(ctx *discord.CommandContext) error {
	settings, err := a.repo.GetSettings(ctx.Context(), ctx.GuildID())
	if err != nil {
		return err
	}
	return ctx.ReplyEphemeralEmbed(BuildConfigEmbed(ctx.Locale(), settings))
}
