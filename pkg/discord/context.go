package discord

import (
	"context"
	"sync"

	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/bwmarrin/discordgo"
)

type replyState int

const (
	replyNone replyState = iota
	replyDeferred
	replySent
)

// CommandContext provides context for command execution. It is backed by
// either an interaction (slash commands, components) or a text message.
type CommandContext struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Message     *discordgo.MessageCreate
	Client      *ExtendedClient
	Command     *Command
	// Name is the full command name, e.g. "music.play", or the custom ID of a component
	Name string

	ctx         context.Context
	textOptions []*discordgo.ApplicationCommandInteractionDataOption

	mu    sync.Mutex
	state replyState
	reply *discordgo.Message
}

// Context returns the context bound to this command run
func (ctx *CommandContext) Context() context.Context {
	if ctx.ctx == nil {
		return context.Background()
	}
	return ctx.ctx
}

// IsText reports whether the command came from a text message
func (ctx *CommandContext) IsText() bool {
	return ctx.Message != nil
}

// respond sends data as the reply, picking the right API for the current state
func (ctx *CommandContext) respond(data *discordgo.InteractionResponseData) error {
	if ctx.Message != nil {
		return ctx.sendText(data)
	}

	ctx.mu.Lock()
	state := ctx.state
	ctx.state = replySent
	ctx.mu.Unlock()

	i := ctx.Interaction.Interaction
	switch state {
	case replyDeferred:
		edit := &discordgo.WebhookEdit{Content: &data.Content, Embeds: &data.Embeds}
		if data.Components != nil {
			edit.Components = &data.Components
		}
		_, err := ctx.Session.InteractionResponseEdit(i, edit)
		return err
	case replySent:
		_, err := ctx.Session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
			Content:    data.Content,
			Embeds:     data.Embeds,
			Components: data.Components,
			Flags:      data.Flags,
		})
		return err
	default:
		return ctx.Session.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		})
	}
}

// sendText replies to the invoking message. Ephemeral flags are dropped.
func (ctx *CommandContext) sendText(data *discordgo.InteractionResponseData) error {
	msg, err := ctx.Session.ChannelMessageSendComplex(ctx.Message.ChannelID, &discordgo.MessageSend{
		Content:    data.Content,
		Embeds:     data.Embeds,
		Components: data.Components,
		Reference:  ctx.Message.Reference(),
	})
	if err != nil {
		return err
	}
	ctx.mu.Lock()
	ctx.reply = msg
	ctx.state = replySent
	ctx.mu.Unlock()
	return nil
}

// Reply sends a reply to the interaction
func (ctx *CommandContext) Reply(content string) error {
	return ctx.respond(&discordgo.InteractionResponseData{Content: content})
}

// ReplyEmbed sends an embed reply to the interaction
func (ctx *CommandContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.respond(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}})
}

// ReplyEphemeral sends an ephemeral reply visible only to the user
func (ctx *CommandContext) ReplyEphemeral(content string) error {
	return ctx.respond(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// ReplyEphemeralEmbed sends an ephemeral embed reply visible only to the user
func (ctx *CommandContext) ReplyEphemeralEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.respond(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

// ReplyComplex sends an arbitrary response, e.g. an embed with buttons
func (ctx *CommandContext) ReplyComplex(data *discordgo.InteractionResponseData) error {
	return ctx.respond(data)
}

// Defer defers the interaction response. Text commands show the typing indicator.
func (ctx *CommandContext) Defer() error {
	return ctx.deferReply(0)
}

// DeferEphemeral defers with an ephemeral placeholder
func (ctx *CommandContext) DeferEphemeral() error {
	return ctx.deferReply(discordgo.MessageFlagsEphemeral)
}

func (ctx *CommandContext) deferReply(flags discordgo.MessageFlags) error {
	if ctx.Message != nil {
		return ctx.Session.ChannelTyping(ctx.Message.ChannelID)
	}

	ctx.mu.Lock()
	if ctx.state != replyNone {
		ctx.mu.Unlock()
		return nil
	}
	ctx.state = replyDeferred
	ctx.mu.Unlock()

	return ctx.Session.InteractionRespond(ctx.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

// EditReply edits the original interaction response
func (ctx *CommandContext) EditReply(content string) error {
	if ctx.Message != nil {
		return ctx.editText(&discordgo.InteractionResponseData{Content: content})
	}
	ctx.mu.Lock()
	ctx.state = replySent
	ctx.mu.Unlock()
	_, err := ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

// EditReplyEmbed edits the original interaction response with an embed
func (ctx *CommandContext) EditReplyEmbed(embed *discordgo.MessageEmbed) error {
	if ctx.Message != nil {
		return ctx.editText(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}})
	}
	ctx.mu.Lock()
	ctx.state = replySent
	ctx.mu.Unlock()
	_, err := ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return err
}

func (ctx *CommandContext) editText(data *discordgo.InteractionResponseData) error {
	ctx.mu.Lock()
	prev := ctx.reply
	ctx.mu.Unlock()
	if prev == nil {
		return ctx.sendText(data)
	}
	edit := discordgo.NewMessageEdit(prev.ChannelID, prev.ID)
	edit.Content = &data.Content
	edit.Embeds = &data.Embeds
	_, err := ctx.Session.ChannelMessageEditComplex(edit)
	return err
}

// RespondChoices answers an autocomplete interaction
func (ctx *CommandContext) RespondChoices(choices []*discordgo.ApplicationCommandOptionChoice) error {
	if len(choices) > 25 {
		choices = choices[:25]
	}
	return ctx.Session.InteractionRespond(ctx.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}

// FocusedOption returns the option being typed during autocomplete
func (ctx *CommandContext) FocusedOption() *discordgo.ApplicationCommandInteractionDataOption {
	return findFocused(ctx.options())
}

func findFocused(options []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Focused {
			return opt
		}
		if found := findFocused(opt.Options); found != nil {
			return found
		}
	}
	return nil
}

// CustomID returns the custom ID of a component interaction
func (ctx *CommandContext) CustomID() string {
	if ctx.Interaction == nil || ctx.Interaction.Type != discordgo.InteractionMessageComponent {
		return ""
	}
	return ctx.Interaction.MessageComponentData().CustomID
}

// options returns the options of the invocation, from the interaction or parsed from text
func (ctx *CommandContext) options() []*discordgo.ApplicationCommandInteractionDataOption {
	if ctx.Interaction != nil {
		switch ctx.Interaction.Type {
		case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
			return ctx.Interaction.ApplicationCommandData().Options
		}
		return nil
	}
	return ctx.textOptions
}

// GetOption retrieves an option value by name
func (ctx *CommandContext) GetOption(name string) *discordgo.ApplicationCommandInteractionDataOption {
	return findOption(ctx.options(), name)
}

// findOption recursively finds an option by name
func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
		if len(opt.Options) > 0 {
			if found := findOption(opt.Options, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// GetStringOption retrieves a string option value
func (ctx *CommandContext) GetStringOption(name string) string {
	opt := ctx.GetOption(name)
	if opt == nil {
		return ""
	}
	return opt.StringValue()
}

// GetIntOption retrieves an integer option value
func (ctx *CommandContext) GetIntOption(name string) int64 {
	opt := ctx.GetOption(name)
	if opt == nil {
		return 0
	}
	return opt.IntValue()
}

// GetBoolOption retrieves a boolean option value
func (ctx *CommandContext) GetBoolOption(name string) bool {
	opt := ctx.GetOption(name)
	if opt == nil {
		return false
	}
	return opt.BoolValue()
}

// GetUserOption retrieves a user option value
func (ctx *CommandContext) GetUserOption(name string) *discordgo.User {
	opt := ctx.GetOption(name)
	if opt == nil {
		return nil
	}
	return opt.UserValue(ctx.Session)
}

// GetChannelOption retrieves a channel option value
func (ctx *CommandContext) GetChannelOption(name string) *discordgo.Channel {
	opt := ctx.GetOption(name)
	if opt == nil {
		return nil
	}
	return opt.ChannelValue(ctx.Session)
}

// GetRoleOption retrieves a role option value
func (ctx *CommandContext) GetRoleOption(name string) *discordgo.Role {
	opt := ctx.GetOption(name)
	if opt == nil {
		return nil
	}
	return opt.RoleValue(ctx.Session, ctx.GuildID())
}

// GuildID returns the guild the command was used in, empty in DMs
func (ctx *CommandContext) GuildID() string {
	if ctx.Interaction != nil {
		return ctx.Interaction.GuildID
	}
	if ctx.Message != nil {
		return ctx.Message.GuildID
	}
	return ""
}

// ChannelID returns the channel the command was used in
func (ctx *CommandContext) ChannelID() string {
	if ctx.Interaction != nil {
		return ctx.Interaction.ChannelID
	}
	if ctx.Message != nil {
		return ctx.Message.ChannelID
	}
	return ""
}

// Guild returns the guild where the interaction occurred
func (ctx *CommandContext) Guild() *discordgo.Guild {
	gid := ctx.GuildID()
	if gid == "" || ctx.Session == nil || ctx.Session.State == nil {
		return nil
	}
	guild, _ := ctx.Session.State.Guild(gid)
	return guild
}

// Channel returns the channel where the interaction occurred
func (ctx *CommandContext) Channel() *discordgo.Channel {
	channel, _ := ctx.Session.State.Channel(ctx.ChannelID())
	return channel
}

// User returns the user who triggered the interaction
func (ctx *CommandContext) User() *discordgo.User {
	if ctx.Message != nil {
		return ctx.Message.Author
	}
	if ctx.Interaction.Member != nil {
		return ctx.Interaction.Member.User
	}
	return ctx.Interaction.User
}

// Member returns the guild member who triggered the interaction
func (ctx *CommandContext) Member() *discordgo.Member {
	if ctx.Message != nil {
		if ctx.Message.Member == nil {
			return nil
		}
		// Los mensajes no traen el usuario dentro del miembro
		member := *ctx.Message.Member
		member.User = ctx.Message.Author
		member.GuildID = ctx.Message.GuildID
		return &member
	}
	return ctx.Interaction.Member
}

// VoiceChannelID returns the voice channel the invoker is in, if any
func (ctx *CommandContext) VoiceChannelID() string {
	if ctx.Session == nil || ctx.Session.State == nil {
		return ""
	}
	vs, err := ctx.Session.State.VoiceState(ctx.GuildID(), ctx.User().ID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

// Locale returns the catalog language for this invocation
func (ctx *CommandContext) Locale() string {
	if ctx.Interaction != nil {
		if ctx.Interaction.Locale != "" {
			return i18n.Match(string(ctx.Interaction.Locale))
		}
		if ctx.Interaction.GuildLocale != nil {
			return i18n.Match(string(*ctx.Interaction.GuildLocale))
		}
	}
	if g := ctx.Guild(); g != nil && g.PreferredLocale != "" {
		return i18n.Match(string(g.PreferredLocale))
	}
	return i18n.Match(config.Get().Bot.DefaultLocale)
}

// T translates key for the invoker's locale
func (ctx *CommandContext) T(key string, args ...interface{}) string {
	return i18n.T(ctx.Locale(), key, args...)
}

// Localize renders a user error in the invoker's locale
func (ctx *CommandContext) Localize(ue *errors.UserError) string {
	return localizeUserError(ctx.Locale(), ue)
}

func localizeUserError(lang string, ue *errors.UserError) string {
	if msg, err := i18n.Get(lang, ue.Key, ue.Args...); err == nil {
		return msg
	}
	if msg, err := i18n.Get(i18n.DefaultLocale, ue.Key, ue.Args...); err == nil {
		return msg
	}
	return ue.Error()
}
