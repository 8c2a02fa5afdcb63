// Package discord provides command types and structures.
package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Command represents a Discord slash command. The same command is reachable
// as a text command through its full name or its aliases.
type Command struct {
	Name            string
	Description     string
	Category        string
	Options         []*discordgo.ApplicationCommandOption
	Aliases         []string
	UserPermissions int64
	BotPermissions  int64
	IsDev           bool
	GuildOnly       bool
	InVoiceChannel  bool
	RequiresDB      bool
	Run             CommandRunFunc
	AutoComplete    AutoCompleteFunc
}

// CommandRunFunc is the function type for command execution
type CommandRunFunc func(ctx *CommandContext) error

// AutoCompleteFunc is the function type for autocomplete handling
type AutoCompleteFunc func(ctx *CommandContext)

// NewCommand creates a new Command with required fields
func NewCommand(name, description, category string, run CommandRunFunc) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Category:    category,
		Run:         run,
	}
}

// WithOptions sets the command options
func (c *Command) WithOptions(opts ...*discordgo.ApplicationCommandOption) *Command {
	c.Options = opts
	return c
}

// WithAliases sets the text command aliases
func (c *Command) WithAliases(aliases ...string) *Command {
	for _, a := range aliases {
		c.Aliases = append(c.Aliases, strings.ToLower(a))
	}
	return c
}

// WithUserPermissions sets required user permissions
func (c *Command) WithUserPermissions(perms int64) *Command {
	c.UserPermissions = perms
	c.GuildOnly = true
	return c
}

// WithBotPermissions sets required bot permissions
func (c *Command) WithBotPermissions(perms int64) *Command {
	c.BotPermissions = perms
	return c
}

// AsDev marks the command as a dev-only command
func (c *Command) AsDev() *Command {
	c.IsDev = true
	return c
}

// AsGuildOnly rejects the command in direct messages
func (c *Command) AsGuildOnly() *Command {
	c.GuildOnly = true
	return c
}

// RequiresVoice marks the command as requiring the user to be in a voice channel
func (c *Command) RequiresVoice() *Command {
	c.InVoiceChannel = true
	c.GuildOnly = true
	return c
}

// RequiresDatabase marks the command as requiring database access
func (c *Command) RequiresDatabase() *Command {
	c.RequiresDB = true
	return c
}

// WithAutoComplete sets the autocomplete handler
func (c *Command) WithAutoComplete(fn AutoCompleteFunc) *Command {
	c.AutoComplete = fn
	return c
}

// ToApplicationCommand converts the command to a Discord application command
func (c *Command) ToApplicationCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
		Options:     c.Options,
	}
}

// ToSubcommandOption converts the command to a subcommand option of a group
func (c *Command) ToSubcommandOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        c.Name,
		Description: c.Description,
		Options:     c.Options,
	}
}

// Usage renders the text form of the command, e.g. "music play <urls>"
func (c *Command) Usage(fullName string) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(fullName, ".", " "))
	for _, opt := range c.Options {
		if opt.Required {
			b.WriteString(" <" + opt.Name + ">")
		} else {
			b.WriteString(" [" + opt.Name + "]")
		}
	}
	return b.String()
}
