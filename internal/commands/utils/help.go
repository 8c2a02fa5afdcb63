package utils

import (
	"sort"
	"strings"

	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/bwmarrin/discordgo"
)

const maxChoices = 25

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"List the available commands",
		"utils",
		helpHandler,
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "command",
		Description:  "Show a single command",
		Autocomplete: true,
	}).WithAliases("help").WithAutoComplete(helpAutoComplete)
}

// helpHandler handles the /utils help command
func helpHandler(ctx *discord.CommandContext) error {
	commands := ctx.Client.Commands.All()
	if name := ctx.GetStringOption("command"); name != "" {
		if cmd, ok := commands[name]; ok {
			return ctx.ReplyEmbed(CommandEmbed(name, cmd))
		}
	}
	return ctx.ReplyEmbed(HelpEmbed(ctx.Locale(), ctx.Client.Prefix, commands))
}

func helpAutoComplete(ctx *discord.CommandContext) {
	query := ""
	if focused := ctx.FocusedOption(); focused != nil {
		query = strings.ToLower(focused.StringValue())
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for _, name := range ctx.Client.Commands.Names() {
		if len(choices) == maxChoices {
			break
		}
		if strings.HasPrefix(name, "debug.") || !strings.Contains(name, query) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name})
	}
	ctx.RespondChoices(choices)
}

// HelpEmbed lists commands grouped by category. Dev commands are hidden.
func HelpEmbed(lang, prefix string, commands map[string]*discord.Command) *discordgo.MessageEmbed {
	byCategory := make(map[string][]string)
	for name, cmd := range commands {
		if cmd.IsDev {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "general"
		}
		byCategory[category] = append(byCategory[category], "`/"+cmd.Usage(name)+"`")
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	fields := make([]*discordgo.MessageEmbedField, 0, len(categories))
	for _, category := range categories {
		lines := byCategory[category]
		sort.Strings(lines)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  strings.ToUpper(category[:1]) + category[1:],
			Value: truncateField(strings.Join(lines, "\n")),
		})
	}

	return &discordgo.MessageEmbed{
		Title:  i18n.T(lang, "utils.help_title"),
		Color:  0x5865F2,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: i18n.T(lang, "utils.help_footer", prefix) + " | " + config.Version,
		},
	}
}

// CommandEmbed describes one command
func CommandEmbed(name string, cmd *discord.Command) *discordgo.MessageEmbed {
	desc := cmd.Description
	if len(cmd.Aliases) > 0 {
		desc += "\nAliases: `" + strings.Join(cmd.Aliases, "`, `") + "`"
	}
	return &discordgo.MessageEmbed{
		Title:       "/" + cmd.Usage(name),
		Description: desc,
		Color:       0x5865F2,
	}
}

// Discord limits embed field values to 1024 characters
func truncateField(s string) string {
	if len(s) <= 1024 {
		return s
	}
	cut := strings.LastIndex(s[:1020], "\n")
	if cut < 0 {
		cut = 1020
	}
	return s[:cut] + "\n..."
}
