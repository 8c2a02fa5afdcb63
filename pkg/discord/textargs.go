package discord

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/bwmarrin/discordgo"
)

var (
	userMentionRe    = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMentionRe = regexp.MustCompile(`^<#(\d+)>$`)
	roleMentionRe    = regexp.MustCompile(`^<@&(\d+)>$`)
	snowflakeRe      = regexp.MustCompile(`^\d{15,21}$`)
)

// ParseInvocation strips the prefix or the bot mention from content and
// returns the remaining command body. ok is false when the message is not
// addressed to the bot.
func ParseInvocation(content, prefix, botID string) (body string, ok bool) {
	content = strings.TrimSpace(content)
	if prefix != "" && strings.HasPrefix(content, prefix) {
		return strings.TrimSpace(content[len(prefix):]), true
	}
	if botID == "" {
		return "", false
	}
	for _, mention := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if strings.HasPrefix(content, mention) {
			return strings.TrimSpace(content[len(mention):]), true
		}
	}
	return "", false
}

// nextToken splits off the first whitespace-separated token. Double quotes
// group words into one token.
func nextToken(s string) (token, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return "", ""
	}
	if s[0] == '"' {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			return s[1 : end+1], strings.TrimLeftFunc(s[end+2:], unicode.IsSpace)
		}
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}
	return s, ""
}

// Find resolves a text command body to a registered command. It tries an
// alias first, then "group sub sub", "group sub" and "name", with the group
// possibly given by its alias. It returns the full command name and the
// unparsed arguments.
func (cc *CommandCollection) Find(body string) (cmd *Command, name, rest string, ok bool) {
	first, afterFirst := nextToken(body)
	if first == "" {
		return nil, "", "", false
	}
	first = strings.ToLower(first)

	if full, found := cc.Alias(first); found {
		if cmd, ok := cc.Get(full); ok {
			return cmd, full, afterFirst, true
		}
	}

	if group, found := cc.GroupAlias(first); found {
		first = group
	}

	tokens := []string{first}
	rests := []string{afterFirst}
	remaining := afterFirst
	for len(tokens) < 3 {
		tok, r := nextToken(remaining)
		if tok == "" {
			break
		}
		tokens = append(tokens, strings.ToLower(tok))
		rests = append(rests, r)
		remaining = r
	}

	for n := len(tokens); n > 0; n-- {
		full := strings.Join(tokens[:n], ".")
		if cmd, ok := cc.Get(full); ok {
			return cmd, full, rests[n-1], true
		}
	}
	return nil, "", "", false
}

// ParseTextOptions maps positional text arguments onto the declared options.
// The last string option takes the rest of the line.
func ParseTextOptions(options []*discordgo.ApplicationCommandOption, rest string) ([]*discordgo.ApplicationCommandInteractionDataOption, error) {
	lastString := -1
	for i, opt := range options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			lastString = i
		}
	}

	parsed := make([]*discordgo.ApplicationCommandInteractionDataOption, 0, len(options))
	for i, opt := range options {
		var raw string
		if i == lastString {
			raw = strings.TrimSpace(rest)
			if len(raw) > 1 && raw[0] == '"' && raw[len(raw)-1] == '"' && strings.Count(raw, `"`) == 2 {
				raw = raw[1 : len(raw)-1]
			}
			rest = ""
		} else {
			raw, rest = nextToken(rest)
		}

		if raw == "" {
			if opt.Required {
				return nil, errors.NewValueError("common.missing_argument", "missing argument %s", opt.Name)
			}
			continue
		}

		value, ok := parseOptionValue(opt.Type, raw)
		if !ok {
			return nil, errors.NewValueError("common.invalid_argument", "invalid value for %s: %s", opt.Name, raw)
		}
		parsed = append(parsed, &discordgo.ApplicationCommandInteractionDataOption{
			Name:  opt.Name,
			Type:  opt.Type,
			Value: value,
		})
	}
	return parsed, nil
}

// parseOptionValue converts raw into the representation discordgo uses for
// decoded interaction options.
func parseOptionValue(t discordgo.ApplicationCommandOptionType, raw string) (interface{}, bool) {
	switch t {
	case discordgo.ApplicationCommandOptionString:
		return raw, true
	case discordgo.ApplicationCommandOptionInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return float64(n), true
	case discordgo.ApplicationCommandOptionNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case discordgo.ApplicationCommandOptionBoolean:
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "on", "1", "si", "sí":
			return true, true
		case "false", "no", "n", "off", "0":
			return false, true
		}
		return nil, false
	case discordgo.ApplicationCommandOptionUser:
		return snowflakeFrom(raw, userMentionRe)
	case discordgo.ApplicationCommandOptionChannel:
		return snowflakeFrom(raw, channelMentionRe)
	case discordgo.ApplicationCommandOptionRole:
		return snowflakeFrom(raw, roleMentionRe)
	case discordgo.ApplicationCommandOptionMentionable:
		if id, ok := snowflakeFrom(raw, userMentionRe); ok {
			return id, true
		}
		return snowflakeFrom(raw, roleMentionRe)
	}
	return nil, false
}

func snowflakeFrom(raw string, mention *regexp.Regexp) (interface{}, bool) {
	if m := mention.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if snowflakeRe.MatchString(raw) {
		return raw, true
	}
	return nil, false
}
