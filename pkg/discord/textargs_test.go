package discord

import (
	"testing"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvocation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"prefix", "!music play x", "music play x", true},
		{"prefix with spaces", "  !  skip ", "skip", true},
		{"mention", "<@42> np", "np", true},
		{"nick mention", "<@!42>   help", "help", true},
		{"other mention", "<@43> np", "", false},
		{"plain text", "hello there", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInvocation(tt.content, "!", "42")
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseInvocation(%q) = %q, %v; want %q, %v", tt.content, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNextToken(t *testing.T) {
	tok, rest := nextToken(`  "hello world" again`)
	assert.Equal(t, "hello world", tok)
	assert.Equal(t, "again", rest)

	tok, rest = nextToken("one")
	assert.Equal(t, "one", tok)
	assert.Empty(t, rest)

	tok, _ = nextToken("   ")
	assert.Empty(t, tok)
}

func TestCommandCollectionFind(t *testing.T) {
	cc := NewCommandCollection()
	play := NewCommand("play", "", "music", nil).WithAliases("play", "p")
	join := NewCommand("join", "", "music", nil)
	enable := NewCommand("enable", "", "anonymous", nil)
	ping := NewCommand("ping", "", "utils", nil)
	cc.Set("music.play", play)
	cc.Set("music.join", join)
	cc.Set("anonymous.admin.enable", enable)
	cc.Set("ping", ping)
	cc.AliasGroup("Anon", "anonymous")

	tests := []struct {
		body     string
		wantCmd  *Command
		wantName string
		wantRest string
	}{
		{"p https://youtu.be/a https://youtu.be/b", play, "music.play", "https://youtu.be/a https://youtu.be/b"},
		{"music join", join, "music.join", ""},
		{"MUSIC Play url", play, "music.play", "url"},
		{"anonymous admin enable", enable, "anonymous.admin.enable", ""},
		{"anon admin enable", enable, "anonymous.admin.enable", ""},
		{"ANON admin enable", enable, "anonymous.admin.enable", ""},
		{"ping extra words", ping, "ping", "extra words"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			cmd, name, rest, ok := cc.Find(tt.body)
			require.True(t, ok)
			assert.Same(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantRest, rest)
		})
	}

	_, _, _, ok := cc.Find("unknown thing")
	assert.False(t, ok)
	_, _, _, ok = cc.Find("")
	assert.False(t, ok)
}

func TestParseTextOptions(t *testing.T) {
	options := []*discordgo.ApplicationCommandOption{
		{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Required: true},
		{Name: "count", Type: discordgo.ApplicationCommandOptionInteger},
		{Name: "loud", Type: discordgo.ApplicationCommandOptionBoolean},
		{Name: "message", Type: discordgo.ApplicationCommandOptionString},
	}

	got, err := ParseTextOptions(options, "<#123456789012345678> 3 yes hello there friend")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "123456789012345678", got[0].Value)
	assert.Equal(t, int64(3), got[1].IntValue())
	assert.True(t, got[2].BoolValue())
	assert.Equal(t, "hello there friend", got[3].StringValue())
}

func TestParseTextOptionsMentions(t *testing.T) {
	tests := []struct {
		typ  discordgo.ApplicationCommandOptionType
		raw  string
		want string
	}{
		{discordgo.ApplicationCommandOptionUser, "<@123456789012345678>", "123456789012345678"},
		{discordgo.ApplicationCommandOptionUser, "<@!123456789012345678>", "123456789012345678"},
		{discordgo.ApplicationCommandOptionUser, "123456789012345678", "123456789012345678"},
		{discordgo.ApplicationCommandOptionRole, "<@&123456789012345678>", "123456789012345678"},
		{discordgo.ApplicationCommandOptionMentionable, "<@&123456789012345678>", "123456789012345678"},
	}
	for _, tt := range tests {
		got, err := ParseTextOptions([]*discordgo.ApplicationCommandOption{{Name: "x", Type: tt.typ}}, tt.raw)
		require.NoError(t, err, tt.raw)
		require.Len(t, got, 1)
		assert.Equal(t, tt.want, got[0].Value, tt.raw)
	}
}

func TestParseTextOptionsErrors(t *testing.T) {
	options := []*discordgo.ApplicationCommandOption{
		{Name: "value", Type: discordgo.ApplicationCommandOptionInteger, Required: true},
	}

	_, err := ParseTextOptions(options, "")
	ue, ok := errors.AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "common.missing_argument", ue.Key)
	assert.Equal(t, []interface{}{"value"}, ue.Args)

	_, err = ParseTextOptions(options, "loud")
	ue, ok = errors.AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "common.invalid_argument", ue.Key)
	assert.True(t, errors.IsKind(err, errors.KindValue))

	_, err = ParseTextOptions([]*discordgo.ApplicationCommandOption{
		{Name: "user", Type: discordgo.ApplicationCommandOptionUser},
	}, "bob")
	assert.Error(t, err)
}

func TestParseTextOptionsOptionalMissing(t *testing.T) {
	got, err := ParseTextOptions([]*discordgo.ApplicationCommandOption{
		{Name: "value", Type: discordgo.ApplicationCommandOptionString},
	}, "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}
