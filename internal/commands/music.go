// Package commands wires the bot cogs into the Discord client.
package commands

import (
	"fmt"
	"strings"

	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/bwmarrin/discordgo"
)

// playlistPageSize is how many queued tracks /music playlist lists
const playlistPageSize = 10

// musicCog holds the commands of the music cog
type musicCog struct {
	manager *music.Manager
}

// RegisterMusicCommands registers the /music group and its text aliases
func RegisterMusicCommands(client *discord.ExtendedClient, manager *music.Manager) {
	cog := &musicCog{manager: manager}

	joinCmd := discord.NewCommand(
		"join",
		"Join your voice channel or the given one",
		"music",
		cog.joinHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Voice channel to join",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice},
		},
	).WithAliases("join").AsGuildOnly()

	playCmd := discord.NewCommand(
		"play",
		"Queue one or more URLs and start playing",
		"music",
		cog.playHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "urls",
			Description: "URLs separated by spaces",
			Required:    true,
		},
	).WithAliases("play").AsGuildOnly()

	playNextCmd := discord.NewCommand(
		"playnext",
		"Queue a URL right after the current track",
		"music",
		cog.playNextHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "url",
			Description: "URL to play next",
			Required:    true,
		},
	).AsGuildOnly()

	volumeCmd := discord.NewCommand(
		"volume",
		"Show or set the volume (0-100)",
		"music",
		cog.volumeHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "value",
			Description: "New volume from 0 to 100",
		},
	).WithAliases("volume").AsGuildOnly()

	skipCmd := discord.NewCommand("skip", "Skip the current track", "music", cog.skipHandler).
		WithAliases("skip").AsGuildOnly()
	pauseCmd := discord.NewCommand("pause", "Pause playback", "music", cog.pauseHandler).
		WithAliases("pause").AsGuildOnly()
	resumeCmd := discord.NewCommand("resume", "Resume playback", "music", cog.resumeHandler).
		AsGuildOnly()
	stopCmd := discord.NewCommand("stop", "Stop playback without advancing", "music", cog.stopHandler).
		AsGuildOnly()
	playlistCmd := discord.NewCommand("playlist", "Show the queued tracks", "music", cog.playlistHandler).
		WithAliases("playlist").AsGuildOnly()
	nowPlayingCmd := discord.NewCommand("nowplaying", "Show the current track", "music", cog.nowPlayingHandler).
		WithAliases("np", "nowplaying").AsGuildOnly()
	clearCmd := discord.NewCommand("clear", "Empty the playlist", "music", cog.clearHandler).
		WithAliases("clear").AsGuildOnly()
	leaveCmd := discord.NewCommand("leave", "Leave the voice channel", "music", cog.leaveHandler).
		WithAliases("leave").AsGuildOnly()
	statusCmd := discord.NewCommand("status", "Show the voice connection status", "music", cog.statusHandler).
		AsGuildOnly()

	client.CommandHandler.RegisterGroup(
		"music",
		"Music playback",
		false,
		joinCmd,
		playCmd,
		playNextCmd,
		volumeCmd,
		skipCmd,
		pauseCmd,
		resumeCmd,
		stopCmd,
		playlistCmd,
		nowPlayingCmd,
		clearCmd,
		leaveCmd,
		statusCmd,
	)
}

// player returns the player of the invoking guild
func (c *musicCog) player(ctx *discord.CommandContext) *music.Player {
	return c.manager.Get(ctx.GuildID())
}

// ensureVoice joins the invoker's channel when the bot is not connected yet
func (c *musicCog) ensureVoice(ctx *discord.CommandContext, p *music.Player) error {
	if p.Connected() {
		return nil
	}
	channelID := ctx.VoiceChannelID()
	if channelID == "" {
		return errors.NewStatusError("music.not_connected", "You are not connected to a voice channel")
	}
	return p.Join(channelID)
}

func requester(ctx *discord.CommandContext) string {
	if u := ctx.User(); u != nil {
		return u.Username
	}
	return ""
}

// joinHandler handles /music join
func (c *musicCog) joinHandler(ctx *discord.CommandContext) error {
	channelID := ""
	if ch := ctx.GetChannelOption("channel"); ch != nil {
		channelID = ch.ID
	} else {
		channelID = ctx.VoiceChannelID()
	}
	if channelID == "" {
		return errors.NewStatusError("music.not_connected", "You are not connected to a voice channel")
	}

	if err := ctx.Defer(); err != nil {
		return err
	}
	if err := c.player(ctx).Join(channelID); err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("music.joined", channelID))
}

// playHandler handles /music play
func (c *musicCog) playHandler(ctx *discord.CommandContext) error {
	urls := splitURLs(ctx.GetStringOption("urls"))
	if len(urls) == 0 {
		return errors.NewValueError("music.no_urls", "No URLs were given")
	}

	// Unirse al canal y yt-dlp tardan más que el límite de 3s de Discord
	if err := ctx.Defer(); err != nil {
		return err
	}
	p := c.player(ctx)
	if err := c.ensureVoice(ctx, p); err != nil {
		return err
	}

	tracks, err := p.AddToPlaylist(ctx.Context(), requester(ctx), urls...)
	if err != nil {
		return err
	}
	if err := p.Play(ctx.Context()); err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("music.added", len(tracks)))
}

// playNextHandler handles /music playnext
func (c *musicCog) playNextHandler(ctx *discord.CommandContext) error {
	urls := splitURLs(ctx.GetStringOption("url"))
	if len(urls) == 0 {
		return errors.NewValueError("music.no_urls", "No URLs were given")
	}

	if err := ctx.Defer(); err != nil {
		return err
	}
	p := c.player(ctx)
	if err := c.ensureVoice(ctx, p); err != nil {
		return err
	}

	track, err := p.AddNext(ctx.Context(), requester(ctx), urls[0])
	if err != nil {
		return err
	}
	if err := p.Play(ctx.Context()); err != nil {
		return err
	}
	return ctx.EditReply(ctx.T("music.added_next", track.Title, track.URL))
}

// volumeHandler handles /music volume
func (c *musicCog) volumeHandler(ctx *discord.CommandContext) error {
	p := c.player(ctx)
	raw := ctx.GetStringOption("value")
	if raw == "" {
		return ctx.Reply(ctx.T("music.volume_current", p.Volume()))
	}

	v, err := p.AdjustVolume(raw)
	if err != nil {
		return err
	}
	return ctx.Reply(ctx.T("music.volume_set", v))
}

// skipHandler handles /music skip
func (c *musicCog) skipHandler(ctx *discord.CommandContext) error {
	if err := c.player(ctx).Skip(ctx.Context()); err != nil {
		return err
	}
	return ctx.Reply(ctx.T("music.skipped"))
}

// pauseHandler handles /music pause
func (c *musicCog) pauseHandler(ctx *discord.CommandContext) error {
	if err := c.player(ctx).Pause(); err != nil {
		return err
	}
	return ctx.Reply(ctx.T("music.paused"))
}

// resumeHandler handles /music resume
func (c *musicCog) resumeHandler(ctx *discord.CommandContext) error {
	if err := c.player(ctx).Resume(ctx.Context()); err != nil {
		return err
	}
	return ctx.Reply(ctx.T("music.resumed"))
}

// stopHandler handles /music stop
func (c *musicCog) stopHandler(ctx *discord.CommandContext) error {
	c.player(ctx).Stop()
	return ctx.Reply(ctx.T("music.stopped"))
}

// playlistHandler handles /music playlist
func (c *musicCog) playlistHandler(ctx *discord.CommandContext) error {
	tracks, err := c.player(ctx).Queue(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.Reply(formatPlaylist(ctx.Locale(), tracks))
}

// nowPlayingHandler handles /music nowplaying
func (c *musicCog) nowPlayingHandler(ctx *discord.CommandContext) error {
	p := c.player(ctx)
	track := p.Current()
	if track == nil {
		return ctx.Reply(ctx.T("music.nothing_playing"))
	}
	return ctx.ReplyEmbed(nowPlayingEmbed(ctx.Locale(), track, p.Progress().Seconds(), p.Volume()))
}

// clearHandler handles /music clear
func (c *musicCog) clearHandler(ctx *discord.CommandContext) error {
	if err := c.player(ctx).Clear(ctx.Context()); err != nil {
		return err
	}
	return ctx.Reply(ctx.T("music.cleared"))
}

// leaveHandler handles /music leave
func (c *musicCog) leaveHandler(ctx *discord.CommandContext) error {
	if err := c.player(ctx).Leave(); err != nil {
		return err
	}
	return ctx.Reply(ctx.T("music.left"))
}

// statusHandler handles /music status
func (c *musicCog) statusHandler(ctx *discord.CommandContext) error {
	p, ok := c.manager.Lookup(ctx.GuildID())
	if !ok || !p.Connected() {
		return ctx.ReplyEphemeral(ctx.T("music.status_disconnected"))
	}
	queued, err := p.Playlist().Len(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.ReplyEphemeral(voiceStatus(ctx.Locale(), p.State(), queued))
}

// splitURLs splits whitespace separated URLs, dropping the <> Discord
// uses to suppress embeds
func splitURLs(raw string) []string {
	fields := strings.Fields(raw)
	urls := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSuffix(strings.TrimPrefix(f, "<"), ">")
		if f != "" {
			urls = append(urls, f)
		}
	}
	return urls
}

// formatPlaylist renders the first page of the queue as a numbered list
func formatPlaylist(lang string, tracks []*music.Track) string {
	if len(tracks) == 0 {
		return i18n.T(lang, "music.playlist_empty")
	}

	var sb strings.Builder
	sb.WriteString("📋 **" + i18n.T(lang, "music.playlist_title") + "**\n")
	for i, t := range tracks {
		if i >= playlistPageSize {
			sb.WriteString(i18n.T(lang, "music.playlist_more", len(tracks)-playlistPageSize))
			break
		}
		sb.WriteString(fmt.Sprintf("%d.[%s](%s) `%s`\n", i+1, t.Title, t.URL, music.FormatDuration(t.Duration)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// nowPlayingEmbed describes the current track
func nowPlayingEmbed(lang string, t *music.Track, progress float64, volume int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:       0x5865F2,
		Title:       "🎵",
		Description: i18n.T(lang, "music.now_playing", t.Title, t.URL),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "⏱",
				Value:  fmt.Sprintf("%s / %s", formatProgress(progress), music.FormatDuration(t.Duration)),
				Inline: true,
			},
			{
				Name:   "🔊",
				Value:  fmt.Sprintf("%d%%", volume),
				Inline: true,
			},
		},
	}
	if t.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	if t.RequestedBy != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: t.RequestedBy}
	}
	return embed
}

// formatProgress renders elapsed seconds; FormatDuration treats 0 as live
func formatProgress(seconds float64) string {
	if seconds < 1 {
		return "0:00"
	}
	return music.FormatDuration(seconds)
}

// voiceStatus summarizes a connected player
func voiceStatus(lang string, st music.State, queued int) string {
	msg := i18n.T(lang, "music.status_connected", st.ChannelID, queued, st.Volume)
	if st.CurrentTrack != nil {
		state := "▶️"
		if st.IsPaused {
			state = "⏸️"
		}
		msg += fmt.Sprintf("\n%s [%s](%s)", state, st.CurrentTrack.Title, st.CurrentTrack.URL)
	}
	return msg
}
