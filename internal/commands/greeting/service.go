package greeting

import (
	"context"
	"fmt"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/formatter"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Store is the part of the greeting repository used to announce members
type Store interface {
	Get(ctx context.Context, kind models.GreetingKind, guildID string) (*models.Greeting, error)
}

// Sender posts embeds to a channel. *discordgo.Session implements it.
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Render expands the placeholders of g for subject
func Render(g *models.Greeting, subject formatter.Subject, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       formatter.FormatMessage(g.Title, subject, now),
		Description: formatter.FormatMessage(g.Description, subject, now),
		Color:       g.Color,
	}
	if g.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: formatter.FormatURL(g.ThumbnailURL, subject, now)}
	}
	if g.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: formatter.FormatURL(g.ImageURL, subject, now)}
	}
	return embed
}

// Announce sends the kind embed of the guild for member, if enabled.
// It reports whether a message was sent.
func Announce(ctx context.Context, store Store, sender Sender, kind models.GreetingKind, member *discordgo.Member, guild *discordgo.Guild) (bool, error) {
	if store == nil || member == nil {
		return false, nil
	}

	g, err := store.Get(ctx, kind, member.GuildID)
	if err != nil {
		return false, fmt.Errorf("load %s greeting of %s: %w", kind, member.GuildID, err)
	}
	if g == nil || !g.Enabled || g.ChannelID == "" {
		return false, nil
	}

	embed := Render(g, formatter.SubjectFromMember(member, guild), time.Now())
	if _, err := sender.ChannelMessageSendEmbed(g.ChannelID, embed); err != nil {
		return false, fmt.Errorf("send %s greeting to %s: %w", kind, g.ChannelID, err)
	}
	logger.Debug(fmt.Sprintf("Mensaje de %s enviado en %s", kind, g.ChannelID), "Greeting")
	return true, nil
}
