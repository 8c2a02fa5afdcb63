package greeting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/formatter"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore map[models.GreetingKind]*models.Greeting

func (f fakeStore) Get(_ context.Context, kind models.GreetingKind, _ string) (*models.Greeting, error) {
	return f[kind], nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, models.GreetingKind, string) (*models.Greeting, error) {
	return nil, errors.New("mongo down")
}

type sent struct {
	channelID string
	embed     *discordgo.MessageEmbed
}

type fakeSender struct {
	sent []sent
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, sent{channelID, embed})
	return &discordgo.Message{}, nil
}

func TestRender(t *testing.T) {
	now := time.Date(2025, 12, 14, 14, 30, 0, 0, time.UTC)
	subject := formatter.Subject{
		MemberID:          "42",
		MemberName:        "alice",
		MemberAvatarURL:   "https://cdn/avatar.png",
		ServerName:        "Tavern",
		ServerMemberCount: 7,
		ServerIconURL:     "https://cdn/icon.png",
	}

	tests := []struct {
		name          string
		greeting      models.Greeting
		wantTitle     string
		wantDesc      string
		wantThumbnail string
		wantImage     string
	}{
		{
			name:      "defaults",
			greeting:  models.DefaultGreeting(models.GreetingWelcome, "g1"),
			wantTitle: "Welcome alice!",
			wantDesc:  "<@42> joined Tavern. You are member #7.",
		},
		{
			name: "url placeholders",
			greeting: models.Greeting{
				Title:        "{date}",
				Description:  "{time}",
				ThumbnailURL: "{member}",
				ImageURL:     "{server}",
			},
			wantTitle:     "2025-12-14",
			wantDesc:      "14:30",
			wantThumbnail: "https://cdn/avatar.png",
			wantImage:     "https://cdn/icon.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := Render(&tt.greeting, subject, now)
			if embed.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", embed.Title, tt.wantTitle)
			}
			if embed.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", embed.Description, tt.wantDesc)
			}
			if tt.wantThumbnail == "" {
				assert.Nil(t, embed.Thumbnail)
			} else {
				assert.Equal(t, tt.wantThumbnail, embed.Thumbnail.URL)
			}
			if tt.wantImage == "" {
				assert.Nil(t, embed.Image)
			} else {
				assert.Equal(t, tt.wantImage, embed.Image.URL)
			}
		})
	}
}

func TestAnnounce(t *testing.T) {
	member := &discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "42", Username: "alice"}}
	guild := &discordgo.Guild{ID: "g1", Name: "Tavern", MemberCount: 3}

	welcome := models.DefaultGreeting(models.GreetingWelcome, "g1")
	welcome.ChannelID = "c1"
	welcome.Enabled = true

	farewellOff := models.DefaultGreeting(models.GreetingFarewell, "g1")
	farewellOff.ChannelID = "c2"

	store := fakeStore{
		models.GreetingWelcome:  &welcome,
		models.GreetingFarewell: &farewellOff,
	}

	sender := &fakeSender{}
	ok, err := Announce(context.Background(), store, sender, models.GreetingWelcome, member, guild)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "c1", sender.sent[0].channelID)
	assert.Equal(t, "<@42> joined Tavern. You are member #3.", sender.sent[0].embed.Description)

	ok, err = Announce(context.Background(), store, sender, models.GreetingFarewell, member, guild)
	require.NoError(t, err)
	assert.False(t, ok, "disabled greetings are not sent")
	assert.Len(t, sender.sent, 1)
}

func TestAnnounceNotConfigured(t *testing.T) {
	member := &discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "42"}}
	sender := &fakeSender{}

	ok, err := Announce(context.Background(), fakeStore{}, sender, models.GreetingWelcome, member, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Announce(context.Background(), failingStore{}, sender, models.GreetingWelcome, member, nil)
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}
