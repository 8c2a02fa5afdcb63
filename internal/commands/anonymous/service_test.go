package anonymous

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	settings *models.AnonymousSettings
	user     *models.AnonymousUser
}

func (s *fakeStore) GetSettings(context.Context, string) (*models.AnonymousSettings, error) {
	return s.settings, nil
}

func (s *fakeStore) GetUser(context.Context, string, string) (*models.AnonymousUser, error) {
	return s.user, nil
}

type fakeLimiter struct {
	taken map[string]time.Duration
}

func (l *fakeLimiter) Available() bool { return l != nil }

func (l *fakeLimiter) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) (bool, error) {
	if _, ok := l.taken[key]; ok {
		return false, nil
	}
	l.taken[key] = ttl
	return true, nil
}

func (l *fakeLimiter) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(l.taken, k)
	}
	return nil
}

type fakeWebhooks struct {
	hooks      map[string][]*discordgo.Webhook
	created    int
	deleted    []string
	executed   []*discordgo.WebhookParams
	executeErr error
}

func newFakeWebhooks() *fakeWebhooks {
	return &fakeWebhooks{hooks: make(map[string][]*discordgo.Webhook)}
}

func (f *fakeWebhooks) ChannelWebhooks(channelID string, _ ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	return f.hooks[channelID], nil
}

func (f *fakeWebhooks) WebhookCreate(channelID, name, _ string, _ ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.created++
	h := &discordgo.Webhook{ID: fmt.Sprintf("wh%d", f.created), Name: name, ChannelID: channelID, Token: "tok"}
	f.hooks[channelID] = append(f.hooks[channelID], h)
	return h, nil
}

func (f *fakeWebhooks) WebhookDelete(id string, _ ...discordgo.RequestOption) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeWebhooks) WebhookExecute(_, _ string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	f.executed = append(f.executed, data)
	return nil, nil
}

func enabledSettings() *models.AnonymousSettings {
	return &models.AnonymousSettings{
		GuildID:      "g1",
		Enabled:      true,
		ChannelIDs:   []string{"c1"},
		BlockedUsers: []string{"banned"},
	}
}

func TestCheckSend(t *testing.T) {
	user := &models.AnonymousUser{DisplayName: "Ghost"}
	disabled := enabledSettings()
	disabled.Enabled = false

	tests := []struct {
		name     string
		settings *models.AnonymousSettings
		user     *models.AnonymousUser
		channel  string
		userID   string
		wantKey  string
	}{
		{"never configured", nil, user, "c1", "u1", "anonymous.disabled"},
		{"disabled", disabled, user, "c1", "u1", "anonymous.disabled"},
		{"other channel", enabledSettings(), user, "c2", "u1", "anonymous.channel_not_allowed"},
		{"blocked", enabledSettings(), user, "c1", "banned", "anonymous.blocked"},
		{"no profile", enabledSettings(), nil, "c1", "u1", "anonymous.no_profile"},
		{"allowed", enabledSettings(), user, "c1", "u1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSend(tt.settings, tt.user, tt.channel, tt.userID)
			if tt.wantKey == "" {
				if err != nil {
					t.Errorf("CheckSend() = %v, want nil", err)
				}
				return
			}
			ue, ok := errors.AsUserError(err)
			if !ok || ue.Key != tt.wantKey {
				t.Errorf("CheckSend() = %v, want key %s", err, tt.wantKey)
			}
		})
	}
}

func TestEnsureWebhookReusesExisting(t *testing.T) {
	hooks := newFakeWebhooks()
	hooks.hooks["c1"] = []*discordgo.Webhook{{ID: "other", Name: "someone else"}}
	s := NewService(&fakeStore{}, nil, hooks)

	first, err := s.EnsureWebhook("c1")
	require.NoError(t, err)
	second, err := s.EnsureWebhook("c1")
	require.NoError(t, err)

	assert.Equal(t, 1, hooks.created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, WebhookName, first.Name)
}

func TestRemoveWebhook(t *testing.T) {
	hooks := newFakeWebhooks()
	s := NewService(&fakeStore{}, nil, hooks)

	require.NoError(t, s.RemoveWebhook("c1"))
	assert.Empty(t, hooks.deleted)

	hooks.hooks["c1"] = []*discordgo.Webhook{{ID: "mine", Name: WebhookName}}
	require.NoError(t, s.RemoveWebhook("c1"))
	assert.Equal(t, []string{"mine"}, hooks.deleted)
}

func TestSendPostsThroughWebhook(t *testing.T) {
	hooks := newFakeWebhooks()
	store := &fakeStore{
		settings: enabledSettings(),
		user:     &models.AnonymousUser{DisplayName: "Ghost", AvatarURL: "https://img/ghost.png"},
	}
	s := NewService(store, nil, hooks)

	require.NoError(t, s.Send(context.Background(), "g1", "c1", "u1", "hello @everyone"))
	require.Len(t, hooks.executed, 1)

	msg := hooks.executed[0]
	assert.Equal(t, "hello @everyone", msg.Content)
	assert.Equal(t, "Ghost", msg.Username)
	assert.Equal(t, "https://img/ghost.png", msg.AvatarURL)
	assert.Empty(t, msg.AllowedMentions.Parse, "mentions are never parsed")
}

func TestSendCooldown(t *testing.T) {
	settings := enabledSettings()
	settings.CooldownSeconds = 30
	store := &fakeStore{settings: settings, user: &models.AnonymousUser{DisplayName: "Ghost"}}
	limiter := &fakeLimiter{taken: make(map[string]time.Duration)}
	hooks := newFakeWebhooks()
	s := NewService(store, limiter, hooks)

	require.NoError(t, s.Send(context.Background(), "g1", "c1", "u1", "one"))
	assert.Equal(t, 30*time.Second, limiter.taken[CooldownKey("g1")])

	err := s.Send(context.Background(), "g1", "c1", "u2", "two")
	assert.True(t, errors.IsKind(err, errors.KindStatus))
	ue, _ := errors.AsUserError(err)
	assert.Equal(t, "anonymous.cooldown", ue.Key)
	assert.Len(t, hooks.executed, 1)
}

func TestSendFailureReleasesCooldown(t *testing.T) {
	settings := enabledSettings()
	settings.CooldownSeconds = 30
	store := &fakeStore{settings: settings, user: &models.AnonymousUser{DisplayName: "Ghost"}}
	limiter := &fakeLimiter{taken: make(map[string]time.Duration)}
	hooks := newFakeWebhooks()
	hooks.executeErr = stderrors.New("webhook gone")
	s := NewService(store, limiter, hooks)

	err := s.Send(context.Background(), "g1", "c1", "u1", "one")
	assert.ErrorContains(t, err, "webhook gone")
	assert.NotContains(t, limiter.taken, CooldownKey("g1"))

	hooks.executeErr = nil
	require.NoError(t, s.Send(context.Background(), "g1", "c1", "u1", "retry"))
	assert.Len(t, hooks.executed, 1)
	assert.Contains(t, limiter.taken, CooldownKey("g1"))
}

func TestBuildConfigEmbed(t *testing.T) {
	embed := BuildConfigEmbed("en", nil)
	assert.Equal(t, "Anonymous Configuration", embed.Title)
	assert.Equal(t, colorDisabled, embed.Color)
	assert.Equal(t, "None", embed.Fields[2].Value)
	assert.Equal(t, "None", embed.Fields[3].Value)

	settings := enabledSettings()
	settings.ChannelIDs = []string{"c1", "c2"}
	settings.CooldownSeconds = 10
	embed = BuildConfigEmbed("en", settings)
	assert.Equal(t, colorEnabled, embed.Color)
	assert.Equal(t, "✅ Enabled", embed.Fields[0].Value)
	assert.Equal(t, "10s", embed.Fields[1].Value)
	assert.Equal(t, "<#c1>\n<#c2>", embed.Fields[2].Value)
	assert.Equal(t, "<@banned>", embed.Fields[3].Value)
}

func TestChannelList(t *testing.T) {
	assert.Equal(t, "<#a>, <#b>", channelList([]string{"a", "b"}))
}
