package anonymous

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/formatter"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// WebhookName is the name of the webhook anonymous messages are posted with
const WebhookName = "isekaitavern anonymous bot"

// MaxCooldown is the largest per-guild cooldown accepted, one day
const MaxCooldown = 24 * 60 * 60

const (
	colorEnabled  = 0x3498DB
	colorDisabled = 0x979C9F
)

// Store is the part of the anonymous repository the service needs
type Store interface {
	GetSettings(ctx context.Context, guildID string) (*models.AnonymousSettings, error)
	GetUser(ctx context.Context, guildID, userID string) (*models.AnonymousUser, error)
}

// Limiter reserves a key for a while, e.g. Redis SET NX EX
type Limiter interface {
	Available() bool
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// WebhookAPI is the subset of the Discord REST API used for webhooks.
// *discordgo.Session implements it.
type WebhookAPI interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookDelete(webhookID string, options ...discordgo.RequestOption) error
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Service posts anonymous messages through channel webhooks
type Service struct {
	store    Store
	limiter  Limiter
	webhooks WebhookAPI
}

// NewService creates the anonymous messaging service
func NewService(store Store, limiter Limiter, webhooks WebhookAPI) *Service {
	return &Service{store: store, limiter: limiter, webhooks: webhooks}
}

// CooldownKey is the Redis key that rate limits a guild
func CooldownKey(guildID string) string {
	return "AnonymousService:cooldown:" + guildID
}

// findWebhook returns the bot webhook of a channel, or nil
func (s *Service) findWebhook(channelID string) (*discordgo.Webhook, error) {
	hooks, err := s.webhooks.ChannelWebhooks(channelID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks of %s: %w", channelID, err)
	}
	for _, h := range hooks {
		if h.Name == WebhookName {
			return h, nil
		}
	}
	return nil, nil
}

// EnsureWebhook returns the bot webhook of a channel, creating it if missing
func (s *Service) EnsureWebhook(channelID string) (*discordgo.Webhook, error) {
	hook, err := s.findWebhook(channelID)
	if err != nil {
		return nil, err
	}
	if hook != nil {
		logger.Debug("Webhook ya existe en el canal "+channelID, "Anonymous")
		return hook, nil
	}

	hook, err = s.webhooks.WebhookCreate(channelID, WebhookName, "")
	if err != nil {
		return nil, fmt.Errorf("create webhook in %s: %w", channelID, err)
	}
	logger.Info("Webhook anónimo creado en el canal "+channelID, "Anonymous")
	return hook, nil
}

// RemoveWebhook deletes the bot webhook of a channel if there is one
func (s *Service) RemoveWebhook(channelID string) error {
	hook, err := s.findWebhook(channelID)
	if err != nil {
		return err
	}
	if hook == nil {
		logger.Debug("No hay webhook en el canal "+channelID, "Anonymous")
		return nil
	}
	if err := s.webhooks.WebhookDelete(hook.ID); err != nil {
		return fmt.Errorf("delete webhook %s: %w", hook.ID, err)
	}
	logger.Info("Webhook anónimo eliminado del canal "+channelID, "Anonymous")
	return nil
}

// CheckSend decides whether userID may post in channelID. settings and user
// may be nil when nothing is stored yet.
func CheckSend(settings *models.AnonymousSettings, user *models.AnonymousUser, channelID, userID string) error {
	switch {
	case settings == nil || !settings.Enabled:
		return errors.NewStatusError("anonymous.disabled", "Anonymous messaging is disabled")
	case !settings.HasChannel(channelID):
		return errors.NewStatusError("anonymous.channel_not_allowed", "Channel %s is not an anonymous channel", channelID)
	case settings.IsBlocked(userID):
		return errors.NewPermissionError("anonymous.blocked", "User %s is blocked", userID)
	case user == nil || user.DisplayName == "":
		return errors.NewStatusError("anonymous.no_profile", "User %s has no anonymous profile", userID)
	}
	return nil
}

// Send posts content anonymously in channelID on behalf of userID
func (s *Service) Send(ctx context.Context, guildID, channelID, userID, content string) error {
	settings, err := s.store.GetSettings(ctx, guildID)
	if err != nil {
		return err
	}
	user, err := s.store.GetUser(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if err := CheckSend(settings, user, channelID, userID); err != nil {
		return err
	}

	release, err := s.reserve(ctx, guildID, settings.CooldownSeconds)
	if err != nil {
		return err
	}

	hook, err := s.EnsureWebhook(channelID)
	if err != nil {
		release(ctx)
		return err
	}

	_, err = s.webhooks.WebhookExecute(hook.ID, hook.Token, false, WebhookPayload(user, content))
	if err != nil {
		// El mensaje no salió, así que no cuenta para el cooldown
		release(ctx)
		return fmt.Errorf("execute webhook %s: %w", hook.ID, err)
	}
	return nil
}

// reserve takes the guild cooldown and returns a func that gives it back.
// Without Redis there is no cooldown.
func (s *Service) reserve(ctx context.Context, guildID string, seconds int) (func(context.Context), error) {
	noop := func(context.Context) {}
	if seconds <= 0 || s.limiter == nil || !s.limiter.Available() {
		return noop, nil
	}
	key := CooldownKey(guildID)
	ok, err := s.limiter.SetNX(ctx, key, 1, time.Duration(seconds)*time.Second)
	if err != nil {
		logger.Warn("No se pudo reservar el cooldown anónimo: "+err.Error(), "Anonymous")
		return noop, nil
	}
	if !ok {
		return nil, errors.NewStatusError("anonymous.cooldown", "Guild %s is on cooldown", guildID)
	}
	return func(ctx context.Context) {
		if err := s.limiter.Delete(ctx, key); err != nil {
			logger.Warn("No se pudo liberar el cooldown anónimo: "+err.Error(), "Anonymous")
		}
	}, nil
}

// WebhookPayload builds the message posted under the anonymous persona
func WebhookPayload(user *models.AnonymousUser, content string) *discordgo.WebhookParams {
	return &discordgo.WebhookParams{
		Content:   content,
		Username:  user.DisplayName,
		AvatarURL: user.AvatarURL,
		// Nadie debe poder mencionar @everyone de forma anónima
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}

// BuildPreview shows how messages of a persona will look
func BuildPreview(lang, displayName, avatarURL string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: i18n.T(lang, "anonymous.preview"),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    displayName,
			IconURL: avatarURL,
		},
	}
}

// BuildConfigEmbed renders the guild settings
func BuildConfigEmbed(lang string, settings *models.AnonymousSettings) *discordgo.MessageEmbed {
	if settings == nil {
		settings = &models.AnonymousSettings{}
	}

	color := colorDisabled
	status := i18n.T(lang, "anonymous.status_disabled")
	if settings.Enabled {
		color = colorEnabled
		status = i18n.T(lang, "anonymous.status_enabled")
	}
	none := i18n.T(lang, "common.none")

	return &discordgo.MessageEmbed{
		Title: i18n.T(lang, "anonymous.config_title"),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: i18n.T(lang, "anonymous.field_status"), Value: status, Inline: true},
			{Name: i18n.T(lang, "anonymous.field_cooldown"), Value: fmt.Sprintf("%ds", settings.CooldownSeconds), Inline: true},
			{Name: i18n.T(lang, "anonymous.field_channels"), Value: formatter.JoinMentions(settings.ChannelIDs, formatter.ChannelMention, none)},
			{Name: i18n.T(lang, "anonymous.field_blocked"), Value: formatter.JoinMentions(settings.BlockedUsers, formatter.UserMention, none)},
		},
	}
}

// channelList renders channel mentions on one line
func channelList(ids []string) string {
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = formatter.ChannelMention(id)
	}
	return strings.Join(mentions, ", ")
}
