package ticket

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/i18n"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const panelColor = 0x5865F2

// Store is the part of the ticket repository the service needs
type Store interface {
	GetConfig(ctx context.Context, guildID string) (*models.TicketConfig, error)
	UpsertConfig(ctx context.Context, guildID, categoryID, adminRoleID string) (*models.TicketConfig, error)
	HasActiveTicket(ctx context.Context, guildID, userID string) (bool, error)
	CreateRecord(ctx context.Context, guildID, userID, channelID string) (*models.TicketRecord, error)
	GetRecordByChannel(ctx context.Context, guildID, channelID string) (*models.TicketRecord, error)
	CloseRecord(ctx context.Context, guildID, channelID string) error
}

// ChannelAPI is the subset of the Discord REST API used for ticket
// channels. *discordgo.Session implements it.
type ChannelAPI interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Opener identifies the member opening a ticket
type Opener struct {
	ID          string
	Username    string
	DisplayName string
}

// Service runs the ticket workflow
type Service struct {
	store Store
	api   ChannelAPI
	// botID returns the bot user ID once the session is ready
	botID func() string
}

// NewService creates the ticket service
func NewService(store Store, api ChannelAPI, botID func() string) *Service {
	return &Service{store: store, api: api, botID: botID}
}

// Setup stores the guild config and posts the panel in panelChannelID
func (s *Service) Setup(ctx context.Context, lang, guildID, panelChannelID, categoryID, adminRoleID string) error {
	if _, err := s.store.UpsertConfig(ctx, guildID, categoryID, adminRoleID); err != nil {
		return err
	}
	if _, err := s.api.ChannelMessageSendComplex(panelChannelID, PanelMessage(lang)); err != nil {
		return fmt.Errorf("send ticket panel to %s: %w", panelChannelID, err)
	}
	logger.Info("Sistema de tickets configurado en "+guildID, "Ticket")
	return nil
}

// Open creates the private ticket channel of opener
func (s *Service) Open(ctx context.Context, lang, guildID string, opener Opener) (*discordgo.Channel, error) {
	cfg, err := s.store.GetConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cfg.CategoryID == "" {
		return nil, errors.NewStatusError("ticket.not_setup", "Ticket system is not set up in %s", guildID)
	}

	active, err := s.store.HasActiveTicket(ctx, guildID, opener.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, errors.NewStatusError("ticket.already_open", "User %s already has an active ticket", opener.ID)
	}

	category, err := s.api.Channel(cfg.CategoryID)
	if err != nil || category == nil || category.Type != discordgo.ChannelTypeGuildCategory {
		return nil, errors.NewStatusError("ticket.category_missing", "Category %s not found", cfg.CategoryID)
	}

	display := opener.DisplayName
	if display == "" {
		display = opener.Username
	}
	channel, err := s.api.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 ChannelName(opener.Username),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                i18n.T(lang, "ticket.topic", display, opener.ID),
		ParentID:             category.ID,
		PermissionOverwrites: Overwrites(guildID, opener.ID, cfg.AdminRoleID, s.self()),
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket channel: %w", err)
	}

	if _, err := s.store.CreateRecord(ctx, guildID, opener.ID, channel.ID); err != nil {
		// Sin registro el canal quedaría huérfano
		if delErr := s.DeleteChannel(channel.ID); delErr != nil {
			logger.Error(fmt.Sprintf("No se pudo eliminar el canal huérfano %s: %v", channel.ID, delErr), "Ticket")
		}
		return nil, err
	}
	if _, err := s.api.ChannelMessageSendComplex(channel.ID, WelcomeMessage(lang, opener.ID)); err != nil {
		logger.Warn("No se pudo enviar la bienvenida del ticket: "+err.Error(), "Ticket")
	}

	logger.Info(fmt.Sprintf("Ticket %s abierto por %s en %s", channel.ID, opener.ID, guildID), "Ticket")
	return channel, nil
}

func (s *Service) self() string {
	if s.botID == nil {
		return ""
	}
	return s.botID()
}

// Close marks the ticket of channelID as closed
func (s *Service) Close(ctx context.Context, guildID, channelID string) error {
	record, err := s.store.GetRecordByChannel(ctx, guildID, channelID)
	if err != nil {
		return err
	}
	if record == nil {
		return errors.NewStatusError("ticket.not_a_ticket", "Channel %s is not a ticket", channelID)
	}
	return s.store.CloseRecord(ctx, guildID, channelID)
}

// DeleteChannel removes a closed ticket channel. A channel that is already
// gone is not an error.
func (s *Service) DeleteChannel(channelID string) error {
	_, err := s.api.ChannelDelete(channelID)
	switch {
	case err == nil:
		logger.Info("Canal de ticket eliminado: "+channelID, "Ticket")
		return nil
	case restCode(err, discordgo.ErrCodeUnknownChannel, http.StatusNotFound):
		logger.Warn("El canal del ticket ya no existe: "+channelID, "Ticket")
		return nil
	case restCode(err, discordgo.ErrCodeMissingPermissions, http.StatusForbidden):
		return errors.NewPermissionError("ticket.delete_forbidden", "Missing permission to delete %s", channelID).WithCause(err)
	}
	return fmt.Errorf("delete ticket channel %s: %w", channelID, err)
}

// restCode reports whether err is a Discord REST error with the given JSON
// error code or HTTP status
func restCode(err error, code, status int) bool {
	var rest *discordgo.RESTError
	if !stderrors.As(err, &rest) {
		return false
	}
	if rest.Message != nil && rest.Message.Code == code {
		return true
	}
	return rest.Response != nil && rest.Response.StatusCode == status
}

// ChannelName is the name of the ticket channel of username
func ChannelName(username string) string {
	return "ticket-" + strings.ToLower(username)
}

// Overwrites hides the channel from everyone but the opener, the admin
// role and the bot. The @everyone role shares the guild ID.
func Overwrites(guildID, userID, adminRoleID, botID string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
		},
	}
	if adminRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    adminRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}
	if botID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
		})
	}
	return overwrites
}

// PanelMessage is the message with the Create Ticket button
func PanelMessage(lang string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       i18n.T(lang, "ticket.panel_title"),
			Description: i18n.T(lang, "ticket.panel_description"),
			Color:       panelColor,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    i18n.T(lang, "ticket.create_button"),
					Style:    discordgo.PrimaryButton,
					CustomID: models.TicketLaunchButtonID,
					Emoji:    &discordgo.ComponentEmoji{Name: "🎫"},
				},
			}},
		},
	}
}

// WelcomeMessage is the first message of a ticket, with the Close button
func WelcomeMessage(lang, userID string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: i18n.T(lang, "ticket.welcome", userID),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    i18n.T(lang, "ticket.close_button"),
					Style:    discordgo.DangerButton,
					CustomID: models.TicketCloseButtonID,
					Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
				},
			}},
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{userID}},
	}
}
