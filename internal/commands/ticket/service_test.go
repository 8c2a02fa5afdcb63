package ticket

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	config    *models.TicketConfig
	records   map[string]*models.TicketRecord
	createErr error
}

func newFakeStore(cfg *models.TicketConfig) *fakeStore {
	return &fakeStore{config: cfg, records: make(map[string]*models.TicketRecord)}
}

func (s *fakeStore) GetConfig(context.Context, string) (*models.TicketConfig, error) {
	return s.config, nil
}

func (s *fakeStore) UpsertConfig(_ context.Context, guildID, categoryID, adminRoleID string) (*models.TicketConfig, error) {
	s.config = &models.TicketConfig{GuildID: guildID, CategoryID: categoryID, AdminRoleID: adminRoleID}
	return s.config, nil
}

func (s *fakeStore) HasActiveTicket(_ context.Context, _, userID string) (bool, error) {
	for _, r := range s.records {
		if r.UserID == userID && r.Status == models.TicketStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateRecord(_ context.Context, guildID, userID, channelID string) (*models.TicketRecord, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	r := &models.TicketRecord{GuildID: guildID, UserID: userID, ChannelID: channelID, Status: models.TicketStatusOpen}
	s.records[channelID] = r
	return r, nil
}

func (s *fakeStore) GetRecordByChannel(_ context.Context, _, channelID string) (*models.TicketRecord, error) {
	return s.records[channelID], nil
}

func (s *fakeStore) CloseRecord(_ context.Context, _, channelID string) error {
	if r, ok := s.records[channelID]; ok {
		r.Status = models.TicketStatusClosed
	}
	return nil
}

type fakeAPI struct {
	channels  map[string]*discordgo.Channel
	created   []discordgo.GuildChannelCreateData
	messages  map[string][]*discordgo.MessageSend
	deleteErr error
	deleted   []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		channels: map[string]*discordgo.Channel{
			"cat": {ID: "cat", Type: discordgo.ChannelTypeGuildCategory},
			"txt": {ID: "txt", Type: discordgo.ChannelTypeGuildText},
		},
		messages: make(map[string][]*discordgo.MessageSend),
	}
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	}
	return ch, nil
}

func (f *fakeAPI) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.created = append(f.created, data)
	ch := &discordgo.Channel{ID: "ticket1", GuildID: guildID, Name: data.Name, ParentID: data.ParentID}
	f.channels[ch.ID] = ch
	return ch, nil
}

func (f *fakeAPI) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, channelID)
	return f.channels[channelID], nil
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.messages[channelID] = append(f.messages[channelID], data)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code},
	}
}

func botID() string { return "bot" }

func userErrorKey(t *testing.T, err error) string {
	t.Helper()
	ue, ok := errors.AsUserError(err)
	require.True(t, ok, "expected a UserError, got %v", err)
	return ue.Key
}

func TestSetupPostsPanel(t *testing.T) {
	store := newFakeStore(nil)
	api := newFakeAPI()
	s := NewService(store, api, botID)

	require.NoError(t, s.Setup(context.Background(), "en", "g1", "txt", "cat", "admins"))
	assert.Equal(t, &models.TicketConfig{GuildID: "g1", CategoryID: "cat", AdminRoleID: "admins"}, store.config)

	require.Len(t, api.messages["txt"], 1)
	panel := api.messages["txt"][0]
	assert.Equal(t, "Support Ticket", panel.Embeds[0].Title)
	button := panel.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, models.TicketLaunchButtonID, button.CustomID)
	assert.Equal(t, "Create Ticket", button.Label)
}

func TestOpenErrors(t *testing.T) {
	opener := Opener{ID: "u1", Username: "Alice"}

	tests := []struct {
		name    string
		config  *models.TicketConfig
		open    bool
		wantKey string
	}{
		{"not set up", nil, false, "ticket.not_setup"},
		{"already open", &models.TicketConfig{CategoryID: "cat"}, true, "ticket.already_open"},
		{"category deleted", &models.TicketConfig{CategoryID: "gone"}, false, "ticket.category_missing"},
		{"not a category", &models.TicketConfig{CategoryID: "txt"}, false, "ticket.category_missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(tt.config)
			if tt.open {
				store.records["old"] = &models.TicketRecord{UserID: "u1", Status: models.TicketStatusOpen}
			}
			api := newFakeAPI()

			_, err := NewService(store, api, botID).Open(context.Background(), "en", "g1", opener)
			if got := userErrorKey(t, err); got != tt.wantKey {
				t.Errorf("Open() key = %s, want %s", got, tt.wantKey)
			}
			assert.Empty(t, api.created)
		})
	}
}

func TestOpenCreatesPrivateChannel(t *testing.T) {
	store := newFakeStore(&models.TicketConfig{GuildID: "g1", CategoryID: "cat", AdminRoleID: "admins"})
	api := newFakeAPI()
	s := NewService(store, api, botID)

	ch, err := s.Open(context.Background(), "en", "g1", Opener{ID: "u1", Username: "Alice", DisplayName: "Ali"})
	require.NoError(t, err)
	assert.Equal(t, "ticket1", ch.ID)

	require.Len(t, api.created, 1)
	data := api.created[0]
	assert.Equal(t, "ticket-alice", data.Name)
	assert.Equal(t, "cat", data.ParentID)
	assert.Equal(t, "Ticket for Ali (ID: u1)", data.Topic)
	assert.Len(t, data.PermissionOverwrites, 4)

	record := store.records["ticket1"]
	require.NotNil(t, record)
	assert.Equal(t, models.TicketStatusOpen, record.Status)

	require.Len(t, api.messages["ticket1"], 1)
	welcome := api.messages["ticket1"][0]
	assert.Equal(t, "Welcome <@u1>, support will be with you shortly.", welcome.Content)
	button := welcome.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, models.TicketCloseButtonID, button.CustomID)

	_, err = s.Open(context.Background(), "en", "g1", Opener{ID: "u1", Username: "Alice"})
	assert.Equal(t, "ticket.already_open", userErrorKey(t, err))
}

func TestOpenDeletesChannelWhenRecordFails(t *testing.T) {
	store := newFakeStore(&models.TicketConfig{GuildID: "g1", CategoryID: "cat"})
	store.createErr = stderrors.New("mongo down")
	api := newFakeAPI()

	ch, err := NewService(store, api, botID).Open(context.Background(), "en", "g1", Opener{ID: "u1", Username: "Alice"})
	assert.EqualError(t, err, "mongo down")
	assert.Nil(t, ch)
	assert.Len(t, api.created, 1)
	assert.Equal(t, []string{"ticket1"}, api.deleted)
	assert.Empty(t, api.messages["ticket1"])
}

func TestOverwrites(t *testing.T) {
	got := Overwrites("g1", "u1", "", "")
	require.Len(t, got, 2)

	everyone := got[0]
	assert.Equal(t, "g1", everyone.ID)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), everyone.Deny)
	assert.Zero(t, everyone.Allow)

	member := got[1]
	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, member.Type)
	assert.NotZero(t, member.Allow&discordgo.PermissionReadMessageHistory)

	got = Overwrites("g1", "u1", "admins", "bot")
	require.Len(t, got, 4)
	assert.Equal(t, "admins", got[2].ID)
	assert.Equal(t, int64(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages), got[2].Allow)
	assert.Equal(t, "bot", got[3].ID)
}

func TestClose(t *testing.T) {
	store := newFakeStore(&models.TicketConfig{CategoryID: "cat"})
	store.records["ticket1"] = &models.TicketRecord{ChannelID: "ticket1", UserID: "u1", Status: models.TicketStatusOpen}
	s := NewService(store, newFakeAPI(), botID)

	assert.Equal(t, "ticket.not_a_ticket", userErrorKey(t, s.Close(context.Background(), "g1", "txt")))

	require.NoError(t, s.Close(context.Background(), "g1", "ticket1"))
	assert.Equal(t, models.TicketStatusClosed, store.records["ticket1"].Status)
}

func TestDeleteChannel(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantKey string
		wantErr bool
	}{
		{name: "deleted"},
		{name: "already gone", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)},
		{name: "forbidden", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), wantKey: "ticket.delete_forbidden", wantErr: true},
		{name: "server error", err: restError(http.StatusInternalServerError, 0), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.deleteErr = tt.err

			err := NewService(newFakeStore(nil), api, botID).DeleteChannel("ticket1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("DeleteChannel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantKey != "" {
				assert.Equal(t, tt.wantKey, userErrorKey(t, err))
			}
		})
	}
}
