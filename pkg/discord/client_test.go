package discord

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport answers every Discord REST call with an empty object
// and keeps the request bodies
type recordingTransport struct {
	mu     sync.Mutex
	bodies []string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	rt.mu.Lock()
	rt.bodies = append(rt.bodies, body)
	rt.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("{}")),
		Request:    req,
	}, nil
}

func (rt *recordingTransport) Bodies() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.bodies...)
}

func newRecordingSession(t *testing.T) (*discordgo.Session, *recordingTransport) {
	t.Helper()
	s, err := discordgo.New("Bot test")
	require.NoError(t, err)
	rt := &recordingTransport{}
	s.Client = &http.Client{Transport: rt}
	return s, rt
}

func componentInteraction(guildID, customID string) *discordgo.InteractionCreate {
	i := &discordgo.Interaction{
		ID:      "i1",
		Token:   "tok",
		Type:    discordgo.InteractionMessageComponent,
		GuildID: guildID,
		Locale:  discordgo.EnglishUS,
		Data:    discordgo.MessageComponentInteractionData{CustomID: customID},
	}
	if guildID != "" {
		i.Member = &discordgo.Member{User: &discordgo.User{ID: "u1"}}
	} else {
		i.User = &discordgo.User{ID: "u1"}
	}
	return &discordgo.InteractionCreate{Interaction: i}
}

func TestComponentsRunChecks(t *testing.T) {
	tests := []struct {
		name     string
		guildID  string
		dbUp     bool
		wantRun  bool
		wantBody string
	}{
		{"direct message", "", true, false, "This command can only be used in a server"},
		{"database down", "g1", false, false, "Storage is not available"},
		{"checks pass", "g1", true, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rt := newRecordingSession(t)
			ran := false
			c := &ExtendedClient{
				Session:       s,
				Components:    NewComponentHandler(),
				DatabaseCheck: func(*CommandContext) bool { return tt.dbUp },
			}
			c.Components.Register("isekai:ticket:launch", NewCommand("launch", "", "ticket", func(ctx *CommandContext) error {
				ran = true
				assert.Equal(t, "isekai:ticket:launch_view", ctx.Name)
				return nil
			}).AsGuildOnly().RequiresDatabase())

			c.handleInteraction(s, componentInteraction(tt.guildID, "isekai:ticket:launch_view"))

			assert.Equal(t, tt.wantRun, ran)
			if tt.wantBody == "" {
				assert.Empty(t, rt.Bodies())
				return
			}
			bodies := rt.Bodies()
			require.Len(t, bodies, 1)
			assert.Contains(t, bodies[0], tt.wantBody)
		})
	}
}

func TestUnknownComponentIsIgnored(t *testing.T) {
	s, rt := newRecordingSession(t)
	c := &ExtendedClient{Session: s, Components: NewComponentHandler()}

	c.handleInteraction(s, componentInteraction("g1", "other:button"))
	assert.Empty(t, rt.Bodies())
}
