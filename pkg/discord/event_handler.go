// Package discord provides the event handler for managing Discord events.
package discord

import (
	"fmt"
	"sync"

	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// EventHandler manages event registration
type EventHandler struct {
	client  *ExtendedClient
	events  []string
	removes []func()
	mu      sync.RWMutex
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{
		client: client,
		events: make([]string, 0),
	}
}

// LoadEvents reports the handlers registered so far. Events are registered
// programmatically with the OnX helpers.
func (eh *EventHandler) LoadEvents() error {
	eh.mu.RLock()
	n := len(eh.events)
	eh.mu.RUnlock()
	logger.System(fmt.Sprintf("Eventos registrados: %d", n), "EventHandler")
	return nil
}

// Events returns the names of the registered events, in order
func (eh *EventHandler) Events() []string {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return append([]string(nil), eh.events...)
}

// RegisterEvent adds an event handler to the Discord session
func (eh *EventHandler) RegisterEvent(name string, handler interface{}) {
	remove := eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.events = append(eh.events, name)
	eh.removes = append(eh.removes, remove)
	eh.mu.Unlock()
	logger.Debug("Evento '"+name+"' registrado", "EventHandler")
}

// RemoveAll detaches every handler registered through this EventHandler
func (eh *EventHandler) RemoveAll() {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	for _, remove := range eh.removes {
		remove()
	}
	eh.removes = nil
	eh.events = eh.events[:0]
}

// ReadyHandler is called when the bot is ready
type ReadyHandler func(s *discordgo.Session, r *discordgo.Ready)

// GuildCreateHandler is called when the bot joins a guild
type GuildCreateHandler func(s *discordgo.Session, g *discordgo.GuildCreate)

// GuildDeleteHandler is called when the bot leaves a guild
type GuildDeleteHandler func(s *discordgo.Session, g *discordgo.GuildDelete)

// MessageCreateHandler is called when a message is created
type MessageCreateHandler func(s *discordgo.Session, m *discordgo.MessageCreate)

// GuildMemberAddHandler is called when a member joins a guild
type GuildMemberAddHandler func(s *discordgo.Session, m *discordgo.GuildMemberAdd)

// GuildMemberRemoveHandler is called when a member leaves a guild
type GuildMemberRemoveHandler func(s *discordgo.Session, m *discordgo.GuildMemberRemove)

// VoiceStateUpdateHandler is called when a voice state is updated
type VoiceStateUpdateHandler func(s *discordgo.Session, v *discordgo.VoiceStateUpdate)

// OnReady registers a ready event handler
func (eh *EventHandler) OnReady(handler ReadyHandler) {
	eh.RegisterEvent("Ready", func(s *discordgo.Session, r *discordgo.Ready) {
		defer errors.RecoverMiddleware()()
		handler(s, r)
	})
}

// OnGuildCreate registers a guild create event handler
func (eh *EventHandler) OnGuildCreate(handler GuildCreateHandler) {
	eh.RegisterEvent("GuildCreate", func(s *discordgo.Session, g *discordgo.GuildCreate) {
		defer errors.RecoverMiddleware()()
		handler(s, g)
	})
}

// OnGuildDelete registers a guild delete event handler
func (eh *EventHandler) OnGuildDelete(handler GuildDeleteHandler) {
	eh.RegisterEvent("GuildDelete", func(s *discordgo.Session, g *discordgo.GuildDelete) {
		defer errors.RecoverMiddleware()()
		handler(s, g)
	})
}

// OnMessageCreate registers a message create event handler
func (eh *EventHandler) OnMessageCreate(handler MessageCreateHandler) {
	eh.RegisterEvent("MessageCreate", func(s *discordgo.Session, m *discordgo.MessageCreate) {
		defer errors.RecoverMiddleware()()
		handler(s, m)
	})
}

// OnGuildMemberAdd registers a guild member add event handler
func (eh *EventHandler) OnGuildMemberAdd(handler GuildMemberAddHandler) {
	eh.RegisterEvent("GuildMemberAdd", func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		defer errors.RecoverMiddleware()()
		handler(s, m)
	})
}

// OnGuildMemberRemove registers a guild member remove event handler
func (eh *EventHandler) OnGuildMemberRemove(handler GuildMemberRemoveHandler) {
	eh.RegisterEvent("GuildMemberRemove", func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		defer errors.RecoverMiddleware()()
		handler(s, m)
	})
}

// OnVoiceStateUpdate registers a voice state update event handler
func (eh *EventHandler) OnVoiceStateUpdate(handler VoiceStateUpdateHandler) {
	eh.RegisterEvent("VoiceStateUpdate", func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		defer errors.RecoverMiddleware()()
		handler(s, v)
	})
}
