package models

import "time"

// GreetingKind selects between the welcome and farewell embeds
type GreetingKind string

const (
	GreetingWelcome  GreetingKind = "welcome"
	GreetingFarewell GreetingKind = "farewell"
)

// Valid reports whether k is a known greeting kind
func (k GreetingKind) Valid() bool {
	return k == GreetingWelcome || k == GreetingFarewell
}

// Greeting is the embed sent when a member joins or leaves a guild.
// Title, description and URLs may contain placeholders such as {member}.
type Greeting struct {
	Kind           GreetingKind `bson:"kind" json:"kind"`
	GuildID        string       `bson:"guild_id" json:"guild_id"`
	ChannelID      string       `bson:"channel_id" json:"channel_id"`
	Title          string       `bson:"title" json:"title"`
	Description    string       `bson:"description" json:"description"`
	Color          int          `bson:"color" json:"color"`
	ThumbnailURL   string       `bson:"thumbnail_url" json:"thumbnail_url"`
	ImageURL       string       `bson:"image_url" json:"image_url"`
	Enabled        bool         `bson:"enabled" json:"enabled"`
	SetByMemberID  string       `bson:"set_by_member_id" json:"set_by_member_id"`
	LastUpdateTime time.Time    `bson:"last_update_time" json:"last_update_time"`
}

// DefaultGreeting returns the values stored the first time a guild
// configures kind
func DefaultGreeting(kind GreetingKind, guildID string) Greeting {
	g := Greeting{
		Kind:    kind,
		GuildID: guildID,
		Color:   0x5865F2,
	}
	switch kind {
	case GreetingFarewell:
		g.Title = "Goodbye {member.name}"
		g.Description = "{member.display_name} has left {server.name}."
	default:
		g.Title = "Welcome {member.name}!"
		g.Description = "{member} joined {server.name}. You are member #{count}."
	}
	return g
}
