package models

import "time"

// AnonymousSettings holds the per-guild configuration of anonymous messaging
type AnonymousSettings struct {
	GuildID         string    `bson:"guild_id" json:"guild_id"`
	Enabled         bool      `bson:"enabled" json:"enabled"`
	ChannelIDs      []string  `bson:"channel_ids" json:"channel_ids"`
	CooldownSeconds int       `bson:"cooldown_seconds" json:"cooldown_seconds"`
	BlockedUsers    []string  `bson:"blocked_users" json:"blocked_users"`
	LastUpdateTime  time.Time `bson:"last_update_time" json:"last_update_time"`
}

// HasChannel reports whether anonymous posts are allowed in channelID
func (s *AnonymousSettings) HasChannel(channelID string) bool {
	return contains(s.ChannelIDs, channelID)
}

// IsBlocked reports whether userID may not post anonymously
func (s *AnonymousSettings) IsBlocked(userID string) bool {
	return contains(s.BlockedUsers, userID)
}

// AnonymousUser is the persona a member posts anonymous messages with
type AnonymousUser struct {
	GuildID        string    `bson:"guild_id" json:"guild_id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	DisplayName    string    `bson:"display_name" json:"display_name"`
	AvatarURL      string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	LastUpdateTime time.Time `bson:"last_update_time" json:"last_update_time"`
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
