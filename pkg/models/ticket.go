package models

import "time"

// Ticket custom IDs and record statuses
const (
	TicketLaunchButtonID = "isekai:ticket:launch_view"
	TicketCloseButtonID  = "isekai:ticket:close_view"

	TicketStatusOpen     = "open"
	TicketStatusClosed   = "closed"
	TicketStatusArchived = "archived"
)

// TicketConfig is the per-guild ticket setup
type TicketConfig struct {
	GuildID     string `bson:"guild_id" json:"guild_id"`
	CategoryID  string `bson:"category_id" json:"category_id"`
	AdminRoleID string `bson:"admin_role_id,omitempty" json:"admin_role_id,omitempty"`
}

// TicketRecord is a single support ticket
type TicketRecord struct {
	GuildID   string     `bson:"guild_id" json:"guild_id"`
	UserID    string     `bson:"user_id" json:"user_id"`
	ChannelID string     `bson:"channel_id" json:"channel_id"`
	Status    string     `bson:"status" json:"status"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	ClosedAt  *time.Time `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
}
