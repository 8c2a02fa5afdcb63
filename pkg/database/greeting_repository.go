package database

import (
	"context"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// GreetingUpdate lists the fields to change. Nil fields are left unchanged.
type GreetingUpdate struct {
	ChannelID     *string
	Title         *string
	Description   *string
	Color         *int
	ThumbnailURL  *string
	ImageURL      *string
	Enabled       *bool
	SetByMemberID *string
}

func (u GreetingUpdate) fields() bson.M {
	set := bson.M{}
	if u.ChannelID != nil {
		set["channel_id"] = *u.ChannelID
	}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Color != nil {
		set["color"] = *u.Color
	}
	if u.ThumbnailURL != nil {
		set["thumbnail_url"] = *u.ThumbnailURL
	}
	if u.ImageURL != nil {
		set["image_url"] = *u.ImageURL
	}
	if u.Enabled != nil {
		set["enabled"] = *u.Enabled
	}
	if u.SetByMemberID != nil {
		set["set_by_member_id"] = *u.SetByMemberID
	}
	return set
}

// GreetingRepository stores welcome and farewell embeds
type GreetingRepository struct {
	dm *DataManager[models.Greeting]
}

// NewGreetingRepository creates the repository over the greeting collection
func NewGreetingRepository(db *Database, c *cache.Client) *GreetingRepository {
	return &GreetingRepository{dm: NewDataManager[models.Greeting]("greeting", db, c)}
}

func greetingKey(kind models.GreetingKind, guildID string) string {
	return CacheKey("GreetingRepository", kind, guildID)
}

// Get returns the stored greeting, or nil if the guild never set one
func (r *GreetingRepository) Get(ctx context.Context, kind models.GreetingKind, guildID string) (*models.Greeting, error) {
	return r.dm.GetCached(ctx, greetingKey(kind, guildID), bson.M{"kind": kind, "guild_id": guildID})
}

// Update applies upd, creating the greeting with defaults when missing
func (r *GreetingRepository) Update(ctx context.Context, kind models.GreetingKind, guildID string, upd GreetingUpdate) (*models.Greeting, error) {
	set := upd.fields()
	set["last_update_time"] = time.Now()

	d := models.DefaultGreeting(kind, guildID)
	onInsert := bson.M{
		"channel_id":       d.ChannelID,
		"title":            d.Title,
		"description":      d.Description,
		"color":            d.Color,
		"thumbnail_url":    d.ThumbnailURL,
		"image_url":        d.ImageURL,
		"enabled":          d.Enabled,
		"set_by_member_id": d.SetByMemberID,
	}

	filter := bson.M{"kind": kind, "guild_id": guildID}
	return r.dm.Upsert(ctx, filter, bson.M{"$set": set}, onInsert, greetingKey(kind, guildID))
}
