package database

import (
	"context"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

const anonymousRepoName = "AnonymousRepository"

// AnonymousRepository is the data access layer for anonymous messaging
type AnonymousRepository struct {
	settings *DataManager[models.AnonymousSettings]
	users    *DataManager[models.AnonymousUser]
}

// NewAnonymousRepository creates the repository over the anonymous collections
func NewAnonymousRepository(db *Database, c *cache.Client) *AnonymousRepository {
	return &AnonymousRepository{
		settings: NewDataManager[models.AnonymousSettings]("anonymous_settings", db, c),
		users:    NewDataManager[models.AnonymousUser]("anonymous_member", db, c),
	}
}

func baseSettingsKey(guildID string) string {
	return CacheKey(anonymousRepoName, "base_settings", guildID)
}

func userSettingsKey(guildID, userID string) string {
	return CacheKey(anonymousRepoName, "user_settings", guildID, userID)
}

func settingsDefaults(guildID string) bson.M {
	return bson.M{
		"guild_id":         guildID,
		"enabled":          false,
		"channel_ids":      []string{},
		"cooldown_seconds": 0,
		"blocked_users":    []string{},
	}
}

// GetSettings returns the guild settings, or nil if never configured
func (r *AnonymousRepository) GetSettings(ctx context.Context, guildID string) (*models.AnonymousSettings, error) {
	return r.settings.GetCached(ctx, baseSettingsKey(guildID), bson.M{"guild_id": guildID})
}

func (r *AnonymousRepository) upsertSettings(ctx context.Context, guildID string, update bson.M) (*models.AnonymousSettings, error) {
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["last_update_time"] = time.Now()
	update["$set"] = set

	return r.settings.Upsert(ctx, bson.M{"guild_id": guildID}, update, settingsDefaults(guildID), baseSettingsKey(guildID))
}

// SetEnabled turns anonymous messaging on or off
func (r *AnonymousRepository) SetEnabled(ctx context.Context, guildID string, enabled bool) (*models.AnonymousSettings, error) {
	return r.upsertSettings(ctx, guildID, bson.M{"$set": bson.M{"enabled": enabled}})
}

// SetCooldown sets the per-guild cooldown between anonymous messages
func (r *AnonymousRepository) SetCooldown(ctx context.Context, guildID string, seconds int) (*models.AnonymousSettings, error) {
	return r.upsertSettings(ctx, guildID, bson.M{"$set": bson.M{"cooldown_seconds": seconds}})
}

// AddChannel adds a channel to the anonymous channel list atomically
func (r *AnonymousRepository) AddChannel(ctx context.Context, guildID, channelID string) (*models.AnonymousSettings, error) {
	return r.upsertSettings(ctx, guildID, bson.M{"$addToSet": bson.M{"channel_ids": channelID}})
}

// RemoveChannel removes a channel from the anonymous channel list atomically
func (r *AnonymousRepository) RemoveChannel(ctx context.Context, guildID, channelID string) (*models.AnonymousSettings, error) {
	return r.upsertSettings(ctx, guildID, bson.M{"$pull": bson.M{"channel_ids": channelID}})
}

// BlockUser prevents a member from posting anonymously
func (r *AnonymousRepository) BlockUser(ctx context.Context, guildID, userID string) (*models.AnonymousSettings, error) {
	return r.upsertSettings(ctx, guildID, bson.M{"$addToSet": bson.M{"blocked_users": userID}})
}

// UnblockUser lifts a block
func (r *AnonymousRepository) UnblockUser(ctx context.Context, guildID, userID string) (*models.AnonymousSettings, error) {
	return r.upsertSettings(ctx, guildID, bson.M{"$pull": bson.M{"blocked_users": userID}})
}

// GetUser returns the anonymous persona of a member, or nil
func (r *AnonymousRepository) GetUser(ctx context.Context, guildID, userID string) (*models.AnonymousUser, error) {
	return r.users.GetCached(ctx, userSettingsKey(guildID, userID), bson.M{"guild_id": guildID, "user_id": userID})
}

// SetUser stores the persona a member posts with. An empty avatarURL
// removes the avatar.
func (r *AnonymousRepository) SetUser(ctx context.Context, guildID, userID, displayName, avatarURL string) (*models.AnonymousUser, error) {
	filter := bson.M{"guild_id": guildID, "user_id": userID}
	update := bson.M{"$set": bson.M{
		"display_name":     displayName,
		"avatar_url":       avatarURL,
		"last_update_time": time.Now(),
	}}
	return r.users.Upsert(ctx, filter, update, nil, userSettingsKey(guildID, userID))
}
