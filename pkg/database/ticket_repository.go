package database

import (
	"context"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// TicketRepository handles ticket configuration and records
type TicketRepository struct {
	configs *DataManager[models.TicketConfig]
	records *DataManager[models.TicketRecord]
}

// NewTicketRepository creates the repository over the ticket collections
func NewTicketRepository(db *Database, c *cache.Client) *TicketRepository {
	return &TicketRepository{
		configs: NewDataManager[models.TicketConfig]("ticket_configs", db, c),
		records: NewDataManager[models.TicketRecord]("ticket_records", db, nil),
	}
}

func ticketConfigKey(guildID string) string {
	return CacheKey("TicketRepository", "config", guildID)
}

// GetConfig returns the ticket setup of a guild, or nil
func (r *TicketRepository) GetConfig(ctx context.Context, guildID string) (*models.TicketConfig, error) {
	return r.configs.GetCached(ctx, ticketConfigKey(guildID), bson.M{"guild_id": guildID})
}

// UpsertConfig stores the category tickets are created in and the
// optional admin role
func (r *TicketRepository) UpsertConfig(ctx context.Context, guildID, categoryID, adminRoleID string) (*models.TicketConfig, error) {
	set := bson.M{"category_id": categoryID, "admin_role_id": adminRoleID}
	return r.configs.Upsert(ctx, bson.M{"guild_id": guildID}, bson.M{"$set": set}, nil, ticketConfigKey(guildID))
}

// HasActiveTicket reports whether the user already has an open ticket
func (r *TicketRepository) HasActiveTicket(ctx context.Context, guildID, userID string) (bool, error) {
	rec, err := r.records.FindOne(ctx, bson.M{
		"guild_id": guildID,
		"user_id":  userID,
		"status":   models.TicketStatusOpen,
	})
	return rec != nil, err
}

// CreateRecord stores an open ticket
func (r *TicketRepository) CreateRecord(ctx context.Context, guildID, userID, channelID string) (*models.TicketRecord, error) {
	rec := &models.TicketRecord{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
		Status:    models.TicketStatusOpen,
		CreatedAt: time.Now(),
	}
	if err := r.records.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRecordByChannel returns the ticket living in channelID, or nil
func (r *TicketRepository) GetRecordByChannel(ctx context.Context, guildID, channelID string) (*models.TicketRecord, error) {
	return r.records.FindOne(ctx, bson.M{"guild_id": guildID, "channel_id": channelID})
}

// CloseRecord marks the ticket in channelID as closed
func (r *TicketRepository) CloseRecord(ctx context.Context, guildID, channelID string) error {
	return r.records.Update(ctx,
		bson.M{"guild_id": guildID, "channel_id": channelID},
		bson.M{"$set": bson.M{"status": models.TicketStatusClosed, "closed_at": time.Now()}},
	)
}
