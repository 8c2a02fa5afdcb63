package database

import (
	"context"
	"testing"

	"github.com/IsekaiTavern/TavernBotGo/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestRepositoriesAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("anonymous add channel returns the upserted document", func(mt *mtest.T) {
		db := NewConnected(mt.Client, mt.DB)
		repo := NewAnonymousRepository(db, nil)

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "guild_id", Value: "1"},
			{Key: "enabled", Value: false},
			{Key: "channel_ids", Value: bson.A{"10"}},
			{Key: "cooldown_seconds", Value: 0},
			{Key: "blocked_users", Value: bson.A{}},
		}}))

		settings, err := repo.AddChannel(context.Background(), "1", "10")
		require.NoError(mt, err)
		require.NotNil(mt, settings)
		assert.Equal(mt, []string{"10"}, settings.ChannelIDs)
	})

	mt.Run("missing greeting is nil", func(mt *mtest.T) {
		db := NewConnected(mt.Client, mt.DB)
		repo := NewGreetingRepository(db, nil)

		ns := mt.DB.Name() + ".greeting"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		g, err := repo.Get(context.Background(), models.GreetingWelcome, "1")
		require.NoError(mt, err)
		assert.Nil(mt, g)
	})

	mt.Run("has active ticket", func(mt *mtest.T) {
		db := NewConnected(mt.Client, mt.DB)
		repo := NewTicketRepository(db, nil)

		ns := mt.DB.Name() + ".ticket_records"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "guild_id", Value: "1"},
			{Key: "user_id", Value: "2"},
			{Key: "channel_id", Value: "3"},
			{Key: "status", Value: models.TicketStatusOpen},
		}))

		active, err := repo.HasActiveTicket(context.Background(), "1", "2")
		require.NoError(mt, err)
		assert.True(mt, active)
	})

	mt.Run("create record inserts an open ticket", func(mt *mtest.T) {
		db := NewConnected(mt.Client, mt.DB)
		repo := NewTicketRepository(db, nil)

		mt.AddMockResponses(mtest.CreateSuccessResponse())

		rec, err := repo.CreateRecord(context.Background(), "1", "2", "3")
		require.NoError(mt, err)
		assert.Equal(mt, models.TicketStatusOpen, rec.Status)
		assert.False(mt, rec.CreatedAt.IsZero())
	})
}
