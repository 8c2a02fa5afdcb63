package database

import (
	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
)

// global repositories shared by the cogs
var (
	GlobalAnonymousRepo *AnonymousRepository
	GlobalGreetingRepo  *GreetingRepository
	GlobalTicketRepo    *TicketRepository
)

// InitGlobalRepositories initializes the shared repositories
func InitGlobalRepositories(db *Database, c *cache.Client) {
	GlobalAnonymousRepo = NewAnonymousRepository(db, c)
	GlobalGreetingRepo = NewGreetingRepository(db, c)
	GlobalTicketRepo = NewTicketRepository(db, c)
}
