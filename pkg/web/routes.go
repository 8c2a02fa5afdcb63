// Package web provides API routes for the web server.
package web

import (
	"net/http"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// API serves the REST and websocket endpoints
type API struct {
	Music    *music.Manager
	upgrader websocket.Upgrader
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, manager *music.Manager) *API {
	a := &API{
		Music: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS already restricts browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	api := s.Group("/api")
	{
		api.GET("/status", a.statusHandler)
		api.GET("/health", healthHandler)
		api.GET("/bot", botInfoHandler)
		api.GET("/music/:guildId", a.musicStateHandler)
		api.GET("/music/:guildId/ws", a.musicSocketHandler)
	}
	return a
}

// statusHandler returns the bot, database, cache and voice status
func (a *API) statusHandler(c *gin.Context) {
	client := discord.Get()

	dbStatus, dbOnline := database.Get().GetStatus()

	botOnline := false
	if client != nil {
		botOnline = client.IsReady()
	}

	players := 0
	if a.Music != nil {
		players = len(a.Music.Guilds())
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": config.Version,
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"cache": gin.H{
			"isOnline": cache.Get().Available(),
		},
		"bot": gin.H{
			"isOnline": botOnline,
		},
		"music": gin.H{
			"players": players,
		},
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "TavernBot Go is running",
	})
}

// botInfoHandler returns information about the bot
func botInfoHandler(c *gin.Context) {
	client := discord.Get()

	if client == nil || !client.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Bot Offline",
			"message": "El bot no está disponible en este momento.",
		})
		return
	}

	user := client.Session.State.User

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"avatar":   user.AvatarURL(""),
		"guilds":   client.GuildCount(),
		"isReady":  client.IsReady(),
		"uptime":   time.Since(client.StartTime).Round(time.Second).String(),
	})
}

func (a *API) musicUnavailable(c *gin.Context) bool {
	if a.Music != nil {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Music Offline",
		"message": "El reproductor no está disponible.",
	})
	return true
}

// musicStateHandler returns the player state and queue of a guild
func (a *API) musicStateHandler(c *gin.Context) {
	if a.musicUnavailable(c) {
		return
	}

	snap, err := a.Music.Snapshot(c.Request.Context(), c.Param("guildId"))
	if err != nil {
		logger.Warn("Error leyendo la cola: "+err.Error(), "WebServer")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "No se pudo leer el estado del reproductor.",
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// musicSocketHandler streams player events of a guild over a websocket.
// The first message is the full snapshot.
func (a *API) musicSocketHandler(c *gin.Context) {
	if a.musicUnavailable(c) {
		return
	}
	guildID := c.Param("guildId")

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug("Upgrade websocket fallido: "+err.Error(), "WebServer")
		return
	}
	defer conn.Close()

	states, unsubscribe := a.Music.Subscribe(guildID)
	defer unsubscribe()

	snap, err := a.Music.Snapshot(c.Request.Context(), guildID)
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}

	// El cliente solo envía pongs; leer detecta el cierre
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-states:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
