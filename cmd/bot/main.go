// Package main is the entry point for the TavernBot Go application.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/internal/commands"
	"github.com/IsekaiTavern/TavernBotGo/internal/events"
	"github.com/IsekaiTavern/TavernBotGo/pkg/audio"
	"github.com/IsekaiTavern/TavernBotGo/pkg/cache"
	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/discord"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/IsekaiTavern/TavernBotGo/pkg/mqtt"
	"github.com/IsekaiTavern/TavernBotGo/pkg/music"
	"github.com/IsekaiTavern/TavernBotGo/pkg/web"
	"golang.org/x/sync/errgroup"
)

const (
	resolveTimeout      = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
	redisHealthInterval = 30 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()
	if level, ok := logger.ParseLevel(cfg.Log.Level); ok {
		log.SetLevel(level)
	}

	logger.System(fmt.Sprintf("Iniciando TavernBot Go %s (%s)...", config.Version, cfg.Environment), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Demasiados errores seguidos apagan el bot de forma ordenada
	errors.Init(cfg.ErrorWebhook, stop)

	// Initialize database. A failed connection keeps retrying in background
	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
	}

	// Initialize Redis. Without it the bot runs with in-memory playlists
	redisClient, err := cache.Init(cfg.RedisURL)
	if err != nil {
		logger.Warn(fmt.Sprintf("Redis deshabilitado: %v", err), "Main")
	}
	if redisClient != nil {
		redisClient.StartHealthCheck(ctx, redisHealthInterval)
	}

	database.InitGlobalRepositories(db, redisClient)

	// Initialize Discord client
	discordClient, err := discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	// Initialize music
	musicOpts := music.DefaultOptions()
	if cfg.Music.DefaultVolume > 0 {
		musicOpts.DefaultVolume = cfg.Music.DefaultVolume
	}
	if cfg.Music.MaxPlaylist > 0 {
		musicOpts.MaxPlaylist = cfg.Music.MaxPlaylist
	}
	if cfg.MQTTTopicRoot != "" {
		musicOpts.TopicRoot = cfg.MQTTTopicRoot
	}
	manager := music.Init(
		music.SessionJoiner{Session: discordClient.Session},
		music.NewYtDlpResolver(cfg.YtDlpPath, resolveTimeout),
		audio.NewStreamer(cfg.FFmpegPath, 0),
		music.NewPlaylistFactory(redisClient, musicOpts.MaxPlaylist, time.Duration(cfg.Music.PlaylistTTLHours)*time.Hour),
		musicOpts,
	)

	// Initialize MQTT
	mqttClientID := "tavernbot"
	if !cfg.IsProd() {
		mqttClientID = "tavernbot_canary"
	}
	mqttClient := mqtt.Init(
		cfg.MQTTHost,
		cfg.MQTTPort,
		cfg.MQTTUser,
		cfg.MQTTPassword,
		mqttClientID,
		cfg.MQTTTopicRoot,
	)
	manager.SetPublisher(mqttClient)
	mqttClient.On("music/state", manager.HandleStateRequest)

	// Initialize web server
	webOpts := web.DefaultOptions()
	webOpts.WebhookURL = cfg.LogsWebServerHook
	webOpts.AllowedHosts = cfg.AllowedHosts
	webOpts.CORSOrigins = cfg.CORSOrigins
	webServer, err := web.Init(webOpts)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating web server: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, manager)

	// Register cogs and events
	commands.RegisterAll(discordClient, cfg, commands.Deps{
		Music:     manager,
		Cache:     redisClient,
		Anonymous: database.GlobalAnonymousRepo,
		Greeting:  database.GlobalGreetingRepo,
		Ticket:    database.GlobalTicketRepo,
	})
	events.RegisterAll(discordClient, cfg, events.Deps{
		Music:    manager,
		Greeting: database.GlobalGreetingRepo,
	})

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}

	logger.Success("TavernBot Go iniciado correctamente!", "Main")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Sin la API el bot sigue funcionando
		if err := webServer.Start(cfg.Port); err != nil {
			logger.Error(fmt.Sprintf("Error starting web server: %v", err), "Main")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.System("Apagando TavernBot Go...", "Main")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn(fmt.Sprintf("Error deteniendo el servidor web: %v", err), "Main")
		}
		return nil
	})

	_ = g.Wait()

	shutdown(discordClient, manager, mqttClient, redisClient, db)
}

// shutdown releases every connection in reverse order of creation
func shutdown(client *discord.ExtendedClient, manager *music.Manager, mqttClient *mqtt.MqttCommunicator, redisClient *cache.Client, db *database.Database) {
	manager.Close()

	if err := client.Stop(); err != nil {
		logger.Warn(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
	}

	mqttClient.Destroy()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn(fmt.Sprintf("Error cerrando Redis: %v", err), "Main")
		}
	}

	if db != nil {
		if err := db.Disconnect(); err != nil {
			logger.Warn(fmt.Sprintf("Error desconectando MongoDB: %v", err), "Main")
		}
	}

	logger.System("TavernBot Go detenido", "Main")
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
