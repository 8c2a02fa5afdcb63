// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with additional functionality for command, component
// and event handling.
package discord

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// discordgo.Logger is a function, not an interface
func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		case discordgo.LogDebug:
			logger.Debug(msg, "DiscordGo")
		default:
			logger.Info(msg, "DiscordGo")
		}
	}
}

// CheckFunc decides whether an invocation passes a configurable check
type CheckFunc func(ctx *CommandContext) bool

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	Components     *ComponentHandler
	Cooldowns      *Cooldowns
	// Prefix starts text commands; mentioning the bot works too
	Prefix string
	// DevCheck and DatabaseCheck override the default checks when set
	DevCheck      CheckFunc
	DatabaseCheck CheckFunc
	StartTime     time.Time
	mu            sync.RWMutex
	isReady       bool
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	aliases  map[string]string
	groups   map[string]string
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
		groups:   make(map[string]string),
	}
}

// Set adds or updates a command and its aliases
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
	for _, alias := range cmd.Aliases {
		if prev, ok := cc.aliases[alias]; ok && prev != name {
			logger.Warn("Alias duplicado '"+alias+"': "+prev+" -> "+name, "CommandHandler")
		}
		cc.aliases[alias] = name
	}
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Alias resolves a text alias to the full command name
func (cc *CommandCollection) Alias(alias string) (string, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	name, ok := cc.aliases[alias]
	return name, ok
}

// AliasGroup makes alias a text shorthand for the group name, so
// "anon send hi" runs anonymous.send
func (cc *CommandCollection) AliasGroup(alias, group string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.groups[strings.ToLower(alias)] = group
}

// GroupAlias resolves a group alias to the group name
func (cc *CommandCollection) GroupAlias(alias string) (string, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	group, ok := cc.groups[alias]
	return group, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command)
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

// Names returns the full names of every command, sorted
func (cc *CommandCollection) Names() []string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	names := make([]string, 0, len(cc.commands))
	for name := range cc.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	cfg := config.Get()
	c := &ExtendedClient{
		Session:    session,
		Commands:   NewCommandCollection(),
		Components: NewComponentHandler(),
		Cooldowns:  NewCooldowns(time.Duration(cfg.Bot.CommandCooldown) * time.Second),
		Prefix:     cfg.CommandPrefix,
		isReady:    false,
	}

	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// Start initializes and starts the bot
func (c *ExtendedClient) Start() error {
	if err := c.CommandHandler.LoadCommands(); err != nil {
		logger.Error("Failed to load commands: "+err.Error(), "Client")
		return err
	}

	if err := c.EventHandler.LoadEvents(); err != nil {
		logger.Error("Failed to load events: "+err.Error(), "Client")
		return err
	}

	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		defer errors.RecoverMiddleware()()

		c.mu.Lock()
		c.isReady = true
		c.mu.Unlock()

		logger.Success("Bot conectado como: "+r.User.Username, "Client")

		c.CommandHandler.RegisterCommands()
	})

	c.Session.AddHandler(c.handleInteraction)
	c.Session.AddHandler(c.handleMessage)

	c.StartTime = time.Now()

	return c.Session.Open()
}

// commandName builds the full command name from the interaction data,
// e.g. "music.play" or "group.subgroup.sub"
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) == 0 {
		return name
	}
	opt := data.Options[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(opt.Options) > 0 {
			return name + "." + opt.Name + "." + opt.Options[0].Name
		}
	case discordgo.ApplicationCommandOptionSubCommand:
		return name + "." + opt.Name
	}
	return name
}

// handleInteraction handles incoming Discord interactions
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer errors.RecoverMiddleware()()

	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		name := commandName(i.ApplicationCommandData())
		cmd, ok := c.Commands.Get(name)
		if !ok || cmd.AutoComplete == nil {
			return
		}
		cmd.AutoComplete(&CommandContext{
			Session:     s,
			Interaction: i,
			Client:      c,
			Command:     cmd,
			Name:        name,
		})

	case discordgo.InteractionApplicationCommand:
		name := commandName(i.ApplicationCommandData())
		cmd, ok := c.Commands.Get(name)
		if !ok {
			logger.Warn("Command not found: "+name, "Client")
			return
		}
		c.execute(&CommandContext{
			Session:     s,
			Interaction: i,
			Client:      c,
			Command:     cmd,
			Name:        name,
		})

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		cmd, ok := c.Components.Find(customID)
		if !ok {
			logger.Warn("Component without handler: "+customID, "Client")
			return
		}
		c.execute(&CommandContext{
			Session:     s,
			Interaction: i,
			Client:      c,
			Command:     cmd,
			Name:        customID,
		})
	}
}

// handleMessage routes prefixed or mentioning messages to text commands
func (c *ExtendedClient) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer errors.RecoverMiddleware()()

	if m.Author == nil || m.Author.Bot {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	body, ok := ParseInvocation(m.Content, c.Prefix, botID)
	if !ok || body == "" {
		return
	}

	cmd, name, rest, ok := c.Commands.Find(body)
	if !ok {
		return
	}

	ctx := &CommandContext{
		Session: s,
		Message: m,
		Client:  c,
		Command: cmd,
		Name:    name,
	}

	opts, err := ParseTextOptions(cmd.Options, rest)
	if err != nil {
		c.handleError(ctx, err)
		return
	}
	ctx.textOptions = opts

	c.execute(ctx)
}

// execute runs the checks and the command, reporting failures to the user
func (c *ExtendedClient) execute(ctx *CommandContext) {
	if ctx.ctx == nil {
		ctx.ctx = context.Background()
	}

	if err := c.runChecks(ctx, ctx.Command); err != nil {
		c.handleError(ctx, err)
		return
	}

	if err := ctx.Command.Run(ctx); err != nil {
		c.handleError(ctx, err)
	}
}

// handleError replies with the localized message of a user error. Anything
// else is logged, counted and answered with a generic message.
func (c *ExtendedClient) handleError(ctx *CommandContext, err error) {
	if ue, ok := errors.AsUserError(err); ok {
		logger.Debug(fmt.Sprintf("%s: %s (%s)", ctx.Name, ue.Error(), ue.Kind), "Client")
		if replyErr := ctx.ReplyEphemeral(ctx.Localize(ue)); replyErr != nil {
			logger.Warn("No se pudo responder al usuario: "+replyErr.Error(), "Client")
		}
		return
	}

	logger.Error("Error executing command "+ctx.Name+": "+err.Error(), "Client")
	errors.Track(err)
	if replyErr := ctx.ReplyEphemeral(ctx.T("common.error")); replyErr != nil {
		logger.Warn("No se pudo responder al usuario: "+replyErr.Error(), "Client")
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// Latency returns the gateway heartbeat latency
func (c *ExtendedClient) Latency() time.Duration {
	if c.Session == nil {
		return 0
	}
	return c.Session.HeartbeatLatency()
}

// GetConfig returns the bot configuration
func (c *ExtendedClient) GetConfig() *config.Config {
	return config.Get()
}
