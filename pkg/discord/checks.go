package discord

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IsekaiTavern/TavernBotGo/pkg/config"
	"github.com/IsekaiTavern/TavernBotGo/pkg/database"
	"github.com/IsekaiTavern/TavernBotGo/pkg/errors"
	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// PermissionNames maps permission bits to the names shown to users
var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:      "Administrator",
	discordgo.PermissionManageGuild:        "Manage Server",
	discordgo.PermissionManageChannels:     "Manage Channels",
	discordgo.PermissionManageRoles:        "Manage Roles",
	discordgo.PermissionManageWebhooks:     "Manage Webhooks",
	discordgo.PermissionManageMessages:     "Manage Messages",
	discordgo.PermissionKickMembers:        "Kick Members",
	discordgo.PermissionBanMembers:         "Ban Members",
	discordgo.PermissionSendMessages:       "Send Messages",
	discordgo.PermissionViewChannel:        "View Channel",
	discordgo.PermissionVoiceConnect:       "Connect",
	discordgo.PermissionVoiceSpeak:         "Speak",
	discordgo.PermissionEmbedLinks:         "Embed Links",
	discordgo.PermissionReadMessageHistory: "Read Message History",
}

// MissingPermissions returns the names of the permissions in required missing from have.
// Administrator grants everything.
func MissingPermissions(have, required int64) []string {
	if have&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var missing []string
	for bit := int64(1); bit != 0 && bit <= required; bit <<= 1 {
		if required&bit == 0 || have&bit != 0 {
			continue
		}
		name, ok := PermissionNames[bit]
		if !ok {
			name = "0x" + strconv.FormatInt(bit, 16)
		}
		missing = append(missing, name)
	}
	return missing
}

// defaultDevCheck allows developers listed in DEV_USER_IDS and anyone in the dev guild
func defaultDevCheck(ctx *CommandContext) bool {
	cfg := config.Get()
	if cfg.IsDevUser(ctx.User().ID) {
		return true
	}
	return cfg.DevGuildID != "" && ctx.GuildID() == cfg.DevGuildID
}

func defaultDatabaseCheck(*CommandContext) bool {
	return database.Get().Connected()
}

// userPermissions returns the invoker's permissions in the current channel
func (ctx *CommandContext) userPermissions() int64 {
	if ctx.Interaction != nil && ctx.Interaction.Member != nil {
		return ctx.Interaction.Member.Permissions
	}
	if ctx.Session == nil || ctx.Session.State == nil {
		return 0
	}
	perms, err := ctx.Session.State.UserChannelPermissions(ctx.User().ID, ctx.ChannelID())
	if err != nil {
		return 0
	}
	return perms
}

// botPermissions returns the bot's permissions in the current channel
func (ctx *CommandContext) botPermissions() int64 {
	if ctx.Interaction != nil && ctx.Interaction.AppPermissions != 0 {
		return ctx.Interaction.AppPermissions
	}
	if ctx.Session == nil || ctx.Session.State == nil || ctx.Session.State.User == nil {
		return 0
	}
	perms, err := ctx.Session.State.UserChannelPermissions(ctx.Session.State.User.ID, ctx.ChannelID())
	if err != nil {
		return 0
	}
	return perms
}

// runChecks validates cmd against the invocation in a fixed order: guild
// only, dev, user then bot permissions, voice, database and cooldown
func (c *ExtendedClient) runChecks(ctx *CommandContext, cmd *Command) error {
	if cmd.GuildOnly && ctx.GuildID() == "" {
		return errors.NewStatusError("common.guild_only", "command used outside a guild")
	}

	if cmd.IsDev {
		check := c.DevCheck
		if check == nil {
			check = defaultDevCheck
		}
		if !check(ctx) {
			return errors.NewPermissionError("common.dev_only", "command restricted to developers")
		}
	}

	if cmd.UserPermissions != 0 {
		if missing := MissingPermissions(ctx.userPermissions(), cmd.UserPermissions); len(missing) > 0 {
			names := strings.Join(missing, ", ")
			return errors.NewPermissionError("common.missing_permissions", "user lacks %s", names)
		}
	}
	if cmd.BotPermissions != 0 {
		if missing := MissingPermissions(ctx.botPermissions(), cmd.BotPermissions); len(missing) > 0 {
			names := strings.Join(missing, ", ")
			return errors.NewPermissionError("common.missing_permissions", "bot lacks %s", names)
		}
	}

	if cmd.InVoiceChannel && ctx.VoiceChannelID() == "" {
		return errors.NewStatusError("music.not_connected", "user is not in a voice channel")
	}

	if cmd.RequiresDB {
		check := c.DatabaseCheck
		if check == nil {
			check = defaultDatabaseCheck
		}
		if !check(ctx) {
			return errors.NewStatusError("common.db_unavailable", "database unavailable")
		}
	}

	if c.Cooldowns != nil {
		if ok, wait := c.Cooldowns.Allow(ctx.User().ID, ctx.Name); !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			return errors.NewStatusError("common.cooldown", "command on cooldown for %ds", secs)
		}
	}
	return nil
}

// Cooldowns limits every user to one use of a command per interval
type Cooldowns struct {
	every    time.Duration
	mu       sync.Mutex
	limiters map[string]*cooldownEntry
	now      func() time.Time
}

type cooldownEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// pruneThreshold is the number of entries above which idle limiters are dropped
const pruneThreshold = 1024

// NewCooldowns creates a limiter allowing one use per every. A zero or
// negative interval disables cooldowns.
func NewCooldowns(every time.Duration) *Cooldowns {
	return &Cooldowns{
		every:    every,
		limiters: make(map[string]*cooldownEntry),
		now:      time.Now,
	}
}

// Allow reports whether userID may run cmd now. When it may not, the
// returned duration is how long until it can.
func (c *Cooldowns) Allow(userID, cmd string) (bool, time.Duration) {
	if c == nil || c.every <= 0 {
		return true, 0
	}
	now := c.now()
	key := userID + ":" + cmd

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.limiters[key]
	if !ok {
		if len(c.limiters) >= pruneThreshold {
			c.prune(now)
		}
		entry = &cooldownEntry{limiter: rate.NewLimiter(rate.Every(c.every), 1)}
		c.limiters[key] = entry
	}
	entry.lastSeen = now

	r := entry.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// prune drops limiters idle for longer than the interval, which are full again
func (c *Cooldowns) prune(now time.Time) {
	for key, entry := range c.limiters {
		if now.Sub(entry.lastSeen) > c.every {
			delete(c.limiters, key)
		}
	}
}

// Size returns the number of tracked user/command pairs
func (c *Cooldowns) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}
