// Package formatter renders the placeholders used in welcome and farewell
// embeds and parses user supplied colors.
package formatter

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Subject holds the member and guild values a template may reference
type Subject struct {
	MemberID          string
	MemberName        string
	MemberDisplayName string
	MemberAvatarURL   string
	MemberBannerURL   string

	ServerID          string
	ServerName        string
	ServerMemberCount int
	ServerIconURL     string
	// ServerAvatarURL is the member's guild-specific avatar
	ServerAvatarURL string
	ServerBannerURL string
}

// SubjectFromMember collects the placeholder values for member in guild.
// guild may be nil when it is not in the state cache.
func SubjectFromMember(member *discordgo.Member, guild *discordgo.Guild) Subject {
	s := Subject{}
	if member != nil && member.User != nil {
		s.MemberID = member.User.ID
		s.MemberName = member.User.Username
		s.MemberDisplayName = member.DisplayName()
		s.MemberAvatarURL = member.User.AvatarURL("")
		if member.User.Banner != "" {
			s.MemberBannerURL = member.User.BannerURL("")
		}
		if member.Avatar != "" {
			s.ServerAvatarURL = member.AvatarURL("")
		}
		s.ServerID = member.GuildID
	}
	if guild != nil {
		s.ServerID = guild.ID
		s.ServerName = guild.Name
		s.ServerMemberCount = guild.MemberCount
		if guild.Icon != "" {
			s.ServerIconURL = guild.IconURL("")
		}
		if guild.Banner != "" {
			s.ServerBannerURL = guild.BannerURL("")
		}
	}
	return s
}

func (s Subject) variables(now time.Time, urlMode bool) []string {
	member := UserMention(s.MemberID)
	server := s.ServerName
	if urlMode {
		member = s.MemberAvatarURL
		server = s.ServerIconURL
	}
	count := strconv.Itoa(s.ServerMemberCount)

	return []string{
		"{member}", member,
		"{member.name}", s.MemberName,
		"{member.display_name}", s.MemberDisplayName,
		"{member.id}", s.MemberID,
		"{member.avatar}", s.MemberAvatarURL,
		"{member.banner}", s.MemberBannerURL,
		"{server}", server,
		"{server.name}", s.ServerName,
		"{server.id}", s.ServerID,
		"{server.member_count}", count,
		"{server.icon}", s.ServerIconURL,
		"{server.avatar}", s.ServerAvatarURL,
		"{server.banner}", s.ServerBannerURL,
		"{count}", count,
		"{time}", now.Format("15:04"),
		"{date}", now.Format("2006-01-02"),
		"{datetime}", now.Format("2006-01-02 15:04"),
	}
}

// FormatMessage replaces the placeholders in template. Unknown
// placeholders are left as they are.
//
//	{member} → <@id>, {server} → guild name, {count} → member count,
//	{time} → 14:30, {date} → 2025-12-14, {datetime} → 2025-12-14 14:30
func FormatMessage(template string, s Subject, now time.Time) string {
	return strings.NewReplacer(s.variables(now, false)...).Replace(template)
}

// FormatURL is FormatMessage for thumbnail and image fields: {member}
// becomes the avatar URL and {server} the guild icon URL.
func FormatURL(template string, s Subject, now time.Time) string {
	return strings.NewReplacer(s.variables(now, true)...).Replace(template)
}

// UserMention returns <@id>
func UserMention(id string) string {
	return "<@" + id + ">"
}

// ChannelMention returns <#id>
func ChannelMention(id string) string {
	return "<#" + id + ">"
}

// RoleMention returns <@&id>
func RoleMention(id string) string {
	return "<@&" + id + ">"
}

// JoinMentions renders ids with mention, one per line, or none when empty
func JoinMentions(ids []string, mention func(string) string, none string) string {
	if len(ids) == 0 {
		return none
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = mention(id)
	}
	return strings.Join(parts, "\n")
}
