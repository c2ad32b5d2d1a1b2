package discord

import "github.com/bwmarrin/discordgo"

// HasRole checks whether a user has a role in a guild. Empty roleID always returns true.
func HasRole(s *discordgo.Session, guildID, userID, roleID string) bool {
	if roleID == "" {
		return true
	}
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false
	}
	for _, role := range member.Roles {
		if role == roleID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the member behind an interaction holds the
// Administrator or Manage Roles permission.
func IsAdmin(i *discordgo.InteractionCreate) bool {
	if i == nil || i.Member == nil {
		return false
	}
	perms := i.Member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageRoles != 0
}

// InteractionUser returns the user who triggered an interaction in a guild or DM.
func InteractionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
