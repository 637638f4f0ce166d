package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordRoleManager adapts the Discord session to the role mutation surface
// the verification workflow consumes.
type discordRoleManager struct {
	session *discordgo.Session
}

func (m *discordRoleManager) MemberRoles(guildID, userID string) ([]string, error) {
	if member, err := m.session.State.Member(guildID, userID); err == nil {
		return append([]string(nil), member.Roles...), nil
	}
	member, err := m.session.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	return append([]string(nil), member.Roles...), nil
}

func (m *discordRoleManager) AddRoles(guildID, userID string, roleIDs []string, reason string) error {
	for _, roleID := range roleIDs {
		if err := m.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithAuditLogReason(reason)); err != nil {
			return fmt.Errorf("failed to add role %s: %w", roleID, err)
		}
	}
	return nil
}

func (m *discordRoleManager) RemoveRoles(guildID, userID string, roleIDs []string, reason string) error {
	for _, roleID := range roleIDs {
		if err := m.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithAuditLogReason(reason)); err != nil {
			return fmt.Errorf("failed to remove role %s: %w", roleID, err)
		}
	}
	return nil
}
