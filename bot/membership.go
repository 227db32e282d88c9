package bot

import (
	"context"
	"errors"
	"fmt"

	"rewarder/bot/common"
	"rewarder/models"

	"github.com/bwmarrin/discordgo"
)

// GuildMembershipChecker reports a user's standing in a Discord server.
// Every call goes to the API; nothing is cached.
type GuildMembershipChecker struct {
	api discordAPI
}

// GetMembershipStatus maps guild membership onto the gate statuses.
// An unknown member is "left"; any other API failure is returned as an error.
func (c *GuildMembershipChecker) GetMembershipStatus(ctx context.Context, guildID string, userID int64) (models.MembershipStatus, error) {
	discordUserID := common.FormatUserID(userID)

	member, err := c.api.GuildMember(guildID, discordUserID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return models.MembershipLeft, nil
		}
		return "", fmt.Errorf("failed to get guild member: %w", err)
	}

	guild, err := c.api.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get guild: %w", err)
	}

	switch {
	case guild.OwnerID == discordUserID:
		return models.MembershipOwner, nil
	case hasAdministrator(guild, member):
		return models.MembershipAdministrator, nil
	case member.Pending:
		return models.MembershipRestricted, nil
	default:
		return models.MembershipMember, nil
	}
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember
}

func hasAdministrator(guild *discordgo.Guild, member *discordgo.Member) bool {
	held := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	for _, role := range guild.Roles {
		if _, ok := held[role.ID]; ok && role.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}
	return false
}
