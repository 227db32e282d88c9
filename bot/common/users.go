package common

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// ParseUserID converts a Discord user ID string to int64
func ParseUserID(userID string) (int64, error) {
	return strconv.ParseInt(userID, 10, 64)
}

// FormatUserID converts an int64 user ID to string
func FormatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// InteractionUser returns whoever triggered the interaction, in a DM or a server
func InteractionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
