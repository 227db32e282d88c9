package models

import (
	"strconv"
	"time"
)

// GateRequirement is a guild the user must belong to before redeeming
type GateRequirement struct {
	ID            int64      `db:"id"`
	ChatID        string     `db:"chat_id"`
	InviteLink    *string    `db:"invite_link"`
	Active        bool       `db:"active"`
	CreatedAt     time.Time  `db:"created_at"`
	DeactivatedAt *time.Time `db:"deactivated_at"`
}

// HasInviteLink reports whether a join link was configured
func (g *GateRequirement) HasInviteLink() bool {
	return g.InviteLink != nil && *g.InviteLink != ""
}

// MembershipStatus is a user's standing in an external group
type MembershipStatus string

const (
	MembershipOwner         MembershipStatus = "owner"
	MembershipAdministrator MembershipStatus = "administrator"
	MembershipMember        MembershipStatus = "member"
	MembershipRestricted    MembershipStatus = "restricted"
	MembershipLeft          MembershipStatus = "left"
	MembershipBanned        MembershipStatus = "banned"
)

// SatisfiesGate reports whether the status counts as belonging to the group
func (s MembershipStatus) SatisfiesGate() bool {
	switch s {
	case MembershipOwner, MembershipAdministrator, MembershipMember:
		return true
	default:
		return false
	}
}

// FormatID renders a snowflake-style id
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
