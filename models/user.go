package models

import (
	"time"
)

// ReferralReward is the number of points a referrer earns per referred user
const ReferralReward int64 = 1

// User represents a bot user and their point ledger
type User struct {
	ID          int64     `db:"id"`
	Handle      *string   `db:"handle"`
	Points      int64     `db:"points"`
	Referrals   int       `db:"referrals"`
	ReferredBy  *int64    `db:"referred_by"`
	Verified    bool      `db:"verified"`
	VerifyToken *string   `db:"verify_token"`
	StateTag    *string   `db:"state"`
	StateParam  *int64    `db:"state_param"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CanAfford checks if the user has enough points for a cost
func (u *User) CanAfford(cost int64) bool {
	return u.Points >= cost
}

// ConversationState decodes the stored conversation state
func (u *User) ConversationState() ConversationState {
	return DecodeState(u.StateTag, u.StateParam)
}

// DisplayName returns the handle if known, otherwise the numeric id
func (u *User) DisplayName() string {
	if u.Handle != nil && *u.Handle != "" {
		return *u.Handle
	}
	return FormatID(u.ID)
}
