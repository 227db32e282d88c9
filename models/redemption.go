package models

import "time"

// RedemptionCost maps a denomination to the points required to redeem it
type RedemptionCost struct {
	Denomination int       `db:"denomination"`
	Points       int64     `db:"points"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Redemption is the append-only audit record of one successful allocation
type Redemption struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	Denomination int       `db:"denomination"`
	Code         string    `db:"code"`
	PointsSpent  int64     `db:"points_spent"`
	CreatedAt    time.Time `db:"created_at"`

	// BalanceAfter is the claimant's balance after the debit (not persisted)
	BalanceAfter int64 `db:"-"`
}
