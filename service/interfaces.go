package service

import (
	"context"

	"rewarder/events"
	"rewarder/models"
)

// UserRepository defines the interface for ledger data access.
// Lookups return nil, nil when the user does not exist.
type UserRepository interface {
	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// Upsert creates the user with zero balances or refreshes the handle of an existing one
	Upsert(ctx context.Context, id int64, handle *string) (user *models.User, created bool, err error)

	// AddPoints applies delta if the result stays non-negative; nil when no row qualified
	AddPoints(ctx context.Context, id int64, delta int64) (*models.User, error)

	// DeductPoints subtracts amount only if the balance covers it; nil when no row qualified
	DeductPoints(ctx context.Context, id int64, amount int64) (*models.User, error)

	// SetReferrer records referrerID once; false when already set, self, or unknown referrer
	SetReferrer(ctx context.Context, id int64, referrerID int64) (bool, error)

	// RecordReferral credits the referrer reward points and one referral
	RecordReferral(ctx context.Context, referrerID int64, reward int64) (*models.User, error)

	// SetVerified flips the verified flag; nil user when absent, changed when it was false
	SetVerified(ctx context.Context, id int64) (user *models.User, changed bool, err error)

	// VerifyByToken flips the verified flag of the token's owner; nil user when unknown
	VerifyByToken(ctx context.Context, token string) (user *models.User, changed bool, err error)

	// EnsureVerifyToken stores candidate unless a token already exists and returns the stored one
	EnsureVerifyToken(ctx context.Context, id int64, candidate string) (string, error)

	// SetState persists the encoded conversation state; false when the user does not exist
	SetState(ctx context.Context, id int64, tag *string, param *int64) (bool, error)
}

// CouponRepository defines the interface for the code pool
type CouponRepository interface {
	// BulkInsert adds codes in order, skipping any code already stored, and returns the inserted count
	BulkInsert(ctx context.Context, denomination int, codes []string) (int, error)

	// CountUnused returns the number of unused codes of a denomination
	CountUnused(ctx context.Context, denomination int) (int64, error)

	// CountUnusedByDenomination returns unused counts keyed by denomination
	CountUnusedByDenomination(ctx context.Context) (map[int]int64, error)

	// ClaimNext marks the oldest claimable code as used by claimantID; nil when none is claimable
	ClaimNext(ctx context.Context, denomination int, claimantID int64) (*models.Coupon, error)
}

// RedemptionCostRepository defines the interface for denomination prices
type RedemptionCostRepository interface {
	// Get returns the cost of a denomination or nil when unpriced
	Get(ctx context.Context, denomination int) (*models.RedemptionCost, error)

	// GetAll returns every configured cost ordered by denomination
	GetAll(ctx context.Context) ([]*models.RedemptionCost, error)

	// Set creates or replaces the cost of a denomination
	Set(ctx context.Context, denomination int, points int64) (*models.RedemptionCost, error)
}

// RedemptionRepository defines the interface for the redemption audit trail
type RedemptionRepository interface {
	// Create appends a redemption record and fills its id and timestamp
	Create(ctx context.Context, redemption *models.Redemption) error

	// GetRecent returns the latest redemptions, newest first
	GetRecent(ctx context.Context, limit int) ([]*models.Redemption, error)
}

// GateRequirementRepository defines the interface for membership gates
type GateRequirementRepository interface {
	// Create adds an active requirement
	Create(ctx context.Context, chatID string, inviteLink *string) (*models.GateRequirement, error)

	// GetByID returns a requirement regardless of state, or nil
	GetByID(ctx context.Context, id int64) (*models.GateRequirement, error)

	// GetActive returns active requirements ordered by id
	GetActive(ctx context.Context) ([]*models.GateRequirement, error)

	// Deactivate soft-deletes an active requirement; nil when id is unknown or already inactive
	Deactivate(ctx context.Context, id int64) (*models.GateRequirement, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases queued events
	Commit() error

	// Rollback rolls back the transaction and drops queued events
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	CouponRepository() CouponRepository
	RedemptionCostRepository() RedemptionCostRepository
	RedemptionRepository() RedemptionRepository
	GateRequirementRepository() GateRequirementRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Notifier delivers outbound messages to users.
// chatID and messageID identify a previously sent message to edit in place.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string, keyboard *models.Keyboard) error
	EditNotification(ctx context.Context, chatID, messageID string, text string, keyboard *models.Keyboard) error
	AcknowledgeAction(ctx context.Context, actionID string, text string, urgent bool) error
}

// MembershipChecker reports a user's standing in an external group
type MembershipChecker interface {
	GetMembershipStatus(ctx context.Context, groupID string, userID int64) (models.MembershipStatus, error)
}

// LedgerService defines user-facing point ledger operations
type LedgerService interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetOrCreateUser(ctx context.Context, userID int64, handle string) (*models.User, bool, error)
	CreditPoints(ctx context.Context, userID int64, delta int64) (*models.User, error)
	ApplyReferral(ctx context.Context, userID int64, referrerID int64) (bool, error)
	MarkVerified(ctx context.Context, userID int64) error
	SetConversationState(ctx context.Context, userID int64, state models.ConversationState) error
	VerificationToken(ctx context.Context, userID int64) (string, error)
	CompleteVerification(ctx context.Context, token string) (bool, error)
}

// RedemptionService defines the allocation of codes for points
type RedemptionService interface {
	Redeem(ctx context.Context, userID int64, denomination int) (*models.Redemption, error)
	RecentRedemptions(ctx context.Context, limit int) ([]*models.Redemption, error)
}

// GateService defines membership and verification checks run before redemption
type GateService interface {
	MissingRequirements(ctx context.Context, userID int64) ([]*models.GateRequirement, error)
	Check(ctx context.Context, userID int64) error
}

// ConversationService defines the admin multi-step input flows
type ConversationService interface {
	BeginAddCoupons(ctx context.Context, userID int64) (*Reply, error)
	BeginChangeCost(ctx context.Context, userID int64, denomination int) (*Reply, error)
	BeginAddGate(ctx context.Context, userID int64) (*Reply, error)
	BeginRemoveGate(ctx context.Context, userID int64) (*Reply, error)
	SelectCouponType(ctx context.Context, userID int64, denomination int) (*Reply, error)
	Cancel(ctx context.Context, userID int64) (*Reply, error)
	Submit(ctx context.Context, userID int64, text string) (*Reply, error)
}

// AdminService defines pool and gate administration
type AdminService interface {
	IsAdmin(userID int64) bool
	AdminIDs() []int64
	AddCoupons(ctx context.Context, adminID int64, denomination int, codes []string) (*models.BulkInsertResult, error)
	SetCost(ctx context.Context, adminID int64, denomination int, points int64) (*models.RedemptionCost, error)
	AddGateRequirement(ctx context.Context, adminID int64, chatID string, inviteLink *string) (*models.GateRequirement, error)
	DeactivateGateRequirement(ctx context.Context, adminID int64, requirementID int64) (*models.GateRequirement, error)
	ListGateRequirements(ctx context.Context, adminID int64) ([]*models.GateRequirement, error)
	Stock(ctx context.Context, adminID int64) ([]models.StockLevel, error)
	Catalog(ctx context.Context) ([]models.StockLevel, error)
	Costs(ctx context.Context) ([]*models.RedemptionCost, error)
}
