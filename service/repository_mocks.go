package service

import (
	"context"

	"rewarder/events"
	"rewarder/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, id int64, handle *string) (*models.User, bool, error) {
	args := m.Called(ctx, id, handle)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) AddPoints(ctx context.Context, id int64, delta int64) (*models.User, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) DeductPoints(ctx context.Context, id int64, amount int64) (*models.User, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetReferrer(ctx context.Context, id int64, referrerID int64) (bool, error) {
	args := m.Called(ctx, id, referrerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) RecordReferral(ctx context.Context, referrerID int64, reward int64) (*models.User, error) {
	args := m.Called(ctx, referrerID, reward)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetVerified(ctx context.Context, id int64) (*models.User, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) VerifyByToken(ctx context.Context, token string) (*models.User, bool, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) EnsureVerifyToken(ctx context.Context, id int64, candidate string) (string, error) {
	args := m.Called(ctx, id, candidate)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) SetState(ctx context.Context, id int64, tag *string, param *int64) (bool, error) {
	args := m.Called(ctx, id, tag, param)
	return args.Bool(0), args.Error(1)
}

// MockCouponRepository is a mock implementation of CouponRepository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) BulkInsert(ctx context.Context, denomination int, codes []string) (int, error) {
	args := m.Called(ctx, denomination, codes)
	return args.Int(0), args.Error(1)
}

func (m *MockCouponRepository) CountUnused(ctx context.Context, denomination int) (int64, error) {
	args := m.Called(ctx, denomination)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCouponRepository) CountUnusedByDenomination(ctx context.Context) (map[int]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int64), args.Error(1)
}

func (m *MockCouponRepository) ClaimNext(ctx context.Context, denomination int, claimantID int64) (*models.Coupon, error) {
	args := m.Called(ctx, denomination, claimantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

// MockRedemptionCostRepository is a mock implementation of RedemptionCostRepository
type MockRedemptionCostRepository struct {
	mock.Mock
}

func (m *MockRedemptionCostRepository) Get(ctx context.Context, denomination int) (*models.RedemptionCost, error) {
	args := m.Called(ctx, denomination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RedemptionCost), args.Error(1)
}

func (m *MockRedemptionCostRepository) GetAll(ctx context.Context) ([]*models.RedemptionCost, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RedemptionCost), args.Error(1)
}

func (m *MockRedemptionCostRepository) Set(ctx context.Context, denomination int, points int64) (*models.RedemptionCost, error) {
	args := m.Called(ctx, denomination, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RedemptionCost), args.Error(1)
}

// MockRedemptionRepository is a mock implementation of RedemptionRepository
type MockRedemptionRepository struct {
	mock.Mock
}

func (m *MockRedemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	args := m.Called(ctx, redemption)
	return args.Error(0)
}

func (m *MockRedemptionRepository) GetRecent(ctx context.Context, limit int) ([]*models.Redemption, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Redemption), args.Error(1)
}

// MockGateRequirementRepository is a mock implementation of GateRequirementRepository
type MockGateRequirementRepository struct {
	mock.Mock
}

func (m *MockGateRequirementRepository) Create(ctx context.Context, chatID string, inviteLink *string) (*models.GateRequirement, error) {
	args := m.Called(ctx, chatID, inviteLink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GateRequirement), args.Error(1)
}

func (m *MockGateRequirementRepository) GetByID(ctx context.Context, id int64) (*models.GateRequirement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GateRequirement), args.Error(1)
}

func (m *MockGateRequirementRepository) GetActive(ctx context.Context) ([]*models.GateRequirement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GateRequirement), args.Error(1)
}

func (m *MockGateRequirementRepository) Deactivate(ctx context.Context, id int64) (*models.GateRequirement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GateRequirement), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// Published returns the events passed to Publish, in order
func (m *MockEventPublisher) Published() []events.Event {
	var published []events.Event
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			published = append(published, call.Arguments.Get(0).(events.Event))
		}
	}
	return published
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Begin, Commit and Rollback are recorded; repositories come from SetRepositories.
type MockUnitOfWork struct {
	mock.Mock
	userRepo       UserRepository
	couponRepo     CouponRepository
	costRepo       RedemptionCostRepository
	redemptionRepo RedemptionRepository
	gateRepo       GateRequirementRepository
	eventBus       EventPublisher
}

// SetRepositories wires the repositories returned by the getters. Nil arguments are left unset.
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	couponRepo CouponRepository,
	costRepo RedemptionCostRepository,
	redemptionRepo RedemptionRepository,
	gateRepo GateRequirementRepository,
	eventBus EventPublisher,
) {
	m.userRepo = userRepo
	m.couponRepo = couponRepo
	m.costRepo = costRepo
	m.redemptionRepo = redemptionRepo
	m.gateRepo = gateRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository                       { return m.userRepo }
func (m *MockUnitOfWork) CouponRepository() CouponRepository                   { return m.couponRepo }
func (m *MockUnitOfWork) RedemptionCostRepository() RedemptionCostRepository   { return m.costRepo }
func (m *MockUnitOfWork) RedemptionRepository() RedemptionRepository           { return m.redemptionRepo }
func (m *MockUnitOfWork) GateRequirementRepository() GateRequirementRepository { return m.gateRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                             { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, text string, keyboard *models.Keyboard) error {
	args := m.Called(ctx, userID, text, keyboard)
	return args.Error(0)
}

func (m *MockNotifier) EditNotification(ctx context.Context, chatID, messageID string, text string, keyboard *models.Keyboard) error {
	args := m.Called(ctx, chatID, messageID, text, keyboard)
	return args.Error(0)
}

func (m *MockNotifier) AcknowledgeAction(ctx context.Context, actionID string, text string, urgent bool) error {
	args := m.Called(ctx, actionID, text, urgent)
	return args.Error(0)
}

// MockMembershipChecker is a mock implementation of MembershipChecker
type MockMembershipChecker struct {
	mock.Mock
}

func (m *MockMembershipChecker) GetMembershipStatus(ctx context.Context, groupID string, userID int64) (models.MembershipStatus, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Get(0).(models.MembershipStatus), args.Error(1)
}
