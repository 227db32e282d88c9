package dispatch

import (
	"context"

	"rewarder/models"
	"rewarder/service"

	"github.com/stretchr/testify/mock"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLedger) GetOrCreateUser(ctx context.Context, userID int64, handle string) (*models.User, bool, error) {
	args := m.Called(ctx, userID, handle)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *mockLedger) CreditPoints(ctx context.Context, userID int64, delta int64) (*models.User, error) {
	args := m.Called(ctx, userID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLedger) ApplyReferral(ctx context.Context, userID int64, referrerID int64) (bool, error) {
	args := m.Called(ctx, userID, referrerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) MarkVerified(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockLedger) SetConversationState(ctx context.Context, userID int64, state models.ConversationState) error {
	return m.Called(ctx, userID, state).Error(0)
}

func (m *mockLedger) VerificationToken(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) CompleteVerification(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type mockRedemptions struct {
	mock.Mock
}

func (m *mockRedemptions) Redeem(ctx context.Context, userID int64, denomination int) (*models.Redemption, error) {
	args := m.Called(ctx, userID, denomination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Redemption), args.Error(1)
}

func (m *mockRedemptions) RecentRedemptions(ctx context.Context, limit int) ([]*models.Redemption, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Redemption), args.Error(1)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) MissingRequirements(ctx context.Context, userID int64) ([]*models.GateRequirement, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GateRequirement), args.Error(1)
}

func (m *mockGate) Check(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

type mockConversation struct {
	mock.Mock
}

func (m *mockConversation) reply(args mock.Arguments) (*service.Reply, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Reply), args.Error(1)
}

func (m *mockConversation) BeginAddCoupons(ctx context.Context, userID int64) (*service.Reply, error) {
	return m.reply(m.Called(ctx, userID))
}

func (m *mockConversation) BeginChangeCost(ctx context.Context, userID int64, denomination int) (*service.Reply, error) {
	return m.reply(m.Called(ctx, userID, denomination))
}

func (m *mockConversation) BeginAddGate(ctx context.Context, userID int64) (*service.Reply, error) {
	return m.reply(m.Called(ctx, userID))
}

func (m *mockConversation) BeginRemoveGate(ctx context.Context, userID int64) (*service.Reply, error) {
	return m.reply(m.Called(ctx, userID))
}

func (m *mockConversation) SelectCouponType(ctx context.Context, userID int64, denomination int) (*service.Reply, error) {
	return m.reply(m.Called(ctx, userID, denomination))
}

func (m *mockConversation) Cancel(ctx context.Context, userID int64) (*service.Reply, error) {
	return m.reply(m.Called(ctx, userID))
}

func (m *mockConversation) Submit(ctx context.Context, userID int64, text string) (*service.Reply, error) {
	return m.reply(m.Called(ctx, userID, text))
}

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) IsAdmin(userID int64) bool {
	return m.Called(userID).Bool(0)
}

func (m *mockAdmin) AdminIDs() []int64 {
	return m.Called().Get(0).([]int64)
}

func (m *mockAdmin) AddCoupons(ctx context.Context, adminID int64, denomination int, codes []string) (*models.BulkInsertResult, error) {
	args := m.Called(ctx, adminID, denomination, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkInsertResult), args.Error(1)
}

func (m *mockAdmin) SetCost(ctx context.Context, adminID int64, denomination int, points int64) (*models.RedemptionCost, error) {
	args := m.Called(ctx, adminID, denomination, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RedemptionCost), args.Error(1)
}

func (m *mockAdmin) AddGateRequirement(ctx context.Context, adminID int64, chatID string, inviteLink *string) (*models.GateRequirement, error) {
	args := m.Called(ctx, adminID, chatID, inviteLink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GateRequirement), args.Error(1)
}

func (m *mockAdmin) DeactivateGateRequirement(ctx context.Context, adminID int64, requirementID int64) (*models.GateRequirement, error) {
	args := m.Called(ctx, adminID, requirementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GateRequirement), args.Error(1)
}

func (m *mockAdmin) ListGateRequirements(ctx context.Context, adminID int64) ([]*models.GateRequirement, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GateRequirement), args.Error(1)
}

func (m *mockAdmin) Stock(ctx context.Context, adminID int64) ([]models.StockLevel, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StockLevel), args.Error(1)
}

func (m *mockAdmin) Catalog(ctx context.Context) ([]models.StockLevel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StockLevel), args.Error(1)
}

func (m *mockAdmin) Costs(ctx context.Context) ([]*models.RedemptionCost, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RedemptionCost), args.Error(1)
}
