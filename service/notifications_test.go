package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"rewarder/events"
	"rewarder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, bus *events.Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Drain(ctx))
}

func TestRedemptionNotifier_CouponRedeemed(t *testing.T) {
	bus := events.NewBus()
	notifier := new(MockNotifier)
	NewRedemptionNotifier(notifier, NewAdminSet([]int64{200, 100})).Subscribe(bus)

	notifier.On("Notify", mock.Anything, int64(42), "Your 500 coupon code:\nABC123\n\nPoints spent: 3. Remaining balance: 2.", (*models.Keyboard)(nil)).Return(nil)
	adminText := "Coupon redeemed\nUser: alice (42)\nType: 500\nCode: ABC123"
	notifier.On("Notify", mock.Anything, int64(100), adminText, (*models.Keyboard)(nil)).Return(errors.New("blocked"))
	notifier.On("Notify", mock.Anything, int64(200), adminText, (*models.Keyboard)(nil)).Return(nil)

	bus.Emit(context.Background(), events.CouponRedeemedEvent{
		RedemptionID: 1,
		UserID:       42,
		Handle:       "alice",
		Denomination: 500,
		Code:         "ABC123",
		PointsSpent:  3,
		BalanceAfter: 2,
	})
	drain(t, bus)

	notifier.AssertExpectations(t)
}

func TestRedemptionNotifier_ReferralCredited(t *testing.T) {
	bus := events.NewBus()
	notifier := new(MockNotifier)
	NewRedemptionNotifier(notifier, NewAdminSet(nil)).Subscribe(bus)

	notifier.On("Notify", mock.Anything, int64(1), "A new user joined with your referral link. You earned 1 point(s).", (*models.Keyboard)(nil)).Return(nil)

	bus.Emit(context.Background(), events.ReferralCreditedEvent{UserID: 2, ReferrerID: 1, Reward: 1})
	drain(t, bus)

	notifier.AssertExpectations(t)
}

func TestRedemptionNotifier_OnlyAfterFlush(t *testing.T) {
	bus := events.NewBus()
	notifier := new(MockNotifier)
	NewRedemptionNotifier(notifier, NewAdminSet(nil)).Subscribe(bus)

	tx := events.NewTransactionalBus(bus)
	tx.Publish(events.ReferralCreditedEvent{UserID: 2, ReferrerID: 1, Reward: 1})
	tx.Discard()
	assert.Empty(t, tx.Pending())
	drain(t, bus)

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
