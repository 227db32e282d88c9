package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rewarder/models"
	"rewarder/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	adminID  int64 = 100
	playerID int64 = 7
)

type fixture struct {
	ledger       *mockLedger
	redemptions  *mockRedemptions
	gate         *mockGate
	conversation *mockConversation
	admin        *mockAdmin
	notifier     *service.MockNotifier
	dispatcher   *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		ledger:       new(mockLedger),
		redemptions:  new(mockRedemptions),
		gate:         new(mockGate),
		conversation: new(mockConversation),
		admin:        new(mockAdmin),
		notifier:     new(service.MockNotifier),
	}
	f.admin.On("IsAdmin", adminID).Return(true)
	f.admin.On("IsAdmin", mock.Anything).Return(false)
	f.dispatcher = New(f.ledger, f.redemptions, f.gate, f.conversation, f.admin, f.notifier,
		Config{BaseURL: "https://rewards.example.com/", RedeemsLogLimit: 5}, nil)
	return f
}

func (f *fixture) seen(user *models.User) {
	f.ledger.On("GetOrCreateUser", mock.Anything, user.ID, mock.Anything).Return(user, false, nil)
}

// edited captures the text of the in-place edit for an action
func (f *fixture) edited() *string {
	var text string
	f.notifier.On("EditNotification", mock.Anything, "chan", "msg", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { text = args.String(3) }).Return(nil)
	return &text
}

func (f *fixture) acked() {
	f.notifier.On("AcknowledgeAction", mock.Anything, "interaction", "", false).Return(nil).Once()
}

func press(userID int64, data string) InboundAction {
	return InboundAction{
		UserID:          userID,
		Handle:          "someone",
		ActionID:        "interaction",
		Data:            data,
		OriginChatID:    "chan",
		OriginMessageID: "msg",
	}
}

func TestHandleMessage_ShowsMainMenu(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID, Handle: strPtr("bob"), Points: 4})

	var keyboard *models.Keyboard
	f.notifier.On("Notify", mock.Anything, playerID, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Welcome, bob! You have 4 point(s).")
	}), mock.Anything).Run(func(args mock.Arguments) {
		keyboard = args.Get(3).(*models.Keyboard)
	}).Return(nil)

	f.dispatcher.HandleMessage(context.Background(), InboundMessage{UserID: playerID, Handle: "bob", Text: "hi"})

	f.notifier.AssertExpectations(t)
	require.NotNil(t, keyboard)
	assert.Len(t, keyboard.Rows, 2, "no admin row for regular users")
	f.conversation.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_AdminSeesAdminPanelButton(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: adminID})

	var keyboard *models.Keyboard
	f.notifier.On("Notify", mock.Anything, adminID, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		keyboard = args.Get(3).(*models.Keyboard)
	}).Return(nil)

	f.dispatcher.HandleMessage(context.Background(), InboundMessage{UserID: adminID, Text: "menu"})

	require.NotNil(t, keyboard)
	require.Len(t, keyboard.Rows, 3)
	assert.Equal(t, models.ActionMenuAdmin, keyboard.Rows[2][0].Action)
}

func TestHandleMessage_StartWithReferrer(t *testing.T) {
	f := newFixture()
	f.ledger.On("GetOrCreateUser", mock.Anything, playerID, "newbie").Return(&models.User{ID: playerID}, true, nil)
	f.ledger.On("ApplyReferral", mock.Anything, playerID, int64(55)).Return(true, nil)
	f.notifier.On("Notify", mock.Anything, playerID, mock.Anything, mock.Anything).Return(nil)

	f.dispatcher.HandleMessage(context.Background(), InboundMessage{UserID: playerID, Handle: "newbie", Text: "/start 55"})

	f.ledger.AssertExpectations(t)
}

func TestHandleMessage_StartIgnoresJunkArgument(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID})
	f.notifier.On("Notify", mock.Anything, playerID, mock.Anything, mock.Anything).Return(nil)

	f.dispatcher.HandleMessage(context.Background(), InboundMessage{UserID: playerID, Text: "!start abc"})

	f.ledger.AssertNotCalled(t, "ApplyReferral", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_StartResetsConversation(t *testing.T) {
	f := newFixture()
	tag, param := models.EncodeState(models.StateAwaitingGateChatID{})
	f.seen(&models.User{ID: adminID, StateTag: tag, StateParam: param})
	f.ledger.On("SetConversationState", mock.Anything, adminID, models.StateNone{}).Return(nil)
	f.notifier.On("Notify", mock.Anything, adminID, mock.Anything, mock.Anything).Return(nil)

	f.dispatcher.HandleMessage(context.Background(), InboundMessage{UserID: adminID, Text: "/start"})

	f.ledger.AssertExpectations(t)
	f.conversation.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_ConversationInput(t *testing.T) {
	f := newFixture()
	tag, param := models.EncodeState(models.StateAwaitingNewCost{Denomination: 500})
	f.seen(&models.User{ID: adminID, StateTag: tag, StateParam: param})
	f.conversation.On("Submit", mock.Anything, adminID, "4").
		Return(&service.Reply{Text: "The 500 coupon now costs 4 point(s).", State: models.StateNone{}}, nil)
	f.notifier.On("Notify", mock.Anything, adminID, "The 500 coupon now costs 4 point(s).", (*models.Keyboard)(nil)).Return(nil)

	f.dispatcher.HandleMessage(context.Background(), InboundMessage{UserID: adminID, Text: " 4 "})

	f.notifier.AssertExpectations(t)
}

func TestHandleMessage_StoreFailure(t *testing.T) {
	f := newFixture()
	f.ledger.On("GetOrCreateUser", mock.Anything, playerID, "").
		Return(nil, false, errors.Join(service.ErrTransientDependency, errors.New("db down")))
	f.notifier.On("Notify", mock.Anything, playerID, "Something went wrong. Please try again.", mock.Anything).Return(nil)

	f.dispatcher.HandleMessage(context.Background(), InboundMessage{UserID: playerID, Text: "hi"})

	f.notifier.AssertExpectations(t)
}

func TestHandleAction_WithdrawSuccess(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID, Points: 5, Verified: true})
	f.acked()
	text := f.edited()
	f.gate.On("Check", mock.Anything, playerID).Return(nil)
	f.redemptions.On("Redeem", mock.Anything, playerID, 500).
		Return(&models.Redemption{ID: 1, Denomination: 500, Code: "ABC123", PointsSpent: 3, BalanceAfter: 2}, nil)

	f.dispatcher.HandleAction(context.Background(), press(playerID, "withdraw_500"))

	assert.Contains(t, *text, "Withdrawal successful")
	assert.Contains(t, *text, "Remaining balance: 2 point(s).")
	assert.NotContains(t, *text, "ABC123", "the code is only delivered by the post-commit notifier")
	f.notifier.AssertExpectations(t)
}

func TestHandleAction_WithdrawGateUnmet(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID, Points: 5})
	f.acked()

	var keyboard *models.Keyboard
	var text string
	f.notifier.On("EditNotification", mock.Anything, "chan", "msg", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		text = args.String(3)
		keyboard = args.Get(4).(*models.Keyboard)
	}).Return(nil)

	f.gate.On("Check", mock.Anything, playerID).Return(&service.GateUnmetError{Missing: []*models.GateRequirement{
		{ID: 1, ChatID: "111", InviteLink: strPtr("https://discord.gg/one")},
		{ID: 2, ChatID: "222"},
	}})

	f.dispatcher.HandleAction(context.Background(), press(playerID, "withdraw_500"))

	assert.Contains(t, text, "https://discord.gg/one")
	assert.Contains(t, text, "server 222")
	require.NotNil(t, keyboard)
	assert.Equal(t, "https://discord.gg/one", keyboard.Rows[0][0].URL)
	assert.Equal(t, models.ActionGateCheck, keyboard.Rows[1][0].Action)
	f.redemptions.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleAction_WithdrawUnverified(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID, Points: 5})
	f.acked()
	text := f.edited()
	f.gate.On("Check", mock.Anything, playerID).Return(service.ErrUnverified)
	f.ledger.On("VerificationToken", mock.Anything, playerID).Return("tok-1", nil)

	f.dispatcher.HandleAction(context.Background(), press(playerID, "withdraw_1000"))

	assert.Contains(t, *text, "https://rewards.example.com/verify?token=tok-1")
	f.redemptions.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleAction_WithdrawRefusals(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"insufficient", service.ErrInsufficientBalance, "You do not have enough points for this coupon."},
		{"exhausted", service.ErrExhausted, "This coupon is out of stock. Please try again later."},
		{"transient", errors.Join(service.ErrTransientDependency, context.DeadlineExceeded), "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.seen(&models.User{ID: playerID, Points: 5, Verified: true})
			f.acked()
			text := f.edited()
			f.gate.On("Check", mock.Anything, playerID).Return(nil)
			f.redemptions.On("Redeem", mock.Anything, playerID, 2000).Return(nil, tt.err)

			f.dispatcher.HandleAction(context.Background(), press(playerID, "withdraw_2000"))

			assert.Equal(t, tt.want, *text)
		})
	}
}

func TestHandleAction_NonAdminCannotUseAdminButtons(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID})
	f.notifier.On("AcknowledgeAction", mock.Anything, "interaction", "This menu is for admins only.", true).Return(nil).Once()

	f.dispatcher.HandleAction(context.Background(), press(playerID, models.ActionAdminAddCoupon))

	f.notifier.AssertExpectations(t)
	f.conversation.AssertNotCalled(t, "BeginAddCoupons", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "EditNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleAction_AdminSelectsCouponType(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: adminID})
	f.acked()
	text := f.edited()
	f.conversation.On("SelectCouponType", mock.Anything, adminID, 1000).
		Return(&service.Reply{Text: "Send the 1000 coupon codes", State: models.StateAwaitingCouponCodes{Denomination: 1000}}, nil)

	f.dispatcher.HandleAction(context.Background(), press(adminID, "admin_coupon_1000"))

	assert.Equal(t, "Send the 1000 coupon codes", *text)
}

func TestHandleAction_AdminChangeCostPicksDenomination(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: adminID})
	f.acked()
	text := f.edited()
	f.conversation.On("BeginChangeCost", mock.Anything, adminID, 4000).
		Return(&service.Reply{Text: "Send the new point cost for the 4000 coupon.", State: models.StateAwaitingNewCost{Denomination: 4000}}, nil)

	f.dispatcher.HandleAction(context.Background(), press(adminID, "admin_cost_4000"))

	assert.Equal(t, "Send the new point cost for the 4000 coupon.", *text)
}

func TestHandleAction_AdminLogUsesConfiguredLimit(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: adminID})
	f.acked()
	text := f.edited()
	f.redemptions.On("RecentRedemptions", mock.Anything, 5).Return([]*models.Redemption{
		{UserID: 7, Denomination: 500, Code: "ABC123", PointsSpent: 3, CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
	}, nil)

	f.dispatcher.HandleAction(context.Background(), press(adminID, models.ActionAdminLog))

	assert.Contains(t, *text, "2026-01-02 03:04  user 7  500  ABC123  (3 pts)")
}

func TestHandleAction_AdminStock(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: adminID})
	f.acked()
	text := f.edited()
	cost := int64(3)
	f.admin.On("Stock", mock.Anything, adminID).Return([]models.StockLevel{
		{Denomination: 500, Unused: 2, Cost: &cost},
		{Denomination: 1000, Unused: 0},
	}, nil)

	f.dispatcher.HandleAction(context.Background(), press(adminID, models.ActionAdminStock))

	assert.Equal(t, "Coupon stock:\n500: 2 unused, 3 point(s)\n1000: 0 unused, no price", *text)
}

func TestHandleAction_EditFailureFallsBackToNewMessage(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID, Points: 1, Referrals: 1})
	f.acked()
	f.notifier.On("EditNotification", mock.Anything, "chan", "msg", mock.Anything, mock.Anything).Return(errors.New("message deleted"))
	f.notifier.On("Notify", mock.Anything, playerID, "Your stats\nPoints: 1\nReferrals: 1\nVerified: no", mock.Anything).Return(nil)

	f.dispatcher.HandleAction(context.Background(), press(playerID, models.ActionMenuStats))

	f.notifier.AssertExpectations(t)
}

func TestHandleAction_WithdrawMenuHidesUnpricedDenominations(t *testing.T) {
	f := newFixture()
	f.seen(&models.User{ID: playerID})
	f.acked()

	var keyboard *models.Keyboard
	f.notifier.On("EditNotification", mock.Anything, "chan", "msg", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		keyboard = args.Get(4).(*models.Keyboard)
	}).Return(nil)

	cost := int64(3)
	f.admin.On("Catalog", mock.Anything).Return([]models.StockLevel{
		{Denomination: 500, Unused: 1, Cost: &cost},
		{Denomination: 1000, Unused: 4},
	}, nil)

	f.dispatcher.HandleAction(context.Background(), press(playerID, models.ActionMenuWithdraw))

	require.NotNil(t, keyboard)
	require.Len(t, keyboard.Rows, 2)
	require.Len(t, keyboard.Rows[0], 1)
	assert.Equal(t, "withdraw_500", keyboard.Rows[0][0].Action)
}

func TestStartArgument(t *testing.T) {
	arg, ok := startArgument("/start 123")
	assert.True(t, ok)
	assert.Equal(t, "123", arg)

	arg, ok = startArgument("!START")
	assert.True(t, ok)
	assert.Empty(t, arg)

	_, ok = startArgument("started")
	assert.False(t, ok)
}

func strPtr(s string) *string { return &s }
