package service

import (
	"context"
	"fmt"

	"rewarder/events"
	"rewarder/models"

	log "github.com/sirupsen/logrus"
)

// RedemptionNotifier tells the claimant and every admin about committed redemptions.
// It only ever sees events flushed after commit, and a failed delivery is logged, not retried.
type RedemptionNotifier struct {
	notifier Notifier
	admins   AdminSet
}

// NewRedemptionNotifier creates a notifier for committed redemptions
func NewRedemptionNotifier(notifier Notifier, admins AdminSet) *RedemptionNotifier {
	return &RedemptionNotifier{
		notifier: notifier,
		admins:   admins,
	}
}

// Subscribe registers the notifier's handlers on bus
func (n *RedemptionNotifier) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeCouponRedeemed, n.handleCouponRedeemed)
	bus.Subscribe(events.EventTypeReferralCredited, n.handleReferralCredited)
}

func (n *RedemptionNotifier) handleCouponRedeemed(ctx context.Context, event events.Event) {
	e, ok := event.(events.CouponRedeemedEvent)
	if !ok {
		return
	}

	claimantText := fmt.Sprintf("Your %d coupon code:\n%s\n\nPoints spent: %d. Remaining balance: %d.",
		e.Denomination, e.Code, e.PointsSpent, e.BalanceAfter)
	if err := n.notifier.Notify(ctx, e.UserID, claimantText, nil); err != nil {
		log.WithFields(log.Fields{
			"userID":       e.UserID,
			"redemptionID": e.RedemptionID,
			"error":        err,
		}).Error("Failed to deliver coupon to claimant")
	}

	who := models.FormatID(e.UserID)
	if e.Handle != "" {
		who = fmt.Sprintf("%s (%s)", e.Handle, who)
	}
	adminText := fmt.Sprintf("Coupon redeemed\nUser: %s\nType: %d\nCode: %s", who, e.Denomination, e.Code)
	for _, adminID := range n.admins.IDs() {
		if err := n.notifier.Notify(ctx, adminID, adminText, nil); err != nil {
			log.WithFields(log.Fields{
				"adminID":      adminID,
				"redemptionID": e.RedemptionID,
				"error":        err,
			}).Error("Failed to notify admin of redemption")
		}
	}
}

func (n *RedemptionNotifier) handleReferralCredited(ctx context.Context, event events.Event) {
	e, ok := event.(events.ReferralCreditedEvent)
	if !ok {
		return
	}

	text := fmt.Sprintf("A new user joined with your referral link. You earned %d point(s).", e.Reward)
	if err := n.notifier.Notify(ctx, e.ReferrerID, text, nil); err != nil {
		log.WithFields(log.Fields{
			"referrerID": e.ReferrerID,
			"error":      err,
		}).Error("Failed to notify referrer")
	}
}
