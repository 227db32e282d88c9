package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"rewarder/service"

	log "github.com/sirupsen/logrus"
)

func (d *Dispatcher) showWithdrawMenu(ctx context.Context, act InboundAction) error {
	levels, err := d.admin.Catalog(ctx)
	if err != nil {
		return err
	}
	d.render(ctx, act, withdrawText(levels), withdrawKeyboard(levels))
	return nil
}

// withdraw runs the gate and then the redemption engine.
// The code itself is delivered by the post-commit notifier, not here.
func (d *Dispatcher) withdraw(ctx context.Context, act InboundAction, userID int64, denomination int) error {
	if err := d.gate.Check(ctx, userID); err != nil {
		return d.renderGateFailure(ctx, act, userID, err)
	}

	redemption, err := d.redemptions.Redeem(ctx, userID, denomination)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInsufficientBalance), errors.Is(err, service.ErrExhausted):
		d.render(ctx, act, errorText(err), backKeyboard())
		return nil
	default:
		return err
	}

	d.render(ctx, act, fmt.Sprintf("Withdrawal successful! Your %d coupon has been sent to you in a separate message.\nRemaining balance: %d point(s).",
		redemption.Denomination, redemption.BalanceAfter), backKeyboard())
	return nil
}

// recheck re-evaluates the gate after the user says they joined or verified
func (d *Dispatcher) recheck(ctx context.Context, act InboundAction, userID int64) error {
	if err := d.gate.Check(ctx, userID); err != nil {
		return d.renderGateFailure(ctx, act, userID, err)
	}
	levels, err := d.admin.Catalog(ctx)
	if err != nil {
		return err
	}
	d.render(ctx, act, "All requirements met.\n"+withdrawText(levels), withdrawKeyboard(levels))
	return nil
}

// renderGateFailure shows what the user still has to do, or returns err when it is not a gate outcome
func (d *Dispatcher) renderGateFailure(ctx context.Context, act InboundAction, userID int64, err error) error {
	var unmet *service.GateUnmetError
	switch {
	case errors.As(err, &unmet):
		d.render(ctx, act, gateUnmetText(unmet.Missing), gateUnmetKeyboard(unmet.Missing))
		return nil
	case errors.Is(err, service.ErrUnverified):
		token, err := d.ledger.VerificationToken(ctx, userID)
		if err != nil {
			return err
		}
		link := d.verifyURL(url.QueryEscape(token))
		log.WithField("userID", userID).Debug("Sent verification link")
		d.render(ctx, act, "Please verify your account before withdrawing:\n"+link, verifyKeyboard(link))
		return nil
	default:
		return err
	}
}
