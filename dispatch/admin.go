package dispatch

import (
	"context"

	"rewarder/models"
	"rewarder/service"
)

func (d *Dispatcher) handleAdminAction(ctx context.Context, act InboundAction, userID int64) error {
	var (
		reply *service.Reply
		err   error
	)

	switch act.Data {
	case models.ActionAdminAddCoupon:
		reply, err = d.conversation.BeginAddCoupons(ctx, userID)
	case models.ActionAdminAddGate:
		reply, err = d.conversation.BeginAddGate(ctx, userID)
	case models.ActionAdminRemoveGate:
		reply, err = d.conversation.BeginRemoveGate(ctx, userID)
	case models.ActionAdminCancel:
		reply, err = d.conversation.Cancel(ctx, userID)
	case models.ActionAdminChangeCost:
		d.render(ctx, act, "Select the coupon type to reprice.", costKeyboard())
		return nil
	case models.ActionAdminStock:
		levels, err := d.admin.Stock(ctx, userID)
		if err != nil {
			return err
		}
		d.render(ctx, act, stockText(levels), adminBackKeyboard())
		return nil
	case models.ActionAdminLog:
		redemptions, err := d.redemptions.RecentRedemptions(ctx, d.config.RedeemsLogLimit)
		if err != nil {
			return err
		}
		d.render(ctx, act, redeemsLogText(redemptions), adminBackKeyboard())
		return nil
	case models.ActionAdminListGates:
		gates, err := d.admin.ListGateRequirements(ctx, userID)
		if err != nil {
			return err
		}
		text := "There are no active force groups."
		if len(gates) > 0 {
			text = service.FormatGateList(gates)
		}
		d.render(ctx, act, text, adminBackKeyboard())
		return nil
	default:
		if denomination, ok := models.ParseActionParam(act.Data, models.ActionAdminCouponTypePrefix); ok {
			reply, err = d.conversation.SelectCouponType(ctx, userID, denomination)
		} else if denomination, ok := models.ParseActionParam(act.Data, models.ActionAdminCostPrefix); ok {
			reply, err = d.conversation.BeginChangeCost(ctx, userID, denomination)
		} else {
			d.render(ctx, act, "Admin panel", adminKeyboard())
			return nil
		}
	}

	if err != nil {
		return err
	}
	keyboard := reply.Keyboard
	if models.IsIdle(reply.State) && keyboard == nil {
		keyboard = adminBackKeyboard()
	}
	d.render(ctx, act, reply.Text, keyboard)
	return nil
}
