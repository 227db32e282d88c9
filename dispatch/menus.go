package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"rewarder/models"
)

func mainMenuText(user *models.User) string {
	return fmt.Sprintf("Welcome, %s! You have %d point(s).\nEarn points by inviting friends, then withdraw them as coupons.",
		user.DisplayName(), user.Points)
}

func (d *Dispatcher) mainMenu(userID int64) *models.Keyboard {
	kb := models.NewKeyboard(
		models.Row(
			models.Button{Label: "Stats", Action: models.ActionMenuStats},
			models.Button{Label: "Withdraw", Action: models.ActionMenuWithdraw},
		),
		models.Row(models.Button{Label: "Referral Link", Action: models.ActionMenuReferral}),
	)
	if d.admin.IsAdmin(userID) {
		kb.Rows = append(kb.Rows, models.Row(models.Button{Label: "Admin Panel", Action: models.ActionMenuAdmin}))
	}
	return kb
}

func backKeyboard() *models.Keyboard {
	return models.NewKeyboard(models.Row(models.Button{Label: "Back", Action: models.ActionMenuBack}))
}

func statsText(user *models.User) string {
	verified := "no"
	if user.Verified {
		verified = "yes"
	}
	return fmt.Sprintf("Your stats\nPoints: %d\nReferrals: %d\nVerified: %s", user.Points, user.Referrals, verified)
}

func referralText(user *models.User) string {
	return fmt.Sprintf("Invite friends and earn %d point(s) for each one who joins.\nAsk them to send this to the bot:\n/start %d",
		models.ReferralReward, user.ID)
}

func withdrawText(levels []models.StockLevel) string {
	var b strings.Builder
	b.WriteString("Choose a coupon to withdraw:")
	for _, l := range levels {
		if l.Cost == nil {
			continue
		}
		fmt.Fprintf(&b, "\n%d coupon: %d point(s), %d left", l.Denomination, *l.Cost, l.Unused)
	}
	return b.String()
}

// withdrawKeyboard offers the denominations that have a price
func withdrawKeyboard(levels []models.StockLevel) *models.Keyboard {
	row := make([]models.Button, 0, len(levels))
	for _, l := range levels {
		if l.Cost == nil {
			continue
		}
		row = append(row, models.Button{
			Label:  strconv.Itoa(l.Denomination),
			Action: models.ActionWithParam(models.ActionWithdrawPrefix, l.Denomination),
		})
	}
	kb := models.NewKeyboard()
	if len(row) > 0 {
		kb.Rows = append(kb.Rows, row)
	}
	kb.Rows = append(kb.Rows, models.Row(models.Button{Label: "Back", Action: models.ActionMenuBack}))
	return kb
}

func adminKeyboard() *models.Keyboard {
	return models.NewKeyboard(
		models.Row(
			models.Button{Label: "Add Coupon", Action: models.ActionAdminAddCoupon},
			models.Button{Label: "Stock", Action: models.ActionAdminStock},
		),
		models.Row(
			models.Button{Label: "Redeems Log", Action: models.ActionAdminLog},
			models.Button{Label: "Change Points", Action: models.ActionAdminChangeCost},
		),
		models.Row(
			models.Button{Label: "Add Force Group", Action: models.ActionAdminAddGate},
			models.Button{Label: "Remove Force Group", Action: models.ActionAdminRemoveGate},
		),
		models.Row(
			models.Button{Label: "Force Groups", Action: models.ActionAdminListGates},
			models.Button{Label: "Back", Action: models.ActionMenuBack},
		),
	)
}

func adminBackKeyboard() *models.Keyboard {
	return models.NewKeyboard(models.Row(models.Button{Label: "Back", Action: models.ActionMenuAdmin}))
}

func costKeyboard() *models.Keyboard {
	row := make([]models.Button, 0, len(models.Denominations))
	for _, d := range models.Denominations {
		row = append(row, models.Button{Label: strconv.Itoa(d), Action: models.ActionWithParam(models.ActionAdminCostPrefix, d)})
	}
	return models.NewKeyboard(row, models.Row(models.Button{Label: "Back", Action: models.ActionMenuAdmin}))
}

func stockText(levels []models.StockLevel) string {
	var b strings.Builder
	b.WriteString("Coupon stock:")
	for _, l := range levels {
		cost := "no price"
		if l.Cost != nil {
			cost = fmt.Sprintf("%d point(s)", *l.Cost)
		}
		fmt.Fprintf(&b, "\n%d: %d unused, %s", l.Denomination, l.Unused, cost)
	}
	return b.String()
}

func redeemsLogText(redemptions []*models.Redemption) string {
	if len(redemptions) == 0 {
		return "No coupons have been redeemed yet."
	}
	var b strings.Builder
	b.WriteString("Recent redemptions:")
	for _, r := range redemptions {
		fmt.Fprintf(&b, "\n%s  user %d  %d  %s  (%d pts)",
			r.CreatedAt.UTC().Format("2006-01-02 15:04"), r.UserID, r.Denomination, r.Code, r.PointsSpent)
	}
	return b.String()
}

func gateUnmetText(missing []*models.GateRequirement) string {
	var b strings.Builder
	b.WriteString("Join these servers before withdrawing:")
	for _, g := range missing {
		if g.HasInviteLink() {
			fmt.Fprintf(&b, "\n- %s", *g.InviteLink)
		} else {
			fmt.Fprintf(&b, "\n- server %s", g.ChatID)
		}
	}
	b.WriteString("\nPress Check again once you have joined.")
	return b.String()
}

func gateUnmetKeyboard(missing []*models.GateRequirement) *models.Keyboard {
	kb := models.NewKeyboard()
	for i, g := range missing {
		if g.HasInviteLink() {
			kb.Rows = append(kb.Rows, models.Row(models.Button{Label: fmt.Sprintf("Join server %d", i+1), URL: *g.InviteLink}))
		}
	}
	kb.Rows = append(kb.Rows, models.Row(
		models.Button{Label: "Check again", Action: models.ActionGateCheck},
		models.Button{Label: "Back", Action: models.ActionMenuBack},
	))
	return kb
}

func (d *Dispatcher) verifyURL(token string) string {
	return d.config.BaseURL + "/verify?token=" + token
}

func verifyKeyboard(link string) *models.Keyboard {
	return models.NewKeyboard(
		models.Row(models.Button{Label: "Verify", URL: link}),
		models.Row(
			models.Button{Label: "Completed Verification", Action: models.ActionVerifyCheck},
			models.Button{Label: "Back", Action: models.ActionMenuBack},
		),
	)
}
