package models

import (
	"strconv"
	"strings"
)

// Action identifiers carried by keyboard buttons
const (
	ActionMenuStats    = "menu_stats"
	ActionMenuWithdraw = "menu_withdraw"
	ActionMenuReferral = "menu_referral"
	ActionMenuAdmin    = "menu_admin"
	ActionMenuBack     = "menu_back"
	ActionVerifyCheck  = "verify_check"
	ActionGateCheck    = "gate_check"

	ActionAdminAddCoupon  = "admin_add_coupon"
	ActionAdminStock      = "admin_stock"
	ActionAdminLog        = "admin_log"
	ActionAdminChangeCost = "admin_change_cost"
	ActionAdminAddGate    = "admin_add_gate"
	ActionAdminRemoveGate = "admin_remove_gate"
	ActionAdminListGates  = "admin_list_gates"
	ActionAdminCancel     = "admin_cancel"

	// Prefixes followed by a denomination
	ActionWithdrawPrefix        = "withdraw_"
	ActionAdminCouponTypePrefix = "admin_coupon_"
	ActionAdminCostPrefix       = "admin_cost_"
)

// ActionWithParam appends a numeric parameter to an action prefix
func ActionWithParam(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}

// ParseActionParam extracts the numeric parameter of a prefixed action
func ParseActionParam(action, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(action, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
