package models

// ConversationState is the admin's position in a multi-step input flow.
// It is a closed set; only the types in this file implement it.
type ConversationState interface {
	isConversationState()
}

// StateNone means the next free-form message is not interpreted as admin input
type StateNone struct{}

// StateAwaitingCouponType waits for the admin to choose a denomination to stock
type StateAwaitingCouponType struct{}

// StateAwaitingCouponCodes waits for a block of codes for Denomination
type StateAwaitingCouponCodes struct {
	Denomination int
}

// StateAwaitingNewCost waits for a new point cost for Denomination
type StateAwaitingNewCost struct {
	Denomination int
}

// StateAwaitingGateChatID waits for the id of a guild to require
type StateAwaitingGateChatID struct{}

// StateAwaitingGateInviteLink waits for the join link of ChatID
type StateAwaitingGateInviteLink struct {
	ChatID int64
}

// StateAwaitingGateRemovalID waits for the id of a requirement to deactivate
type StateAwaitingGateRemovalID struct{}

func (StateNone) isConversationState()                   {}
func (StateAwaitingCouponType) isConversationState()     {}
func (StateAwaitingCouponCodes) isConversationState()    {}
func (StateAwaitingNewCost) isConversationState()        {}
func (StateAwaitingGateChatID) isConversationState()     {}
func (StateAwaitingGateInviteLink) isConversationState() {}
func (StateAwaitingGateRemovalID) isConversationState()  {}

// Persisted tags
const (
	stateTagCouponType     = "awaiting_coupon_type"
	stateTagCouponCodes    = "awaiting_coupon_codes"
	stateTagNewCost        = "awaiting_new_cost"
	stateTagGateChatID     = "awaiting_gate_chat_id"
	stateTagGateInviteLink = "awaiting_gate_invite_link"
	stateTagGateRemovalID  = "awaiting_gate_removal_id"
)

// EncodeState converts a state into its stored tag and parameter.
// StateNone (and nil) encode to a NULL tag.
func EncodeState(state ConversationState) (tag *string, param *int64) {
	str := func(s string) *string { return &s }
	num := func(n int64) *int64 { return &n }

	switch s := state.(type) {
	case StateAwaitingCouponType:
		return str(stateTagCouponType), nil
	case StateAwaitingCouponCodes:
		return str(stateTagCouponCodes), num(int64(s.Denomination))
	case StateAwaitingNewCost:
		return str(stateTagNewCost), num(int64(s.Denomination))
	case StateAwaitingGateChatID:
		return str(stateTagGateChatID), nil
	case StateAwaitingGateInviteLink:
		return str(stateTagGateInviteLink), num(s.ChatID)
	case StateAwaitingGateRemovalID:
		return str(stateTagGateRemovalID), nil
	default:
		return nil, nil
	}
}

// DecodeState converts a stored tag and parameter back into a state.
// Unknown tags, and parameterised tags missing their parameter, decode to StateNone.
func DecodeState(tag *string, param *int64) ConversationState {
	if tag == nil {
		return StateNone{}
	}

	switch *tag {
	case stateTagCouponType:
		return StateAwaitingCouponType{}
	case stateTagCouponCodes:
		if param == nil || !IsValidDenomination(int(*param)) {
			return StateNone{}
		}
		return StateAwaitingCouponCodes{Denomination: int(*param)}
	case stateTagNewCost:
		if param == nil || !IsValidDenomination(int(*param)) {
			return StateNone{}
		}
		return StateAwaitingNewCost{Denomination: int(*param)}
	case stateTagGateChatID:
		return StateAwaitingGateChatID{}
	case stateTagGateInviteLink:
		if param == nil {
			return StateNone{}
		}
		return StateAwaitingGateInviteLink{ChatID: *param}
	case stateTagGateRemovalID:
		return StateAwaitingGateRemovalID{}
	default:
		return StateNone{}
	}
}

// IsIdle reports whether the state is StateNone
func IsIdle(state ConversationState) bool {
	if state == nil {
		return true
	}
	_, ok := state.(StateNone)
	return ok
}
