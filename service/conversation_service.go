package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"rewarder/models"

	log "github.com/sirupsen/logrus"
)

// Reply is what the conversation wants shown to the admin after an input
type Reply struct {
	Text     string
	Keyboard *models.Keyboard
	State    models.ConversationState
}

type conversationService struct {
	uowFactory UnitOfWorkFactory
	admin      AdminService
}

// NewConversationService creates the admin conversation state machine
func NewConversationService(uowFactory UnitOfWorkFactory, admin AdminService) ConversationService {
	return &conversationService{
		uowFactory: uowFactory,
		admin:      admin,
	}
}

func cancelKeyboard() *models.Keyboard {
	return models.NewKeyboard(models.Row(models.Button{Label: "Cancel", Action: models.ActionAdminCancel}))
}

func denominationKeyboard(prefix string) *models.Keyboard {
	row := make([]models.Button, 0, len(models.Denominations))
	for _, d := range models.Denominations {
		row = append(row, models.Button{Label: strconv.Itoa(d), Action: models.ActionWithParam(prefix, d)})
	}
	return models.NewKeyboard(row, models.Row(models.Button{Label: "Cancel", Action: models.ActionAdminCancel}))
}

// BeginAddCoupons asks which denomination to stock
func (s *conversationService) BeginAddCoupons(ctx context.Context, userID int64) (*Reply, error) {
	return s.enter(ctx, userID, models.StateAwaitingCouponType{})
}

// SelectCouponType moves straight to code entry for a denomination chosen by button
func (s *conversationService) SelectCouponType(ctx context.Context, userID int64, denomination int) (*Reply, error) {
	if !models.IsValidDenomination(denomination) {
		return nil, fmt.Errorf("%w: denomination %d", ErrInvalidInput, denomination)
	}
	return s.enter(ctx, userID, models.StateAwaitingCouponCodes{Denomination: denomination})
}

// BeginChangeCost asks for the new price of a denomination
func (s *conversationService) BeginChangeCost(ctx context.Context, userID int64, denomination int) (*Reply, error) {
	if !models.IsValidDenomination(denomination) {
		return nil, fmt.Errorf("%w: denomination %d", ErrInvalidInput, denomination)
	}
	return s.enter(ctx, userID, models.StateAwaitingNewCost{Denomination: denomination})
}

// BeginAddGate asks for the id of the group to require
func (s *conversationService) BeginAddGate(ctx context.Context, userID int64) (*Reply, error) {
	return s.enter(ctx, userID, models.StateAwaitingGateChatID{})
}

// BeginRemoveGate lists the active requirements and asks which one to remove
func (s *conversationService) BeginRemoveGate(ctx context.Context, userID int64) (*Reply, error) {
	gates, err := s.admin.ListGateRequirements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(gates) == 0 {
		if err := s.setState(ctx, userID, models.StateNone{}); err != nil {
			return nil, err
		}
		return &Reply{Text: "There are no active force groups.", State: models.StateNone{}}, nil
	}

	reply, err := s.enter(ctx, userID, models.StateAwaitingGateRemovalID{})
	if err != nil {
		return nil, err
	}
	reply.Text = FormatGateList(gates) + "\n\n" + reply.Text
	return reply, nil
}

// Cancel abandons any flow in progress
func (s *conversationService) Cancel(ctx context.Context, userID int64) (*Reply, error) {
	if err := s.setState(ctx, userID, models.StateNone{}); err != nil {
		return nil, err
	}
	return &Reply{Text: "Cancelled.", State: models.StateNone{}}, nil
}

func (s *conversationService) enter(ctx context.Context, userID int64, state models.ConversationState) (*Reply, error) {
	if !s.admin.IsAdmin(userID) {
		return nil, ErrForbidden
	}
	if err := s.setState(ctx, userID, state); err != nil {
		return nil, err
	}
	return prompt(state), nil
}

// prompt is the question asked while waiting in state
func prompt(state models.ConversationState) *Reply {
	switch st := state.(type) {
	case models.StateAwaitingCouponType:
		return &Reply{Text: "Select the coupon type to add.", Keyboard: denominationKeyboard(models.ActionAdminCouponTypePrefix), State: st}
	case models.StateAwaitingCouponCodes:
		return &Reply{Text: fmt.Sprintf("Send the %d coupon codes, one per line or separated by commas.", st.Denomination), Keyboard: cancelKeyboard(), State: st}
	case models.StateAwaitingNewCost:
		return &Reply{Text: fmt.Sprintf("Send the new point cost for the %d coupon.", st.Denomination), Keyboard: cancelKeyboard(), State: st}
	case models.StateAwaitingGateChatID:
		return &Reply{Text: "Send the numeric id of the server users must join.", Keyboard: cancelKeyboard(), State: st}
	case models.StateAwaitingGateInviteLink:
		return &Reply{Text: fmt.Sprintf("Send the invite link for %d, or - to skip.", st.ChatID), Keyboard: cancelKeyboard(), State: st}
	case models.StateAwaitingGateRemovalID:
		return &Reply{Text: "Send the id of the force group to remove.", Keyboard: cancelKeyboard(), State: st}
	default:
		return &Reply{Text: "Nothing in progress.", State: models.StateNone{}}
	}
}

func reprompt(state models.ConversationState, problem string) *Reply {
	reply := prompt(state)
	reply.Text = problem + "\n" + reply.Text
	return reply
}

// Submit interprets free-form text against the user's stored state.
// It returns nil when the text is not conversation input.
func (s *conversationService) Submit(ctx context.Context, userID int64, text string) (*Reply, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if models.IsIdle(state) {
		return nil, nil
	}

	if !s.admin.IsAdmin(userID) {
		log.WithField("userID", userID).Warn("Resetting conversation state of non-admin")
		if err := s.setState(ctx, userID, models.StateNone{}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "/cancel") || strings.EqualFold(text, "cancel") {
		return s.Cancel(ctx, userID)
	}

	switch st := state.(type) {
	case models.StateAwaitingCouponType:
		return s.submitCouponType(ctx, userID, st, text)
	case models.StateAwaitingCouponCodes:
		return s.submitCouponCodes(ctx, userID, st, text)
	case models.StateAwaitingNewCost:
		return s.submitNewCost(ctx, userID, st, text)
	case models.StateAwaitingGateChatID:
		return s.submitGateChatID(ctx, userID, st, text)
	case models.StateAwaitingGateInviteLink:
		return s.submitGateInviteLink(ctx, userID, st, text)
	case models.StateAwaitingGateRemovalID:
		return s.submitGateRemovalID(ctx, userID, st, text)
	default:
		return nil, nil
	}
}

func (s *conversationService) submitCouponType(ctx context.Context, userID int64, st models.StateAwaitingCouponType, text string) (*Reply, error) {
	d, err := models.ParseDenomination(text)
	if err != nil {
		return reprompt(st, "That is not a coupon type."), nil
	}
	return s.enter(ctx, userID, models.StateAwaitingCouponCodes{Denomination: d})
}

func (s *conversationService) submitCouponCodes(ctx context.Context, userID int64, st models.StateAwaitingCouponCodes, text string) (*Reply, error) {
	codes := models.SplitCouponCodes(text)
	if len(codes) == 0 {
		return reprompt(st, "No codes found in your message."), nil
	}

	result, err := s.admin.AddCoupons(ctx, userID, st.Denomination, codes)
	if err != nil {
		return s.finish(ctx, userID, failureText("Could not add the codes", err))
	}

	return s.finish(ctx, userID, fmt.Sprintf("Added %d coupon(s) of %d. Skipped %d duplicate(s).",
		result.Inserted, result.Denomination, result.Skipped))
}

func (s *conversationService) submitNewCost(ctx context.Context, userID int64, st models.StateAwaitingNewCost, text string) (*Reply, error) {
	points, err := strconv.ParseInt(text, 10, 64)
	if err != nil || points <= 0 {
		return reprompt(st, "The cost must be a positive whole number."), nil
	}

	cost, err := s.admin.SetCost(ctx, userID, st.Denomination, points)
	if err != nil {
		return s.finish(ctx, userID, failureText("Could not change the cost", err))
	}

	return s.finish(ctx, userID, fmt.Sprintf("The %d coupon now costs %d point(s).", cost.Denomination, cost.Points))
}

func (s *conversationService) submitGateChatID(ctx context.Context, userID int64, st models.StateAwaitingGateChatID, text string) (*Reply, error) {
	chatID, err := strconv.ParseInt(text, 10, 64)
	if err != nil || chatID == 0 {
		return reprompt(st, "The server id must be a number."), nil
	}
	return s.enter(ctx, userID, models.StateAwaitingGateInviteLink{ChatID: chatID})
}

func (s *conversationService) submitGateInviteLink(ctx context.Context, userID int64, st models.StateAwaitingGateInviteLink, text string) (*Reply, error) {
	var link *string
	if text != "-" && !strings.EqualFold(text, "skip") {
		if !isHTTPURL(text) {
			return reprompt(st, "The invite link must start with http:// or https://."), nil
		}
		link = &text
	}

	gate, err := s.admin.AddGateRequirement(ctx, userID, strconv.FormatInt(st.ChatID, 10), link)
	if err != nil {
		return s.finish(ctx, userID, failureText("Could not add the force group", err))
	}

	return s.finish(ctx, userID, fmt.Sprintf("Force group %s added with id %d.", gate.ChatID, gate.ID))
}

func (s *conversationService) submitGateRemovalID(ctx context.Context, userID int64, st models.StateAwaitingGateRemovalID, text string) (*Reply, error) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return reprompt(st, "The id must be a number from the list."), nil
	}

	gate, err := s.admin.DeactivateGateRequirement(ctx, userID, id)
	if err != nil {
		return s.finish(ctx, userID, failureText("Could not remove the force group", err))
	}

	return s.finish(ctx, userID, fmt.Sprintf("Force group %s removed.", gate.ChatID))
}

// finish returns the user to StateNone with a closing message
func (s *conversationService) finish(ctx context.Context, userID int64, text string) (*Reply, error) {
	if err := s.setState(ctx, userID, models.StateNone{}); err != nil {
		return nil, err
	}
	return &Reply{Text: text, State: models.StateNone{}}, nil
}

func failureText(prefix string, err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return prefix + ": no such entry."
	case errors.Is(err, ErrDuplicateGate):
		return prefix + ": that server is already required."
	case errors.Is(err, ErrInvalidInput):
		return prefix + ": the input was not valid."
	case errors.Is(err, ErrForbidden):
		return prefix + ": you are not an admin."
	default:
		return prefix + ": something went wrong, please try again."
	}
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *conversationService) loadState(ctx context.Context, userID int64) (models.ConversationState, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, transient("get user", err)
	}
	if user == nil {
		return models.StateNone{}, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}
	return user.ConversationState(), nil
}

func (s *conversationService) setState(ctx context.Context, userID int64, state models.ConversationState) error {
	tag, param := models.EncodeState(state)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return transient("begin transaction", err)
	}
	defer uow.Rollback()

	ok, err := uow.UserRepository().SetState(ctx, userID, tag, param)
	if err != nil {
		return transient("set conversation state", err)
	}
	if !ok {
		return ErrNotFound
	}

	if err := uow.Commit(); err != nil {
		return transient("commit transaction", err)
	}
	return nil
}

// FormatGateList renders requirements as an admin-facing list
func FormatGateList(gates []*models.GateRequirement) string {
	var b strings.Builder
	b.WriteString("Active force groups:")
	for _, g := range gates {
		fmt.Fprintf(&b, "\n%d. server %s", g.ID, g.ChatID)
		if g.HasInviteLink() {
			fmt.Fprintf(&b, " (%s)", *g.InviteLink)
		}
	}
	return b.String()
}
