package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"rewarder/models"
	"rewarder/service"

	log "github.com/sirupsen/logrus"
)

// InboundMessage is a free-form text message from a user
type InboundMessage struct {
	UserID int64
	Handle string
	Text   string
}

// InboundAction is a button press.
// ActionID identifies the press for acknowledgement; Data is the button payload.
type InboundAction struct {
	UserID          int64
	Handle          string
	ActionID        string
	Data            string
	OriginChatID    string
	OriginMessageID string
}

// Config holds the presentation settings of the dispatcher
type Config struct {
	// BaseURL is where the verification page is served, without trailing slash
	BaseURL string
	// RedeemsLogLimit is how many redemptions the admin log shows
	RedeemsLogLimit int
}

// InboundRecorder counts handled inbound events
type InboundRecorder interface {
	RecordInbound(kind string, outcome string)
}

type noopInbound struct{}

func (noopInbound) RecordInbound(string, string) {}

// Dispatcher routes inbound events to the services and renders the result through the notifier.
// It holds no per-user state; everything it needs is loaded per event.
type Dispatcher struct {
	ledger       service.LedgerService
	redemptions  service.RedemptionService
	gate         service.GateService
	conversation service.ConversationService
	admin        service.AdminService
	notifier     service.Notifier
	config       Config
	metrics      InboundRecorder
}

// New creates a dispatcher
func New(
	ledger service.LedgerService,
	redemptions service.RedemptionService,
	gate service.GateService,
	conversation service.ConversationService,
	admin service.AdminService,
	notifier service.Notifier,
	config Config,
	metrics InboundRecorder,
) *Dispatcher {
	if config.RedeemsLogLimit <= 0 {
		config.RedeemsLogLimit = 10
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if metrics == nil {
		metrics = noopInbound{}
	}
	return &Dispatcher{
		ledger:       ledger,
		redemptions:  redemptions,
		gate:         gate,
		conversation: conversation,
		admin:        admin,
		notifier:     notifier,
		config:       config,
		metrics:      metrics,
	}
}

// HandleMessage processes one text message
func (d *Dispatcher) HandleMessage(ctx context.Context, msg InboundMessage) {
	err := d.handleMessage(ctx, msg)
	d.metrics.RecordInbound("message", outcome(err))
	if err != nil {
		log.WithFields(log.Fields{
			"userID": msg.UserID,
			"error":  err,
		}).Error("Failed to handle message")
		d.send(ctx, msg.UserID, errorText(err), backKeyboard())
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg InboundMessage) error {
	user, _, err := d.ledger.GetOrCreateUser(ctx, msg.UserID, msg.Handle)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(msg.Text)
	if arg, ok := startArgument(text); ok {
		return d.handleStart(ctx, user, arg)
	}

	if !models.IsIdle(user.ConversationState()) {
		reply, err := d.conversation.Submit(ctx, user.ID, text)
		if err != nil {
			return err
		}
		if reply != nil {
			d.send(ctx, user.ID, reply.Text, reply.Keyboard)
			return nil
		}
	}

	d.send(ctx, user.ID, mainMenuText(user), d.mainMenu(user.ID))
	return nil
}

// startArgument recognises "/start" and "!start" with an optional argument
func startArgument(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	switch strings.ToLower(fields[0]) {
	case "/start", "!start":
	default:
		return "", false
	}
	if len(fields) > 1 {
		return fields[1], true
	}
	return "", true
}

func (d *Dispatcher) handleStart(ctx context.Context, user *models.User, arg string) error {
	if !models.IsIdle(user.ConversationState()) {
		if err := d.ledger.SetConversationState(ctx, user.ID, models.StateNone{}); err != nil {
			return err
		}
	}

	if referrerID, err := strconv.ParseInt(arg, 10, 64); err == nil && referrerID > 0 {
		credited, err := d.ledger.ApplyReferral(ctx, user.ID, referrerID)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"userID":     user.ID,
			"referrerID": referrerID,
			"credited":   credited,
		}).Debug("Processed start referral")
	}

	d.send(ctx, user.ID, mainMenuText(user), d.mainMenu(user.ID))
	return nil
}

// HandleAction processes one button press.
// Every press is acknowledged exactly once.
func (d *Dispatcher) HandleAction(ctx context.Context, act InboundAction) {
	acked, err := d.handleAction(ctx, act)
	d.metrics.RecordInbound("action", outcome(err))
	if err == nil {
		return
	}

	log.WithFields(log.Fields{
		"userID": act.UserID,
		"action": act.Data,
		"error":  err,
	}).Error("Failed to handle action")

	if !acked {
		d.acknowledge(ctx, act, errorText(err), true)
		return
	}
	d.render(ctx, act, errorText(err), backKeyboard())
}

func (d *Dispatcher) handleAction(ctx context.Context, act InboundAction) (bool, error) {
	user, _, err := d.ledger.GetOrCreateUser(ctx, act.UserID, act.Handle)
	if err != nil {
		return false, err
	}

	if isAdminAction(act.Data) && !d.admin.IsAdmin(user.ID) {
		log.WithFields(log.Fields{
			"userID": user.ID,
			"action": act.Data,
		}).Warn("Non-admin pressed an admin button")
		d.acknowledge(ctx, act, "This menu is for admins only.", true)
		return true, nil
	}

	d.acknowledge(ctx, act, "", false)

	switch act.Data {
	case models.ActionMenuBack:
		d.render(ctx, act, mainMenuText(user), d.mainMenu(user.ID))
		return true, nil
	case models.ActionMenuStats:
		d.render(ctx, act, statsText(user), backKeyboard())
		return true, nil
	case models.ActionMenuReferral:
		d.render(ctx, act, referralText(user), backKeyboard())
		return true, nil
	case models.ActionMenuWithdraw:
		return true, d.showWithdrawMenu(ctx, act)
	case models.ActionGateCheck, models.ActionVerifyCheck:
		return true, d.recheck(ctx, act, user.ID)
	case models.ActionMenuAdmin:
		d.render(ctx, act, "Admin panel", adminKeyboard())
		return true, nil
	}

	if denomination, ok := models.ParseActionParam(act.Data, models.ActionWithdrawPrefix); ok {
		return true, d.withdraw(ctx, act, user.ID, denomination)
	}

	if isAdminAction(act.Data) {
		return true, d.handleAdminAction(ctx, act, user.ID)
	}

	log.WithFields(log.Fields{
		"userID": user.ID,
		"action": act.Data,
	}).Warn("Unknown action")
	d.render(ctx, act, mainMenuText(user), d.mainMenu(user.ID))
	return true, nil
}

func isAdminAction(action string) bool {
	return action == models.ActionMenuAdmin || strings.HasPrefix(action, "admin_")
}

func (d *Dispatcher) acknowledge(ctx context.Context, act InboundAction, text string, urgent bool) {
	if act.ActionID == "" {
		return
	}
	if err := d.notifier.AcknowledgeAction(ctx, act.ActionID, text, urgent); err != nil {
		log.WithFields(log.Fields{
			"userID":   act.UserID,
			"actionID": act.ActionID,
			"error":    err,
		}).Warn("Failed to acknowledge action")
	}
}

// render edits the message the button was on, or sends a new one when that is not possible
func (d *Dispatcher) render(ctx context.Context, act InboundAction, text string, keyboard *models.Keyboard) {
	if act.OriginChatID != "" && act.OriginMessageID != "" {
		err := d.notifier.EditNotification(ctx, act.OriginChatID, act.OriginMessageID, text, keyboard)
		if err == nil {
			return
		}
		log.WithFields(log.Fields{
			"userID":    act.UserID,
			"chatID":    act.OriginChatID,
			"messageID": act.OriginMessageID,
			"error":     err,
		}).Warn("Failed to edit message, sending a new one")
	}
	d.send(ctx, act.UserID, text, keyboard)
}

func (d *Dispatcher) send(ctx context.Context, userID int64, text string, keyboard *models.Keyboard) {
	if err := d.notifier.Notify(ctx, userID, text, keyboard); err != nil {
		log.WithFields(log.Fields{
			"userID": userID,
			"error":  err,
		}).Error("Failed to send message")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case service.IsRetryable(err):
		return "transient"
	default:
		return "error"
	}
}

// errorText maps a failure to the message shown to the user
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientBalance):
		return "You do not have enough points for this coupon."
	case errors.Is(err, service.ErrExhausted):
		return "This coupon is out of stock. Please try again later."
	case errors.Is(err, service.ErrNotFound):
		return "Nothing to do here."
	case errors.Is(err, service.ErrForbidden):
		return "This menu is for admins only."
	case errors.Is(err, service.ErrInvalidInput):
		return "That input was not valid."
	default:
		return "Something went wrong. Please try again."
	}
}
