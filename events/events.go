package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange    EventType = "balance_change"
	EventTypeUserCreated      EventType = "user_created"
	EventTypeReferralCredited EventType = "referral_credited"
	EventTypeCouponRedeemed   EventType = "coupon_redeemed"
	EventTypeCouponsAdded     EventType = "coupons_added"
	EventTypeUserVerified     EventType = "user_verified"
	EventTypeGateRequirement  EventType = "gate_requirement_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceReason describes why a balance moved
type BalanceReason string

const (
	BalanceReasonReferral   BalanceReason = "referral"
	BalanceReasonRedemption BalanceReason = "redemption"
	BalanceReasonAdjustment BalanceReason = "adjustment"
)

// BalanceChangeEvent represents a committed change to a user's points
type BalanceChangeEvent struct {
	UserID     int64         `json:"user_id"`
	OldBalance int64         `json:"old_balance"`
	NewBalance int64         `json:"new_balance"`
	Reason     BalanceReason `json:"reason"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// ChangeAmount returns the signed delta of the change
func (e BalanceChangeEvent) ChangeAmount() int64 {
	return e.NewBalance - e.OldBalance
}

// UserCreatedEvent represents the first sighting of a user
type UserCreatedEvent struct {
	UserID int64  `json:"user_id"`
	Handle string `json:"handle"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// ReferralCreditedEvent is emitted once per referred user when the referrer is paid
type ReferralCreditedEvent struct {
	UserID     int64 `json:"user_id"`
	ReferrerID int64 `json:"referrer_id"`
	Reward     int64 `json:"reward"`
}

func (e ReferralCreditedEvent) Type() EventType {
	return EventTypeReferralCredited
}

// CouponRedeemedEvent represents a committed allocation of a code to a user
type CouponRedeemedEvent struct {
	RedemptionID int64  `json:"redemption_id"`
	UserID       int64  `json:"user_id"`
	Handle       string `json:"handle"`
	Denomination int    `json:"denomination"`
	Code         string `json:"-"`
	PointsSpent  int64  `json:"points_spent"`
	BalanceAfter int64  `json:"balance_after"`
}

func (e CouponRedeemedEvent) Type() EventType {
	return EventTypeCouponRedeemed
}

// CouponsAddedEvent represents an admin restocking the pool
type CouponsAddedEvent struct {
	AdminID      int64 `json:"admin_id"`
	Denomination int   `json:"denomination"`
	Inserted     int   `json:"inserted"`
	Skipped      int   `json:"skipped"`
}

func (e CouponsAddedEvent) Type() EventType {
	return EventTypeCouponsAdded
}

// UserVerifiedEvent is emitted when a user's verified flag first flips to true
type UserVerifiedEvent struct {
	UserID int64 `json:"user_id"`
}

func (e UserVerifiedEvent) Type() EventType {
	return EventTypeUserVerified
}

// GateRequirementChangedEvent represents an admin adding or removing a gate
type GateRequirementChangedEvent struct {
	RequirementID int64  `json:"requirement_id"`
	ChatID        string `json:"chat_id"`
	Active        bool   `json:"active"`
}

func (e GateRequirementChangedEvent) Type() EventType {
	return EventTypeGateRequirement
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching.
// Handlers run on their own goroutines; Drain waits for the ones in flight.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
	closed   bool // set by Drain; guarded by mu so inflight.Add never races Wait
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeMany adds the same handler for several event types
func (b *Bus) SubscribeMany(eventTypes []EventType, handler Handler) {
	for _, eventType := range eventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		log.WithField("eventType", event.Type()).Warn("Dropping event emitted after drain")
		return
	}
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.inflight.Add(len(handlers))
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Drain stops the bus from accepting new events and blocks until every
// running handler returns or ctx is done
func (b *Bus) Drain(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
// Flush forwards them to the underlying bus; Discard drops them on rollback.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus wraps real with a pending queue
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish queues an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event on transactional bus")
	b.pending = append(b.pending, e)
}

// Pending returns the events queued so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits queued events in order. Called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing transactional bus")

	// Handlers outlive the request, so they get a context detached from its deadline.
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops queued events. Called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
