package service

import (
	"context"
	"errors"
	"fmt"

	"rewarder/events"
	"rewarder/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	metrics    MetricsRecorder
	newToken   func() string
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, metrics MetricsRecorder) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		metrics:    metricsOrNoop(metrics),
		newToken:   uuid.NewString,
	}
}

// GetUser returns ErrNotFound when the user has never been seen
func (s *ledgerService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
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
		return nil, ErrNotFound
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}
	return user, nil
}

// GetOrCreateUser records a sighting of the user.
// New users start with zero points; existing users only have their handle refreshed.
func (s *ledgerService) GetOrCreateUser(ctx context.Context, userID int64, handle string) (*models.User, bool, error) {
	var handlePtr *string
	if handle != "" {
		handlePtr = &handle
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, transient("begin transaction", err)
	}
	defer uow.Rollback()

	user, created, err := uow.UserRepository().Upsert(ctx, userID, handlePtr)
	if err != nil {
		return nil, false, transient("upsert user", err)
	}

	if created {
		uow.EventBus().Publish(events.UserCreatedEvent{UserID: userID, Handle: handle})
	}

	if err := uow.Commit(); err != nil {
		return nil, false, transient("commit transaction", err)
	}

	if created {
		log.WithFields(log.Fields{
			"userID": userID,
			"handle": handle,
		}).Info("Created new user")
	}

	return user, created, nil
}

// CreditPoints applies a signed delta, refusing any change that would make the balance negative
func (s *ledgerService) CreditPoints(ctx context.Context, userID int64, delta int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	users := uow.UserRepository()
	after, err := users.AddPoints(ctx, userID, delta)
	if err != nil {
		return nil, transient("credit points", err)
	}
	if after == nil {
		existing, err := users.GetByID(ctx, userID)
		if err != nil {
			return nil, transient("get user", err)
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: have %d, change %d", ErrInsufficientBalance, existing.Points, delta)
	}

	publishBalanceChange(uow, balanceBefore(after, delta), after, events.BalanceReasonAdjustment)

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}

	return after, nil
}

// ApplyReferral records referrerID as the user's referrer and pays the referrer once.
// Replays, self-referrals and unknown referrers return false without error.
func (s *ledgerService) ApplyReferral(ctx context.Context, userID int64, referrerID int64) (bool, error) {
	if userID == referrerID {
		s.metrics.RecordReferral(false)
		return false, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, transient("begin transaction", err)
	}
	defer uow.Rollback()

	users := uow.UserRepository()
	set, err := users.SetReferrer(ctx, userID, referrerID)
	if err != nil {
		return false, transient("set referrer", err)
	}
	if !set {
		s.metrics.RecordReferral(false)
		return false, nil
	}

	referrer, err := users.RecordReferral(ctx, referrerID, models.ReferralReward)
	if err != nil {
		return false, transient("credit referrer", err)
	}
	if referrer == nil {
		// SetReferrer checked existence in the same transaction
		return false, transient("credit referrer", errors.New("referrer vanished"))
	}

	publishBalanceChange(uow, balanceBefore(referrer, models.ReferralReward), referrer, events.BalanceReasonReferral)
	uow.EventBus().Publish(events.ReferralCreditedEvent{
		UserID:     userID,
		ReferrerID: referrerID,
		Reward:     models.ReferralReward,
	})

	if err := uow.Commit(); err != nil {
		return false, transient("commit transaction", err)
	}

	s.metrics.RecordReferral(true)
	log.WithFields(log.Fields{
		"userID":     userID,
		"referrerID": referrerID,
		"referrals":  referrer.Referrals,
	}).Info("Credited referral")

	return true, nil
}

// MarkVerified sets the verified flag; it never goes back to false
func (s *ledgerService) MarkVerified(ctx context.Context, userID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return transient("begin transaction", err)
	}
	defer uow.Rollback()

	user, changed, err := uow.UserRepository().SetVerified(ctx, userID)
	if err != nil {
		return transient("set verified", err)
	}
	if user == nil {
		return ErrNotFound
	}
	if changed {
		uow.EventBus().Publish(events.UserVerifiedEvent{UserID: userID})
	}

	if err := uow.Commit(); err != nil {
		return transient("commit transaction", err)
	}
	return nil
}

// SetConversationState persists the user's conversation state
func (s *ledgerService) SetConversationState(ctx context.Context, userID int64, state models.ConversationState) error {
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

// VerificationToken returns the user's token, generating one on first request.
// An existing token is returned unchanged.
func (s *ledgerService) VerificationToken(ctx context.Context, userID int64) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", transient("begin transaction", err)
	}
	defer uow.Rollback()

	token, err := uow.UserRepository().EnsureVerifyToken(ctx, userID, s.newToken())
	if err != nil {
		return "", transient("ensure verification token", err)
	}
	if token == "" {
		return "", ErrNotFound
	}

	if err := uow.Commit(); err != nil {
		return "", transient("commit transaction", err)
	}
	return token, nil
}

// CompleteVerification verifies the owner of token.
// It returns false for an unknown token and true on success, including repeats.
func (s *ledgerService) CompleteVerification(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, transient("begin transaction", err)
	}
	defer uow.Rollback()

	user, changed, err := uow.UserRepository().VerifyByToken(ctx, token)
	if err != nil {
		return false, transient("verify by token", err)
	}
	if user == nil {
		return false, nil
	}
	if changed {
		uow.EventBus().Publish(events.UserVerifiedEvent{UserID: user.ID})
	}

	if err := uow.Commit(); err != nil {
		return false, transient("commit transaction", err)
	}

	if changed {
		log.WithField("userID", user.ID).Info("User completed verification")
	}
	return true, nil
}
