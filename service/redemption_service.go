package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewarder/events"
	"rewarder/models"

	log "github.com/sirupsen/logrus"
)

// Redemption outcomes reported to metrics
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient_balance"
	OutcomeExhausted    = "exhausted"
	OutcomeNotFound     = "not_found"
	OutcomeTransient    = "transient"
)

type redemptionService struct {
	uowFactory UnitOfWorkFactory
	timeout    time.Duration
	metrics    MetricsRecorder
}

// NewRedemptionService creates the redemption engine.
// timeout bounds one whole allocation attempt, commit included.
func NewRedemptionService(uowFactory UnitOfWorkFactory, timeout time.Duration, metrics MetricsRecorder) RedemptionService {
	return &redemptionService{
		uowFactory: uowFactory,
		timeout:    timeout,
		metrics:    metricsOrNoop(metrics),
	}
}

// Redeem exchanges points for one unused code of denomination.
// The claim, debit and audit record commit together or not at all.
func (s *redemptionService) Redeem(ctx context.Context, userID int64, denomination int) (*models.Redemption, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	redemption, err := s.redeem(ctx, userID, denomination)
	outcome := redemptionOutcome(err)
	s.metrics.RecordRedemption(denomination, outcome)

	fields := log.Fields{
		"userID":       userID,
		"denomination": denomination,
		"outcome":      outcome,
	}
	switch {
	case err == nil:
		fields["redemptionID"] = redemption.ID
		fields["balanceAfter"] = redemption.BalanceAfter
		log.WithFields(fields).Info("Redeemed coupon")
	case outcome == OutcomeTransient:
		fields["error"] = err
		log.WithFields(fields).Error("Redemption aborted")
	default:
		log.WithFields(fields).Info("Redemption refused")
	}

	return redemption, err
}

func (s *redemptionService) redeem(ctx context.Context, userID int64, denomination int) (*models.Redemption, error) {
	if !models.IsValidDenomination(denomination) {
		return nil, fmt.Errorf("%w: denomination %d is not offered", ErrExhausted, denomination)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	cost, err := uow.RedemptionCostRepository().Get(ctx, denomination)
	if err != nil {
		return nil, transient("get redemption cost", err)
	}
	if cost == nil {
		return nil, fmt.Errorf("%w: denomination %d has no cost", ErrExhausted, denomination)
	}

	users := uow.UserRepository()
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, transient("get user", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if !user.CanAfford(cost.Points) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, user.Points, cost.Points)
	}

	coupon, err := uow.CouponRepository().ClaimNext(ctx, denomination, userID)
	if err != nil {
		return nil, transient("claim code", err)
	}
	if coupon == nil {
		return nil, fmt.Errorf("%w: no unused codes of denomination %d", ErrExhausted, denomination)
	}

	// Conditional debit: a concurrent redemption by the same user may have spent the points
	// since the read above. The claim rolls back with the transaction.
	after, err := users.DeductPoints(ctx, userID, cost.Points)
	if err != nil {
		return nil, transient("debit points", err)
	}
	if after == nil {
		return nil, fmt.Errorf("%w: balance changed during redemption", ErrInsufficientBalance)
	}

	redemption := &models.Redemption{
		UserID:       userID,
		Denomination: denomination,
		Code:         coupon.Code,
		PointsSpent:  cost.Points,
	}
	if err := uow.RedemptionRepository().Create(ctx, redemption); err != nil {
		return nil, transient("record redemption", err)
	}
	redemption.BalanceAfter = after.Points

	handle := ""
	if user.Handle != nil {
		handle = *user.Handle
	}
	uow.EventBus().Publish(events.CouponRedeemedEvent{
		RedemptionID: redemption.ID,
		UserID:       userID,
		Handle:       handle,
		Denomination: denomination,
		Code:         coupon.Code,
		PointsSpent:  cost.Points,
		BalanceAfter: after.Points,
	})
	publishBalanceChange(uow, balanceBefore(after, -cost.Points), after, events.BalanceReasonRedemption)

	if err := uow.Commit(); err != nil {
		return nil, transient("commit redemption", err)
	}

	return redemption, nil
}

// RecentRedemptions returns the latest redemptions, newest first
func (s *redemptionService) RecentRedemptions(ctx context.Context, limit int) ([]*models.Redemption, error) {
	if limit <= 0 {
		limit = 10
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	redemptions, err := uow.RedemptionRepository().GetRecent(ctx, limit)
	if err != nil {
		return nil, transient("list redemptions", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}
	return redemptions, nil
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInsufficientBalance):
		return OutcomeInsufficient
	case errors.Is(err, ErrExhausted):
		return OutcomeExhausted
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeTransient
	}
}
