package repository

import (
	"context"
	"errors"
	"fmt"

	"rewarder/database"
	"rewarder/events"
	"rewarder/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	couponRepo       service.CouponRepository
	costRepo         service.RedemptionCostRepository
	redemptionRepo   service.RedemptionRepository
	gateRepo         service.GateRequirementRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepositoryWithTx(tx)
	u.couponRepo = newCouponRepositoryWithTx(tx)
	u.costRepo = newRedemptionCostRepositoryWithTx(tx)
	u.redemptionRepo = newRedemptionRepositoryWithTx(tx)
	u.gateRepo = newGateRequirementRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes queued events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	// A deadline firing mid-COMMIT could leave the outcome unknown to the caller.
	err := u.tx.Commit(context.WithoutCancel(u.ctx))
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards queued events.
// It is a no-op after Commit, so it is safe to defer.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	// The request context may already be done; rollback still has to reach the server.
	err := u.tx.Rollback(context.WithoutCancel(u.ctx))
	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

func (u *unitOfWork) mustBegin() {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	u.mustBegin()
	return u.userRepo
}

// CouponRepository returns the coupon repository for this unit of work
func (u *unitOfWork) CouponRepository() service.CouponRepository {
	u.mustBegin()
	return u.couponRepo
}

// RedemptionCostRepository returns the cost repository for this unit of work
func (u *unitOfWork) RedemptionCostRepository() service.RedemptionCostRepository {
	u.mustBegin()
	return u.costRepo
}

// RedemptionRepository returns the redemption repository for this unit of work
func (u *unitOfWork) RedemptionRepository() service.RedemptionRepository {
	u.mustBegin()
	return u.redemptionRepo
}

// GateRequirementRepository returns the gate requirement repository for this unit of work
func (u *unitOfWork) GateRequirementRepository() service.GateRequirementRepository {
	u.mustBegin()
	return u.gateRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
