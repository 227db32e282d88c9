package service

import (
	"context"
	"fmt"
	"time"

	"rewarder/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLookups caps parallel membership lookups per check
const maxConcurrentLookups = 8

type gateService struct {
	uowFactory    UnitOfWorkFactory
	checker       MembershipChecker
	lookupTimeout time.Duration
	metrics       MetricsRecorder
}

// NewGateService creates the gate evaluator.
// lookupTimeout bounds each membership lookup; a lookup that runs over counts as unmet.
func NewGateService(uowFactory UnitOfWorkFactory, checker MembershipChecker, lookupTimeout time.Duration, metrics MetricsRecorder) GateService {
	return &gateService{
		uowFactory:    uowFactory,
		checker:       checker,
		lookupTimeout: lookupTimeout,
		metrics:       metricsOrNoop(metrics),
	}
}

// MissingRequirements returns the active requirements the user does not currently satisfy.
// Every call queries the membership collaborator afresh. Lookup failures count as unmet.
func (s *gateService) MissingRequirements(ctx context.Context, userID int64) ([]*models.GateRequirement, error) {
	requirements, err := s.activeRequirements(ctx)
	if err != nil {
		return nil, err
	}
	if len(requirements) == 0 {
		return nil, nil
	}

	met := make([]bool, len(requirements))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, req := range requirements {
		g.Go(func() error {
			met[i] = s.satisfies(gctx, req, userID)
			return nil
		})
	}
	// Lookups never return errors; failures are folded into met.
	_ = g.Wait()

	var missing []*models.GateRequirement
	for i, req := range requirements {
		if !met[i] {
			missing = append(missing, req)
		}
	}
	return missing, nil
}

func (s *gateService) satisfies(ctx context.Context, req *models.GateRequirement, userID int64) bool {
	lookupCtx := ctx
	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	status, err := s.checker.GetMembershipStatus(lookupCtx, req.ChatID, userID)
	if err == nil && lookupCtx.Err() != nil {
		err = lookupCtx.Err()
	}
	if err != nil {
		log.WithFields(log.Fields{
			"userID":        userID,
			"requirementID": req.ID,
			"chatID":        req.ChatID,
			"error":         err,
		}).Warn("Membership lookup failed, treating requirement as unmet")
		return false
	}

	return status.SatisfiesGate()
}

func (s *gateService) activeRequirements(ctx context.Context) ([]*models.GateRequirement, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	requirements, err := uow.GateRequirementRepository().GetActive(ctx)
	if err != nil {
		return nil, transient("load gate requirements", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}
	return requirements, nil
}

// Check runs the full pre-redemption gate: memberships first, then verification.
// It returns *GateUnmetError, ErrUnverified, ErrNotFound or a transient error.
func (s *gateService) Check(ctx context.Context, userID int64) error {
	err := s.check(ctx, userID)
	s.metrics.RecordGateCheck(gateOutcome(err))
	return err
}

func (s *gateService) check(ctx context.Context, userID int64) error {
	missing, err := s.MissingRequirements(ctx, userID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &GateUnmetError{Missing: missing}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return transient("begin transaction", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return transient("get user", err)
	}
	if user == nil {
		return ErrNotFound
	}
	if !user.Verified {
		return fmt.Errorf("%w: user %d", ErrUnverified, userID)
	}

	if err := uow.Commit(); err != nil {
		return transient("commit transaction", err)
	}
	return nil
}

func gateOutcome(err error) string {
	switch {
	case err == nil:
		return "passed"
	case isGateUnmet(err):
		return "unmet"
	case isUnverified(err):
		return "unverified"
	default:
		return "error"
	}
}
