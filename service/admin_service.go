package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rewarder/database"
	"rewarder/events"
	"rewarder/models"

	log "github.com/sirupsen/logrus"
)

const activeGateIndex = "gate_requirements_active_chat_id_idx"

// AdminSet is the set of user ids allowed to manage the pool
type AdminSet map[int64]struct{}

// NewAdminSet builds an AdminSet from a list of ids
func NewAdminSet(ids []int64) AdminSet {
	set := make(AdminSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is an admin
func (a AdminSet) Contains(id int64) bool {
	_, ok := a[id]
	return ok
}

// IDs returns the admin ids in ascending order
func (a AdminSet) IDs() []int64 {
	ids := make([]int64, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type adminService struct {
	uowFactory UnitOfWorkFactory
	admins     AdminSet
	metrics    MetricsRecorder
}

// NewAdminService creates the pool administration service
func NewAdminService(uowFactory UnitOfWorkFactory, admins AdminSet, metrics MetricsRecorder) AdminService {
	return &adminService{
		uowFactory: uowFactory,
		admins:     admins,
		metrics:    metricsOrNoop(metrics),
	}
}

func (s *adminService) IsAdmin(userID int64) bool {
	return s.admins.Contains(userID)
}

func (s *adminService) AdminIDs() []int64 {
	return s.admins.IDs()
}

func (s *adminService) authorize(userID int64) error {
	if !s.admins.Contains(userID) {
		log.WithField("userID", userID).Warn("Rejected admin operation from non-admin")
		return ErrForbidden
	}
	return nil
}

// AddCoupons stocks codes of a denomination.
// Duplicates in the submission and codes already stored are reported as skipped.
func (s *adminService) AddCoupons(ctx context.Context, adminID int64, denomination int, codes []string) (*models.BulkInsertResult, error) {
	if err := s.authorize(adminID); err != nil {
		return nil, err
	}
	if !models.IsValidDenomination(denomination) {
		return nil, fmt.Errorf("%w: denomination %d", ErrInvalidInput, denomination)
	}

	unique := models.NormalizeCodes(codes)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no codes submitted", ErrInvalidInput)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	inserted, err := uow.CouponRepository().BulkInsert(ctx, denomination, unique)
	if err != nil {
		return nil, transient("insert codes", err)
	}

	submitted := 0
	for _, c := range codes {
		if strings.TrimSpace(c) != "" {
			submitted++
		}
	}
	result := &models.BulkInsertResult{
		Denomination: denomination,
		Submitted:    submitted,
		Inserted:     inserted,
		Skipped:      submitted - inserted,
	}

	uow.EventBus().Publish(events.CouponsAddedEvent{
		AdminID:      adminID,
		Denomination: denomination,
		Inserted:     result.Inserted,
		Skipped:      result.Skipped,
	})

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}

	s.metrics.RecordCouponsAdded(denomination, result.Inserted, result.Skipped)
	log.WithFields(log.Fields{
		"adminID":      adminID,
		"denomination": denomination,
		"inserted":     result.Inserted,
		"skipped":      result.Skipped,
	}).Info("Added coupons to pool")

	return result, nil
}

// SetCost changes the point price of a denomination
func (s *adminService) SetCost(ctx context.Context, adminID int64, denomination int, points int64) (*models.RedemptionCost, error) {
	if err := s.authorize(adminID); err != nil {
		return nil, err
	}
	if !models.IsValidDenomination(denomination) {
		return nil, fmt.Errorf("%w: denomination %d", ErrInvalidInput, denomination)
	}
	if points <= 0 {
		return nil, fmt.Errorf("%w: cost must be positive", ErrInvalidInput)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	cost, err := uow.RedemptionCostRepository().Set(ctx, denomination, points)
	if err != nil {
		return nil, transient("set cost", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"adminID":      adminID,
		"denomination": denomination,
		"points":       points,
	}).Info("Changed redemption cost")

	return cost, nil
}

// AddGateRequirement starts requiring membership of chatID
func (s *adminService) AddGateRequirement(ctx context.Context, adminID int64, chatID string, inviteLink *string) (*models.GateRequirement, error) {
	if err := s.authorize(adminID); err != nil {
		return nil, err
	}
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", ErrInvalidInput)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	gate, err := uow.GateRequirementRepository().Create(ctx, chatID, inviteLink)
	if database.IsUniqueViolation(err, activeGateIndex) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateGate, chatID)
	}
	if err != nil {
		return nil, transient("create gate requirement", err)
	}

	uow.EventBus().Publish(events.GateRequirementChangedEvent{
		RequirementID: gate.ID,
		ChatID:        gate.ChatID,
		Active:        true,
	})

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"adminID":       adminID,
		"requirementID": gate.ID,
		"chatID":        chatID,
	}).Info("Added gate requirement")

	return gate, nil
}

// DeactivateGateRequirement stops requiring a group; the row is kept
func (s *adminService) DeactivateGateRequirement(ctx context.Context, adminID int64, requirementID int64) (*models.GateRequirement, error) {
	if err := s.authorize(adminID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	gate, err := uow.GateRequirementRepository().Deactivate(ctx, requirementID)
	if err != nil {
		return nil, transient("deactivate gate requirement", err)
	}
	if gate == nil {
		return nil, fmt.Errorf("%w: requirement %d", ErrNotFound, requirementID)
	}

	uow.EventBus().Publish(events.GateRequirementChangedEvent{
		RequirementID: gate.ID,
		ChatID:        gate.ChatID,
		Active:        false,
	})

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"adminID":       adminID,
		"requirementID": requirementID,
	}).Info("Deactivated gate requirement")

	return gate, nil
}

// ListGateRequirements returns the active requirements
func (s *adminService) ListGateRequirements(ctx context.Context, adminID int64) ([]*models.GateRequirement, error) {
	if err := s.authorize(adminID); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	gates, err := uow.GateRequirementRepository().GetActive(ctx)
	if err != nil {
		return nil, transient("list gate requirements", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}
	return gates, nil
}

// Stock returns unused counts and costs for every denomination, zero-filled
func (s *adminService) Stock(ctx context.Context, adminID int64) ([]models.StockLevel, error) {
	if err := s.authorize(adminID); err != nil {
		return nil, err
	}
	return s.stock(ctx)
}

func (s *adminService) stock(ctx context.Context) ([]models.StockLevel, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	counts, err := uow.CouponRepository().CountUnusedByDenomination(ctx)
	if err != nil {
		return nil, transient("count stock", err)
	}
	costs, err := uow.RedemptionCostRepository().GetAll(ctx)
	if err != nil {
		return nil, transient("list costs", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}

	costByDenomination := make(map[int]int64, len(costs))
	for _, c := range costs {
		costByDenomination[c.Denomination] = c.Points
	}

	levels := make([]models.StockLevel, 0, len(models.Denominations))
	for _, d := range models.Denominations {
		level := models.StockLevel{Denomination: d, Unused: counts[d]}
		if points, ok := costByDenomination[d]; ok {
			level.Cost = &points
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// Catalog returns the same view as Stock for the user-facing withdraw menu
func (s *adminService) Catalog(ctx context.Context) ([]models.StockLevel, error) {
	return s.stock(ctx)
}

// Costs returns the configured prices; any user may read them
func (s *adminService) Costs(ctx context.Context) ([]*models.RedemptionCost, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transient("begin transaction", err)
	}
	defer uow.Rollback()

	costs, err := uow.RedemptionCostRepository().GetAll(ctx)
	if err != nil {
		return nil, transient("list costs", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, transient("commit transaction", err)
	}
	return costs, nil
}
