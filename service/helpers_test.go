package service

import (
	"github.com/stretchr/testify/mock"
)

// testUoW bundles a mock unit of work with its repositories
type testUoW struct {
	factory     *MockUnitOfWorkFactory
	uow         *MockUnitOfWork
	users       *MockUserRepository
	coupons     *MockCouponRepository
	costs       *MockRedemptionCostRepository
	redemptions *MockRedemptionRepository
	gates       *MockGateRequirementRepository
	bus         *MockEventPublisher
}

// newTestUoW returns a factory that hands out the same mock unit of work on every Create.
// Rollback is always allowed since services defer it.
func newTestUoW() *testUoW {
	t := &testUoW{
		factory:     new(MockUnitOfWorkFactory),
		uow:         new(MockUnitOfWork),
		users:       new(MockUserRepository),
		coupons:     new(MockCouponRepository),
		costs:       new(MockRedemptionCostRepository),
		redemptions: new(MockRedemptionRepository),
		gates:       new(MockGateRequirementRepository),
		bus:         new(MockEventPublisher),
	}
	t.uow.SetRepositories(t.users, t.coupons, t.costs, t.redemptions, t.gates, t.bus)
	t.factory.On("Create").Return(t.uow)
	t.uow.On("Begin", mock.Anything).Return(nil)
	t.uow.On("Rollback").Return(nil)
	t.bus.On("Publish", mock.Anything).Return()
	return t
}

func (t *testUoW) expectCommit() {
	t.uow.On("Commit").Return(nil)
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }
