package service

import (
	"rewarder/events"
	"rewarder/models"
)

// publishBalanceChange queues a balance change for delivery after the unit of work commits.
// Every ledger mutation goes through here.
func publishBalanceChange(uow UnitOfWork, before, after *models.User, reason events.BalanceReason) {
	if before == nil || after == nil || before.Points == after.Points {
		return
	}
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:     after.ID,
		OldBalance: before.Points,
		NewBalance: after.Points,
		Reason:     reason,
	})
}

// balanceBefore reconstructs the pre-update view of a user from a returned row and the applied delta
func balanceBefore(after *models.User, delta int64) *models.User {
	before := *after
	before.Points = after.Points - delta
	return &before
}

// MetricsRecorder receives domain outcomes for instrumentation
type MetricsRecorder interface {
	RecordRedemption(denomination int, outcome string)
	RecordGateCheck(outcome string)
	RecordCouponsAdded(denomination int, inserted, skipped int)
	RecordReferral(credited bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordRedemption(int, string)     {}
func (noopMetrics) RecordGateCheck(string)           {}
func (noopMetrics) RecordCouponsAdded(int, int, int) {}
func (noopMetrics) RecordReferral(bool)              {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
