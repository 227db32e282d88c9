package infrastructure

import (
	"fmt"

	"rewarder/events"
)

// SubjectPrefix namespaces every subject the bot publishes
const SubjectPrefix = "rewards"

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChange:    SubjectPrefix + ".users.balance_changed",
	events.EventTypeUserCreated:      SubjectPrefix + ".users.created",
	events.EventTypeUserVerified:     SubjectPrefix + ".users.verified",
	events.EventTypeReferralCredited: SubjectPrefix + ".referrals.credited",
	events.EventTypeCouponRedeemed:   SubjectPrefix + ".coupons.redeemed",
	events.EventTypeCouponsAdded:     SubjectPrefix + ".coupons.added",
	events.EventTypeGateRequirement:  SubjectPrefix + ".gates.changed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("%s.unknown.%s", SubjectPrefix, event.Type())
}

// EventTypes returns every event type that has a subject
func (m *EventSubjectMapper) EventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(eventSubjects))
	for eventType := range eventSubjects {
		types = append(types, eventType)
	}
	return types
}

// StreamSubjects returns the subject filter for the events stream
func (m *EventSubjectMapper) StreamSubjects() []string {
	return []string{SubjectPrefix + ".>"}
}
