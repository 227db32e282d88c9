package observability

// Metric name prefixes
const (
	MetricPrefix = "rewarder"
)

// Metric names
const (
	RedemptionsTotal  = MetricPrefix + ".redemptions_total"
	GateChecksTotal   = MetricPrefix + ".gate.checks_total"
	CouponsAddedTotal = MetricPrefix + ".coupons.added_total"
	ReferralsTotal    = MetricPrefix + ".referrals_total"

	// Transport metrics
	InboundEventsTotal = MetricPrefix + ".inbound.events_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelKind         = "kind"
	LabelOutcome      = "outcome"
	LabelDenomination = "denomination"
	LabelEventType    = "event_type"
	LabelResult       = "result"
)

// Coupon insert results
const (
	ResultInserted = "inserted"
	ResultSkipped  = "skipped"
)
