package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"rewarder/config"
)

// MetricsProvider manages OpenTelemetry metrics for the rewards bot
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	redemptionsCounter           metric.Int64Counter
	gateChecksCounter            metric.Int64Counter
	couponsAddedCounter          metric.Int64Counter
	referralsCounter             metric.Int64Counter
	inboundEventsCounter         metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.start(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized successfully")
	return nil
}

// start builds the meter provider around reader. Callers hold mp.mu.
func (mp *MetricsProvider) start(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter(MetricPrefix)

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.redemptionsCounter, RedemptionsTotal, "Total number of redemption attempts by outcome"},
		{&mp.gateChecksCounter, GateChecksTotal, "Total number of gate evaluations by outcome"},
		{&mp.couponsAddedCounter, CouponsAddedTotal, "Total number of submitted coupon codes by insert result"},
		{&mp.referralsCounter, ReferralsTotal, "Total number of referral attributions"},
		{&mp.inboundEventsCounter, InboundEventsTotal, "Total number of handled inbound messages and actions"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}
	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordRedemption records a redemption attempt
func (mp *MetricsProvider) RecordRedemption(denomination int, outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.redemptionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelDenomination, strconv.Itoa(denomination)),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordGateCheck records a gate evaluation
func (mp *MetricsProvider) RecordGateCheck(outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.gateChecksCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// RecordCouponsAdded records a bulk insert, split by inserted and skipped codes
func (mp *MetricsProvider) RecordCouponsAdded(denomination int, inserted, skipped int) {
	if !mp.isEnabled() {
		return
	}

	denom := attribute.String(LabelDenomination, strconv.Itoa(denomination))
	mp.couponsAddedCounter.Add(context.Background(), int64(inserted),
		metric.WithAttributes(denom, attribute.String(LabelResult, ResultInserted)),
	)
	mp.couponsAddedCounter.Add(context.Background(), int64(skipped),
		metric.WithAttributes(denom, attribute.String(LabelResult, ResultSkipped)),
	)
}

// RecordReferral records a referral attribution
func (mp *MetricsProvider) RecordReferral(credited bool) {
	if !mp.isEnabled() {
		return
	}

	mp.referralsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("credited", credited)),
	)
}

// RecordInbound records a handled inbound message or action
func (mp *MetricsProvider) RecordInbound(kind string, outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.inboundEventsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelKind, kind),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled checks if metrics are enabled and instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
