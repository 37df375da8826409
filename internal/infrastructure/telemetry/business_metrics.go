package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics tracks purchase order workflow activity: how runs end,
// how long they take and whether notifications get through.
type BusinessMetrics struct {
	processingOutcomes       *Counter
	processingDuration       *Histogram
	reconciliationMismatches *Counter
	notificationFailures     *Counter
}

// NewBusinessMetrics creates a new BusinessMetrics instance on the meter.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	outcomes, err := NewCounter(meter,
		"po_processing_outcomes_total",
		"Purchase order processing runs by resulting status",
		"{run}")
	if err != nil {
		return nil, err
	}

	duration, err := NewHistogram(meter,
		"po_processing_duration_seconds",
		"Wall time of purchase order processing runs",
		"s")
	if err != nil {
		return nil, err
	}

	mismatches, err := NewCounter(meter,
		"po_reconciliation_mismatches_total",
		"Reconciliation mismatches against the ledger, by severity",
		"{mismatch}")
	if err != nil {
		return nil, err
	}

	notifFailures, err := NewCounter(meter,
		"po_notification_failures_total",
		"Notification deliveries that failed, by kind",
		"{notification}")
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		processingOutcomes:       outcomes,
		processingDuration:       duration,
		reconciliationMismatches: mismatches,
		notificationFailures:     notifFailures,
	}, nil
}

// RecordProcessingOutcome counts a finished run by the status it produced
func (m *BusinessMetrics) RecordProcessingOutcome(ctx context.Context, status string) {
	m.processingOutcomes.Inc(ctx, attribute.String("status", status))
}

// RecordProcessingDuration records how long a processing run took
func (m *BusinessMetrics) RecordProcessingDuration(ctx context.Context, d time.Duration, status string) {
	m.processingDuration.RecordDuration(ctx, d, attribute.String("status", status))
}

// RecordReconciliationMismatch counts a single ledger mismatch by severity
func (m *BusinessMetrics) RecordReconciliationMismatch(ctx context.Context, severity string) {
	m.reconciliationMismatches.Inc(ctx, attribute.String("severity", severity))
}

// RecordNotificationFailure counts a failed notification delivery
func (m *BusinessMetrics) RecordNotificationFailure(ctx context.Context, kind string) {
	m.notificationFailures.Inc(ctx, attribute.String("kind", kind))
}
