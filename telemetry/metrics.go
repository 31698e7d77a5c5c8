// Package telemetry exports operational counters through OpenTelemetry.
// It is disabled unless SAMADHAN_OTEL is set; when disabled the global
// no-op meter absorbs every call, so services record unconditionally.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

var (
	meter = otel.Meter("samadhan")

	transitionsApplied   metric.Int64Counter
	escalationsPerformed metric.Int64Counter
	notificationsSent    metric.Int64Counter
	notificationsFailed  metric.Int64Counter
	notificationDrops    metric.Int64Counter
	schedulerRuns        metric.Int64Counter
	batchDuration        metric.Float64Histogram
)

func init() {
	transitionsApplied, _ = meter.Int64Counter("samadhan.transitions.applied",
		metric.WithDescription("Complaint status transitions committed"))
	escalationsPerformed, _ = meter.Int64Counter("samadhan.escalations.performed",
		metric.WithDescription("Escalation events recorded"))
	notificationsSent, _ = meter.Int64Counter("samadhan.notifications.sent",
		metric.WithDescription("Notifications persisted and handed to a sender"))
	notificationsFailed, _ = meter.Int64Counter("samadhan.notifications.failed",
		metric.WithDescription("Notifications dropped after retry exhaustion"))
	notificationDrops, _ = meter.Int64Counter("samadhan.notifications.queue_drops",
		metric.WithDescription("Oldest-pending notifications evicted from the full queue"))
	schedulerRuns, _ = meter.Int64Counter("samadhan.scheduler.runs",
		metric.WithDescription("Escalation sweeps started"))
	batchDuration, _ = meter.Float64Histogram("samadhan.scheduler.batch_seconds",
		metric.WithDescription("Escalation sweep duration"),
		metric.WithUnit("s"))
}

// Enabled reports whether metric export is switched on by environment.
func Enabled() bool {
	v := os.Getenv("SAMADHAN_OTEL")
	return v == "1" || v == "true" || v == "yes"
}

// Init installs the metric provider with a periodic stdout exporter. When
// telemetry is disabled it installs nothing and returns a no-op shutdown.
func Init(ctx context.Context) (func(context.Context) error, error) {
	if !Enabled() {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "samadhan"),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(provider)
	log.Printf("[METRICS] OpenTelemetry metric export enabled")

	return provider.Shutdown, nil
}

// RecordTransition counts one committed status transition.
func RecordTransition(ctx context.Context, from, to string) {
	transitionsApplied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordEscalation counts one recorded escalation event.
func RecordEscalation(ctx context.Context, level string) {
	escalationsPerformed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", level),
	))
}

// RecordNotification counts one notification delivery outcome.
func RecordNotification(ctx context.Context, kind string, ok bool) {
	attrs := metric.WithAttributes(attribute.String("type", kind))
	if ok {
		notificationsSent.Add(ctx, 1, attrs)
		return
	}
	notificationsFailed.Add(ctx, 1, attrs)
}

// RecordQueueDrop counts one notification evicted from the full queue.
func RecordQueueDrop(ctx context.Context) {
	notificationDrops.Add(ctx, 1)
}

// RecordSchedulerRun counts one sweep and its duration.
func RecordSchedulerRun(ctx context.Context, d time.Duration) {
	schedulerRuns.Add(ctx, 1)
	batchDuration.Record(ctx, d.Seconds())
}
