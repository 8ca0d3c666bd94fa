package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the task server's instruments.
type Metrics struct {
	TasksProcessed metric.Int64Counter
	TaskDuration   metric.Float64Histogram
	StreamEvents   metric.Int64Counter
	ActiveStreams  metric.Int64UpDownCounter
	PushFailures   metric.Int64Counter
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TasksProcessed, err = meter.Int64Counter("a2a.tasks.processed",
		metric.WithDescription("Task runs finished, by resulting state"),
	)
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("a2a.task.duration",
		metric.WithDescription("Task run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.StreamEvents, err = meter.Int64Counter("a2a.stream.events",
		metric.WithDescription("Events published to task subscribers"),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveStreams, err = meter.Int64UpDownCounter("a2a.streams.active",
		metric.WithDescription("Number of open subscriber streams"),
	)
	if err != nil {
		return nil, err
	}

	m.PushFailures, err = meter.Int64Counter("a2a.push.failures",
		metric.WithDescription("Push notifications that could not be delivered"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Noop returns instruments that record nothing.
func Noop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("a2a"))
	return m
}

func (m *Metrics) RecordTask(ctx context.Context, state string, started time.Time) {
	attrs := metric.WithAttributes(attribute.String("state", state))

	m.TasksProcessed.Add(ctx, 1, attrs)
	m.TaskDuration.Record(ctx, time.Since(started).Seconds(), attrs)
}

func (m *Metrics) RecordEvent(ctx context.Context, kind string) {
	m.StreamEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) StreamOpened(ctx context.Context) {
	m.ActiveStreams.Add(ctx, 1)
}

func (m *Metrics) StreamClosed(ctx context.Context) {
	m.ActiveStreams.Add(ctx, -1)
}

func (m *Metrics) RecordPushFailure(ctx context.Context, reason string) {
	m.PushFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
