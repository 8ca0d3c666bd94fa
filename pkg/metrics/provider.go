package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

/*
Setup returns a meter and its shutdown function. When disabled the meter is
a noop; otherwise readings are exported to stdout every interval.
*/
func Setup(enabled bool, interval time.Duration) (metric.Meter, func(context.Context) error, error) {
	if !enabled {
		return noop.NewMeterProvider().Meter("a2a"), func(context.Context) error { return nil }, nil
	}

	exporter, err := stdoutmetric.New()

	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	if interval <= 0 {
		interval = time.Minute
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)

	return provider.Meter("a2a"), provider.Shutdown, nil
}
