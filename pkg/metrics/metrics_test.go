package metrics

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	var rm metricdata.ResourceMetrics
	So(reader.Collect(context.Background(), &rm), ShouldBeNil)

	out := map[string]metricdata.Metrics{}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func TestMetrics(t *testing.T) {
	Convey("Given metrics on a manual reader", t, func() {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		m, err := NewMetrics(provider.Meter("test"))
		So(err, ShouldBeNil)

		ctx := context.Background()

		Convey("When a task and its events are recorded", func() {
			m.RecordTask(ctx, "completed", time.Now().Add(-time.Second))
			m.RecordEvent(ctx, "status")
			m.RecordEvent(ctx, "artifact")
			m.StreamOpened(ctx)
			m.StreamOpened(ctx)
			m.StreamClosed(ctx)
			m.RecordPushFailure(ctx, "status")

			Convey("Then the instruments hold the readings", func() {
				got := collect(reader)

				processed := got["a2a.tasks.processed"].Data.(metricdata.Sum[int64])
				So(processed.DataPoints[0].Value, ShouldEqual, 1)

				events := got["a2a.stream.events"].Data.(metricdata.Sum[int64])
				So(len(events.DataPoints), ShouldEqual, 2)

				active := got["a2a.streams.active"].Data.(metricdata.Sum[int64])
				So(active.DataPoints[0].Value, ShouldEqual, 1)

				duration := got["a2a.task.duration"].Data.(metricdata.Histogram[float64])
				So(duration.DataPoints[0].Count, ShouldEqual, 1)

				failures := got["a2a.push.failures"].Data.(metricdata.Sum[int64])
				So(failures.DataPoints[0].Value, ShouldEqual, 1)
			})
		})
	})
}

func TestNoopAndSetup(t *testing.T) {
	Convey("Given disabled telemetry", t, func() {
		meter, shutdown, err := Setup(false, 0)
		So(err, ShouldBeNil)
		So(meter, ShouldNotBeNil)
		So(shutdown(context.Background()), ShouldBeNil)

		Convey("Noop metrics accept readings", func() {
			m := Noop()
			So(func() { m.RecordTask(context.Background(), "failed", time.Now()) }, ShouldNotPanic)
		})
	})
}
