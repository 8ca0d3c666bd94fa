package sse

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type event struct {
	seq   int
	final bool
}

func isFinal(e event) bool { return e.final }

func drain(sub *Subscription[event]) []int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var out []int

	for {
		e, ok := sub.Next(ctx)
		if !ok {
			return out
		}
		out = append(out, e.seq)
	}
}

func TestRegistryFanOut(t *testing.T) {
	Convey("Given a registry with two subscribers on one task", t, func() {
		registry := NewRegistry(isFinal)
		first := registry.Subscribe("task-1")
		second := registry.Subscribe("task-1")
		other := registry.Subscribe("task-2")

		Convey("When events are published up to a final event", func() {
			So(registry.Publish("task-1", event{seq: 1}), ShouldEqual, 2)
			So(registry.Publish("task-1", event{seq: 2}), ShouldEqual, 2)
			So(registry.Publish("task-1", event{seq: 3, final: true}), ShouldEqual, 2)

			Convey("Then every subscriber sees them in order and ends", func() {
				So(drain(first), ShouldResemble, []int{1, 2, 3})
				So(drain(second), ShouldResemble, []int{1, 2, 3})
			})

			Convey("Then events after the final one are not accepted", func() {
				So(registry.Publish("task-1", event{seq: 4}), ShouldEqual, 0)
			})

			Convey("Then other tasks are untouched", func() {
				registry.Publish("task-2", event{seq: 9, final: true})
				So(drain(other), ShouldResemble, []int{9})
			})
		})

		Convey("When a subscriber unsubscribes", func() {
			registry.Unsubscribe(first)
			registry.Unsubscribe(first)

			Convey("Then it stops receiving and the rest continue", func() {
				So(registry.Len("task-1"), ShouldEqual, 1)
				So(registry.Publish("task-1", event{seq: 1, final: true}), ShouldEqual, 1)
				So(drain(second), ShouldResemble, []int{1})
				So(drain(first), ShouldBeEmpty)
			})
		})

		Convey("When the last subscriber leaves", func() {
			registry.Unsubscribe(first)
			registry.Unsubscribe(second)

			Convey("Then the topic is gone and a new subscription recreates it", func() {
				So(registry.Len("task-1"), ShouldEqual, 0)
				So(registry.Publish("task-1", event{seq: 1}), ShouldEqual, 0)

				again := registry.Subscribe("task-1")
				So(registry.Publish("task-1", event{seq: 2, final: true}), ShouldEqual, 1)
				So(drain(again), ShouldResemble, []int{2})
			})
		})
	})
}

func TestRegistryWithoutPriorSubscription(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		registry := NewRegistry(isFinal)

		Convey("Publishing to an unknown task is a no-op", func() {
			So(registry.Publish("nobody", event{seq: 1}), ShouldEqual, 0)
		})

		Convey("Next honours context cancellation", func() {
			sub := registry.Subscribe("task-1")
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, ok := sub.Next(ctx)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestRegistryBoundedPolicy(t *testing.T) {
	Convey("Given a registry bounded to two pending events", t, func() {
		registry := NewRegistry(isFinal, WithMaxPending[event](2))
		slow := registry.Subscribe("task-1")
		fast := registry.Subscribe("task-1")

		Convey("When the fast subscriber keeps up and the slow one does not", func() {
			var fastSeen []int

			for i := 1; i <= 4; i++ {
				registry.Publish("task-1", event{seq: i})

				e, ok := fast.Next(context.Background())
				So(ok, ShouldBeTrue)
				fastSeen = append(fastSeen, e.seq)
			}

			Convey("Then only the slow subscriber is disconnected", func() {
				So(slow.Overflowed(), ShouldBeTrue)
				So(drain(slow), ShouldResemble, []int{1, 2})
				So(fast.Overflowed(), ShouldBeFalse)
				So(fastSeen, ShouldResemble, []int{1, 2, 3, 4})
			})
		})
	})

	Convey("Given an unbounded registry", t, func() {
		registry := NewRegistry(isFinal)
		sub := registry.Subscribe("task-1")

		Convey("A stalled subscriber buffers everything", func() {
			for i := 1; i <= 1000; i++ {
				registry.Publish("task-1", event{seq: i})
			}
			registry.Publish("task-1", event{seq: 1001, final: true})

			So(sub.Overflowed(), ShouldBeFalse)
			So(len(drain(sub)), ShouldEqual, 1001)
		})
	})
}

func TestRegistryConcurrency(t *testing.T) {
	registry := NewRegistry(isFinal)

	var wg sync.WaitGroup

	for task := range 8 {
		taskID := fmt.Sprintf("task-%d", task)

		for range 4 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				sub := registry.Subscribe(taskID)
				defer registry.Unsubscribe(sub)

				registry.Publish(taskID, event{seq: 1})
				_, _ = sub.Next(context.Background())
			}()
		}
	}

	wg.Wait()

	for task := range 8 {
		if n := registry.Len(fmt.Sprintf("task-%d", task)); n != 0 {
			t.Fatalf("task-%d still has %d subscriptions", task, n)
		}
	}
}

func TestRegistryReleasesClosedSubscriptions(t *testing.T) {
	Convey("Given subscriptions that are never read", t, func() {
		registry := NewRegistry(isFinal, WithMaxPending[event](2))
		idle := registry.Subscribe("task-1")
		stalled := registry.Subscribe("task-2")

		Convey("When a terminal event reaches the idle one", func() {
			registry.Publish("task-1", event{seq: 1})
			So(registry.Publish("task-1", event{seq: 2, final: true}), ShouldEqual, 1)

			Convey("Then its topic is dropped but the events stay readable", func() {
				So(registry.Len("task-1"), ShouldEqual, 0)
				So(drain(idle), ShouldResemble, []int{1, 2})
				registry.Unsubscribe(idle)
				So(registry.Len("task-1"), ShouldEqual, 0)
			})
		})

		Convey("When the stalled one overflows", func() {
			for i := 1; i <= 3; i++ {
				registry.Publish("task-2", event{seq: i})
			}

			Convey("Then it is removed from its topic", func() {
				So(registry.Len("task-2"), ShouldEqual, 0)
				So(stalled.Overflowed(), ShouldBeTrue)
				So(drain(stalled), ShouldResemble, []int{1, 2})
			})
		})
	})
}
