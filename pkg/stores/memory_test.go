package stores_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/stores"
	"github.com/theapemachine/a2a-server/pkg/stores/storetest"
)

func TestInMemoryTaskStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) stores.TaskStore {
		return stores.NewInMemoryTaskStore()
	})
}

func TestInMemoryTaskStore(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		store := stores.NewInMemoryTaskStore()

		Convey("When storing a task without an id", func() {
			err := store.Store(context.Background(), &a2a.Task{})

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the caller mutates a task after storing it", func() {
			task := a2a.NewTask("task-1", "", *a2a.NewTextMessage(a2a.RoleUser, "hi"), nil)
			So(store.Store(context.Background(), task), ShouldBeNil)
			task.ToStatus(a2a.TaskStateFailed, nil)

			Convey("Then the stored copy is unaffected", func() {
				got, err := store.Fetch(context.Background(), "task-1")
				So(err, ShouldBeNil)
				So(got.Status.State, ShouldEqual, a2a.TaskStateSubmitted)
			})
		})
	})
}
