package database

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/stores"
	"github.com/theapemachine/a2a-server/pkg/stores/storetest"
)

func newTestStore(t *testing.T) *Store {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)

	return store
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) stores.TaskStore {
		return newTestStore(t)
	})
}

func TestStoreColumns(t *testing.T) {
	Convey("Given a database store", t, func() {
		store := newTestStore(t)
		ctx := context.Background()

		Convey("When a task is stored twice", func() {
			task := a2a.NewTask("task-1", "sess-1", *a2a.NewTextMessage(a2a.RoleUser, "hi"), nil)
			So(store.Store(ctx, task), ShouldBeNil)
			task.ToStatus(a2a.TaskStateCompleted, nil)
			So(store.Store(ctx, task), ShouldBeNil)

			Convey("Then one row carries the latest state", func() {
				var records []TaskRecord
				So(store.db.Find(&records).Error, ShouldBeNil)
				So(len(records), ShouldEqual, 1)
				So(records[0].State, ShouldEqual, string(a2a.TaskStateCompleted))
				So(records[0].SessionID, ShouldEqual, "sess-1")
			})
		})
	})
}
