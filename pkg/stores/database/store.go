package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/stores"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

/*
TaskRecord is the row layout of a task. The task itself is kept as JSON, with
the state copied into its own column for querying.
*/
type TaskRecord struct {
	ID        string `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	State     string
	Data      []byte
	UpdatedAt time.Time
}

func (TaskRecord) TableName() string { return "tasks" }

type NotificationConfigRecord struct {
	TaskID    string `gorm:"primaryKey"`
	Data      []byte
	UpdatedAt time.Time
}

func (NotificationConfigRecord) TableName() string { return "notification_configs" }

/*
Store is a TaskStore backed by any database gorm supports.
*/
type Store struct {
	db *gorm.DB
}

/*
NewStore migrates the schema on db and returns a store using it.
*/
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&TaskRecord{}, &NotificationConfigRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate task schema: %w", err)
	}

	return &Store{db: db}, nil
}

/*
OpenSQLite opens dsn with the SQLite driver and returns a migrated store.
*/
func OpenSQLite(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()

	if err != nil {
		return nil, err
	}

	// SQLite serialises writers; one connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	return NewStore(db)
}

func (store *Store) Store(ctx context.Context, task *a2a.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("cannot store a task without an id")
	}

	data, err := json.Marshal(task)

	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}

	record := TaskRecord{
		ID:        task.ID,
		SessionID: task.SessionID,
		State:     string(task.Status.State),
		Data:      data,
	}

	if err := store.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}

	return nil
}

func (store *Store) Fetch(ctx context.Context, id string) (*a2a.Task, error) {
	var record TaskRecord

	err := store.db.WithContext(ctx).Where("id = ?", id).First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}

	var task a2a.Task

	if err := json.Unmarshal(record.Data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}

	if task.Status.State == "" {
		task.Status.State = a2a.TaskStateUnknown
	}

	return &task, nil
}

func (store *Store) StoreNotificationConfig(
	ctx context.Context, id string, config *a2a.PushNotificationConfig,
) error {
	data, err := json.Marshal(config)

	if err != nil {
		return fmt.Errorf("failed to marshal notification config for %s: %w", id, err)
	}

	return store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64

		if err := tx.Model(&TaskRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up task %s: %w", id, err)
		}

		if count == 0 {
			return fmt.Errorf("store notification config for %q: %w", id, stores.ErrTaskNotFound)
		}

		record := NotificationConfigRecord{TaskID: id, Data: data, UpdatedAt: time.Now()}

		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	})
}

func (store *Store) FetchNotificationConfig(
	ctx context.Context, id string,
) (*a2a.PushNotificationConfig, error) {
	var record NotificationConfigRecord

	err := store.db.WithContext(ctx).Where("task_id = ?", id).First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load notification config for %s: %w", id, err)
	}

	var config a2a.PushNotificationConfig

	if err := json.Unmarshal(record.Data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification config for %s: %w", id, err)
	}

	return &config, nil
}
