package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/stores"
)

const (
	taskPrefix         = "task:"
	notificationPrefix = "notification:"
)

/*
Config selects the Redis server. SSL and TLS are accepted as synonyms, as
either flag enables TLS.
*/
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	SSL      bool   `mapstructure:"ssl"`
	TLS      bool   `mapstructure:"tls"`
}

func (cfg Config) options() *goredis.Options {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 6379
	}

	opts := &goredis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	if cfg.SSL || cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	return opts
}

/*
Store keeps each task and each notification config as a JSON string under
its own key, task:<id> and notification:<id>.
*/
type Store struct {
	client goredis.UniversalClient
}

func NewStore(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

/*
Connect dials the configured server and verifies it answers.
*/
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(cfg.options())

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", client.Options().Addr, err)
	}

	return NewStore(client), nil
}

func (store *Store) Close() error {
	return store.client.Close()
}

func (store *Store) Store(ctx context.Context, task *a2a.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("cannot store a task without an id")
	}

	data, err := json.Marshal(task)

	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}

	if err := store.client.Set(ctx, taskPrefix+task.ID, data, 0).Err(); err != nil {
		log.Error("failed to store task", "taskID", task.ID, "error", err)
		return fmt.Errorf("failed to store task %s: %w", task.ID, err)
	}

	return nil
}

func (store *Store) Fetch(ctx context.Context, id string) (*a2a.Task, error) {
	var task a2a.Task

	found, err := store.get(ctx, taskPrefix+id, &task)

	if err != nil || !found {
		return nil, err
	}

	if task.Status.State == "" {
		task.Status.State = a2a.TaskStateUnknown
	}

	return &task, nil
}

func (store *Store) StoreNotificationConfig(
	ctx context.Context, id string, config *a2a.PushNotificationConfig,
) error {
	exists, err := store.client.Exists(ctx, taskPrefix+id).Result()

	if err != nil {
		return fmt.Errorf("failed to look up task %s: %w", id, err)
	}

	if exists == 0 {
		return fmt.Errorf("store notification config for %q: %w", id, stores.ErrTaskNotFound)
	}

	data, err := json.Marshal(config)

	if err != nil {
		return fmt.Errorf("failed to marshal notification config for %s: %w", id, err)
	}

	if err := store.client.Set(ctx, notificationPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store notification config for %s: %w", id, err)
	}

	return nil
}

func (store *Store) FetchNotificationConfig(
	ctx context.Context, id string,
) (*a2a.PushNotificationConfig, error) {
	var config a2a.PushNotificationConfig

	found, err := store.get(ctx, notificationPrefix+id, &config)

	if err != nil || !found {
		return nil, err
	}

	return &config, nil
}

func (store *Store) get(ctx context.Context, key string, out any) (bool, error) {
	data, err := store.client.Get(ctx, key).Bytes()

	if errors.Is(err, goredis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return true, nil
}
