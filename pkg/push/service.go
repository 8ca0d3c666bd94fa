package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/metrics"
)

const DefaultTimeout = 10 * time.Second

/*
Publisher delivers a task snapshot to its webhook. Delivery is best effort:
failures are absorbed and never reported to the caller.
*/
type Publisher interface {
	Publish(ctx context.Context, task *a2a.Task, config *a2a.PushNotificationConfig)
}

// NoopPublisher drops every notification.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *a2a.Task, *a2a.PushNotificationConfig) {}

/*
Service posts task snapshots over HTTP. There is no retry; a notification
that fails is logged and gone.
*/
type Service struct {
	client  *http.Client
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithClient(client *http.Client) Option {
	return func(s *Service) { s.client = client }
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.client = &http.Client{Timeout: timeout} }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new push notification service
func NewService(opts ...Option) *Service {
	service := &Service{
		client:  &http.Client{Timeout: DefaultTimeout},
		metrics: metrics.Noop(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

func (s *Service) Publish(ctx context.Context, task *a2a.Task, config *a2a.PushNotificationConfig) {
	if task == nil || config == nil || config.URL == "" {
		return
	}

	if err := s.send(ctx, task, config); err != nil {
		log.Warn("push notification failed", "taskID", task.ID, "url", config.URL, "error", err)
		s.metrics.RecordPushFailure(ctx, string(task.Status.State))
	}
}

func (s *Service) send(ctx context.Context, task *a2a.Task, config *a2a.PushNotificationConfig) error {
	body, err := json.Marshal(task)

	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))

	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if token := bearerToken(config); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)

	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	log.Debug("push notification delivered", "taskID", task.ID, "state", task.Status.State)
	return nil
}

// bearerToken prefers the task token over bearer credentials.
func bearerToken(config *a2a.PushNotificationConfig) string {
	if config.Token != nil && *config.Token != "" {
		return *config.Token
	}

	if auth := config.Authentication; auth != nil && auth.Credentials != nil {
		for _, scheme := range auth.Schemes {
			if strings.EqualFold(scheme, "bearer") {
				return *auth.Credentials
			}
		}
	}

	return ""
}
