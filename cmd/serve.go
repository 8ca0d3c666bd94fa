package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/metrics"
	"github.com/theapemachine/a2a-server/pkg/provider"
	"github.com/theapemachine/a2a-server/pkg/push"
	"github.com/theapemachine/a2a-server/pkg/service"
	"github.com/theapemachine/a2a-server/pkg/service/sse"
	"github.com/theapemachine/a2a-server/pkg/stores/backend"
	"github.com/theapemachine/a2a-server/pkg/stores/redis"
	"github.com/theapemachine/a2a-server/pkg/stores/s3"
)

var (
	portFlag    int
	hostFlag    string
	backendFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the A2A task protocol",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Port to serve on (overrides server.port)")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "", "Host address to bind to (overrides server.host)")
	serveCmd.Flags().StringVarP(&backendFlag, "storage", "s", "", "Storage backend: memory, redis, s3 or database")
}

func serve(ctx context.Context) error {
	v := viper.GetViper()

	meter, shutdownMetrics, err := metrics.Setup(v.GetBool("telemetry.enabled"), v.GetDuration("telemetry.interval"))

	if err != nil {
		return err
	}

	defer shutdownMetrics(context.Background())

	m, err := metrics.NewMetrics(meter)

	if err != nil {
		return err
	}

	store, err := backend.New(ctx, storageConfig(v))

	if err != nil {
		return fmt.Errorf("failed to initialize task store: %w", err)
	}

	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	handler, err := taskHandler(v)

	if err != nil {
		return err
	}

	manager := service.NewTaskManager(
		store,
		handler,
		service.WithPublisher(push.NewService(
			push.WithTimeout(durationOr(v.GetDuration("push.timeout"), push.DefaultTimeout)),
			push.WithMetrics(m),
		)),
		service.WithRegistry(service.NewEventRegistry(
			sse.WithMaxPending[a2a.StreamEvent](v.GetInt("streaming.max_pending")),
		)),
		service.WithMetrics(m),
	)

	host := v.GetString("server.host")
	port := v.GetInt("server.port")

	if hostFlag != "" {
		host = hostFlag
	}

	if portFlag != 0 {
		port = portFlag
	}

	srv := service.NewServer(manager, *a2a.NewAgentCardFromConfig(), service.ServerConfig{
		Addr:      net.JoinHostPort(host, strconv.Itoa(port)),
		Endpoint:  v.GetString("server.endpoint"),
		Heartbeat: v.GetDuration("server.heartbeat"),
		DevMode:   v.GetBool("server.dev_mode"),
	})

	errs := make(chan error, 1)

	go func() { errs <- srv.Start() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

/*
storageConfig reads each key on its own so A2A_* environment overrides
apply to nested keys as well.
*/
func storageConfig(v *viper.Viper) backend.Config {
	cfg := backend.Config{
		Backend: v.GetString("storage.backend"),
		Redis: redis.Config{
			Host:     v.GetString("storage.redis.host"),
			Port:     v.GetInt("storage.redis.port"),
			Username: v.GetString("storage.redis.username"),
			Password: v.GetString("storage.redis.password"),
			DB:       v.GetInt("storage.redis.db"),
			SSL:      v.GetBool("storage.redis.ssl"),
			TLS:      v.GetBool("storage.redis.tls"),
		},
		S3: s3.Config{
			Endpoint:  v.GetString("storage.s3.endpoint"),
			AccessKey: v.GetString("storage.s3.access_key"),
			SecretKey: v.GetString("storage.s3.secret_key"),
			Bucket:    v.GetString("storage.s3.bucket"),
			Region:    v.GetString("storage.s3.region"),
			Secure:    v.GetBool("storage.s3.secure"),
		},
		Database: backend.DatabaseConfig{DSN: v.GetString("storage.database.dsn")},
	}

	if backendFlag != "" {
		cfg.Backend = backendFlag
	}

	return cfg
}

func taskHandler(v *viper.Viper) (a2a.TaskHandler, error) {
	switch kind := v.GetString("handler.kind"); kind {
	case "", "echo":
		return provider.NewEchoHandler(), nil
	case "openai":
		config := provider.OpenAIConfig{
			APIKey:      v.GetString("handler.openai.api_key"),
			BaseURL:     v.GetString("handler.openai.base_url"),
			Model:       v.GetString("handler.openai.model"),
			System:      v.GetString("handler.openai.system"),
			Temperature: v.GetFloat64("handler.openai.temperature"),
		}

		if config.APIKey == "" {
			return nil, errors.New("handler.openai.api_key is required for the openai handler")
		}

		return provider.NewOpenAIHandler(config), nil
	default:
		return nil, fmt.Errorf("unknown task handler %q", kind)
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}

	return d
}

var longServe = `
Serve the A2A task protocol over HTTP.

Examples:
  # Serve the echo agent on the configured address
  a2a-server serve

  # Serve on port 8080, keeping tasks in Redis
  a2a-server serve --port 8080 --storage redis
`
