package service

import (
	"bufio"
	"context"
	"encoding/json"
	"iter"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/errors"
	"github.com/theapemachine/a2a-server/pkg/jsonrpc"
	"github.com/theapemachine/a2a-server/pkg/service/sse"
)

const (
	DefaultEndpoint  = "/"
	DefaultHeartbeat = 15 * time.Second
	AgentCardPath    = "/.well-known/agent.json"
)

type ServerConfig struct {
	Addr      string
	Endpoint  string
	Heartbeat time.Duration
	DevMode   bool
}

/*
Server exposes a TaskManager as a JSON-RPC 2.0 endpoint. Unary methods
answer with one JSON envelope, streaming methods with a Server-Sent Events
stream of envelopes.
*/
type Server struct {
	app     *fiber.App
	manager *TaskManager
	card    a2a.AgentCard
	config  ServerConfig
}

func NewServer(manager *TaskManager, card a2a.AgentCard, config ServerConfig) *Server {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}

	if config.Heartbeat == 0 {
		config.Heartbeat = DefaultHeartbeat
	}

	srv := &Server{
		app: fiber.New(fiber.Config{
			AppName:      card.Name,
			ServerHeader: "A2A-Server",
		}),
		manager: manager,
		card:    card,
		config:  config,
	}

	srv.routes()

	return srv
}

func (srv *Server) routes() {
	srv.app.Use(recoverer.New())
	srv.app.Use(logger.New(logger.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthcheck.LivenessEndpoint
		},
	}))

	if srv.config.DevMode {
		srv.app.Use(cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		}))
	}

	srv.app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	srv.app.Get(AgentCardPath, srv.handleAgentCard)
	srv.app.Post(srv.config.Endpoint, srv.handleRPC)
}

func (srv *Server) Start() error {
	log.Info("starting a2a server", "addr", srv.config.Addr, "endpoint", srv.config.Endpoint)
	return srv.app.Listen(srv.config.Addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Serve accepts connections on an existing listener.
func (srv *Server) Serve(ln net.Listener) error {
	return srv.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.app.ShutdownWithContext(ctx)
}

func (srv *Server) handleAgentCard(c fiber.Ctx) error {
	return c.JSON(srv.card)
}

/*
handleRPC decodes the request and routes it by variant. Protocol errors are
still HTTP 200; the error lives in the envelope.
*/
func (srv *Server) handleRPC(c fiber.Ctx) error {
	request, reqErr := a2a.ParseRequest(c.Body())

	if reqErr != nil {
		log.Warn("rejected request", "code", reqErr.Err.Code, "error", reqErr.Err.Message)
		return c.JSON(jsonrpc.NewErrorResponse(reqErr.ID, reqErr.Err))
	}

	id := request.Header().ID
	ctx := c.RequestCtx()

	switch request := request.(type) {
	case a2a.GetTaskRequest:
		task, rpcErr := srv.manager.GetTask(ctx, request.Params)
		return reply(c, id, task, rpcErr)
	case a2a.CancelTaskRequest:
		task, rpcErr := srv.manager.CancelTask(ctx, request.Params)
		return reply(c, id, task, rpcErr)
	case a2a.SendTaskRequest:
		task, rpcErr := srv.manager.SendTask(ctx, request.Params)
		return reply(c, id, task, rpcErr)
	case a2a.SetTaskPushNotificationRequest:
		config, rpcErr := srv.manager.SetTaskPushNotification(ctx, request.Params)
		return reply(c, id, config, rpcErr)
	case a2a.GetTaskPushNotificationRequest:
		config, rpcErr := srv.manager.GetTaskPushNotification(ctx, request.Params)
		return reply(c, id, config, rpcErr)
	case a2a.SendTaskStreamingRequest:
		return srv.stream(c, id, func(ctx context.Context) iter.Seq[a2a.StreamEvent] {
			return srv.manager.SendTaskSubscribe(ctx, request.Params)
		})
	case a2a.TaskResubscriptionRequest:
		return srv.stream(c, id, func(ctx context.Context) iter.Seq[a2a.StreamEvent] {
			return srv.manager.ResubscribeToTask(ctx, request.Params)
		})
	case a2a.UnknownMethodRequest:
		return c.JSON(jsonrpc.NewErrorResponse(id, errors.ErrMethodNotFound.WithMessagef(
			"method not found: %s", request.Method,
		)))
	}

	return c.JSON(jsonrpc.NewErrorResponse(id, errors.ErrInternal))
}

/*
reply writes a manager result as an envelope. The result is ignored when an
error is present, so typed nils never reach the encoder.
*/
func reply[T any](c fiber.Ctx, id json.RawMessage, result *T, rpcErr *errors.RpcError) error {
	if rpcErr != nil {
		return c.JSON(jsonrpc.NewErrorResponse(id, rpcErr))
	}

	return c.JSON(jsonrpc.NewResponse(id, result))
}

/*
stream writes the events of a sequence as SSE frames until the sequence
ends or the client goes away. The sequence gets its own context because the
request context does not outlive the handler, while the stream writer does.
*/
func (srv *Server) stream(c fiber.Ctx, id json.RawMessage, open func(context.Context) iter.Seq[a2a.StreamEvent]) error {
	ctx, cancel := context.WithCancel(context.Background())
	events := open(ctx)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		feed := make(chan a2a.StreamEvent)

		go func() {
			defer close(feed)

			for event := range events {
				select {
				case feed <- event:
				case <-ctx.Done():
					return
				}
			}
		}()

		writer := sse.NewWriter(w)

		var heartbeat <-chan time.Time

		if srv.config.Heartbeat > 0 {
			ticker := time.NewTicker(srv.config.Heartbeat)
			defer ticker.Stop()
			heartbeat = ticker.C
		}

		for seq := 0; ; {
			select {
			case event, ok := <-feed:
				if !ok {
					return
				}

				if err := writer.WriteEvent(strconv.Itoa(seq), envelope(id, event)); err != nil {
					log.Debug("stream client went away", "error", err)
					return
				}

				seq++
			case <-heartbeat:
				if err := writer.Heartbeat(); err != nil {
					log.Debug("stream client went away", "error", err)
					return
				}
			}
		}
	})
}

func envelope(id json.RawMessage, event a2a.StreamEvent) jsonrpc.Response {
	if event.Err != nil {
		return jsonrpc.NewErrorResponse(id, event.Err)
	}

	return jsonrpc.NewResponse(id, event.Result())
}
