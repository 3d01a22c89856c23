package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/pilot-core/internal/controller"
	"github.com/nerrad567/pilot-core/internal/history"
	"github.com/nerrad567/pilot-core/internal/infrastructure/config"
	"github.com/nerrad567/pilot-core/internal/infrastructure/logging"
	"github.com/nerrad567/pilot-core/internal/manager"
	"github.com/nerrad567/pilot-core/internal/plugin"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Manager  *manager.Manager
	Factory  *plugin.Factory
	History  history.Repository // optional: history endpoints return 503 when nil
	Version  string
}

// Server is the HTTP API server for Pilot Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	manager *manager.Manager
	factory *plugin.Factory
	history history.Repository
	version string
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("controller manager is required")
	}
	// History is optional; the history endpoints degrade to 503 without it.

	return &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		secCfg:  deps.Security,
		logger:  deps.Logger,
		manager: deps.Manager,
		factory: deps.Factory,
		history: deps.History,
		version: deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Periodic ticket cleanup prevents the store growing unbounded.
	go s.cleanTicketsLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// ControllerState broadcasts a lifecycle transition to WebSocket clients
// subscribed to "controller.state". It satisfies the manager's event sink
// so the server can be wired alongside the MQTT state bus.
func (s *Server) ControllerState(name string, from, to controller.State) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast("controller.state", map[string]any{
		"controller": name,
		"from":       string(from),
		"to":         string(to),
	})
}

// SwitchApplied broadcasts an applied switch outcome to WebSocket clients
// subscribed to "switch.applied".
func (s *Server) SwitchApplied(outcome manager.Outcome) {
	if s.hub == nil {
		return
	}
	payload := map[string]any{
		"started":    outcome.Started,
		"stopped":    outcome.Stopped,
		"strictness": string(outcome.Strictness),
		"start_asap": outcome.StartASAP,
		"staged_at":  outcome.StagedAt.Format(time.RFC3339Nano),
		"applied_at": outcome.AppliedAt.Format(time.RFC3339Nano),
	}
	if outcome.Err != nil {
		payload["error"] = outcome.Err.Error()
	}
	s.hub.Broadcast("switch.applied", payload)
}
