package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/c4bridge-core/internal/audit"
	"github.com/nerrad567/c4bridge-core/internal/bridge"
	"github.com/nerrad567/c4bridge-core/internal/device"
	"github.com/nerrad567/c4bridge-core/internal/entity"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/config"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BridgeStore is the part of bridge.Store the driver endpoints use.
type BridgeStore interface {
	BridgeID() string
	UpsertDevices(raw []any) int
	PopCommands(limit int) []bridge.Command
	AckCommands(ids []string) int
	Stats() bridge.Stats
}

// EntityService exposes entities to the REST surface. entity.Manager
// implements it.
type EntityService interface {
	Entity(uniqueID string) (entity.Entity, error)
	Entities() []entity.Entity
	TurnOn(uniqueID string, brightness *int) (string, error)
	TurnOff(uniqueID string) (string, error)
}

// Notifier broadcasts that the device set changed.
type Notifier interface {
	Send(signal string, payload any) bool
}

// DeviceLister lists devices recorded in the host device registry.
type DeviceLister interface {
	ListDevices(bridgeID string) []device.Device
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Bridge   config.BridgeConfig
	Logger   *logging.Logger
	Store    BridgeStore
	Entities EntityService
	Notifier Notifier

	// Optional.
	Audit    audit.Repository
	Registry DeviceLister
	Hub      *Hub // If set, the server uses this hub instead of creating its own

	Version string
}

// Server is the HTTP API server of the bridge core.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	bridge   config.BridgeConfig
	logger   *logging.Logger
	store    BridgeStore
	entities EntityService
	notifier Notifier
	audit    audit.Repository
	registry DeviceLister
	version  string

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("bridge store is required")
	}
	if deps.Entities == nil {
		return nil, fmt.Errorf("entity service is required")
	}
	if deps.Bridge.SharedSecret == "" {
		return nil, fmt.Errorf("bridge shared secret is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		bridge:   deps.Bridge,
		logger:   deps.Logger,
		store:    deps.Store,
		entities: deps.Entities,
		notifier: deps.Notifier,
		audit:    deps.Audit,
		registry: deps.Registry,
		version:  deps.Version,
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub, or nil before Start when none was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start builds the router, starts the WebSocket hub and launches the HTTP
// listener in a background goroutine. Stop it with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
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
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
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

// HealthCheck verifies the API server is running.
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
