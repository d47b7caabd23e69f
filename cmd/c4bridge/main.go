// Control4 Bridge Core
//
// Mirrors the devices of a Control4 installation as typed entities and
// queues commands for the Control4 driver to poll. The driver talks to the
// /api/control4_bridge endpoints; everything else (REST entities, WebSocket,
// MQTT mirror, InfluxDB telemetry) is for the host side.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/c4bridge-core/internal/api"
	"github.com/nerrad567/c4bridge-core/internal/audit"
	"github.com/nerrad567/c4bridge-core/internal/bridge"
	"github.com/nerrad567/c4bridge-core/internal/device"
	"github.com/nerrad567/c4bridge-core/internal/dispatch"
	"github.com/nerrad567/c4bridge-core/internal/entity"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/config"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/database"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/logging"
	"github.com/nerrad567/c4bridge-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/c4bridge-core/internal/publish"
	"github.com/nerrad567/c4bridge-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds how long the dispatcher and audit recorder may take
// to drain on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
// Deferred cleanups run in reverse order of construction.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Control4 bridge core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS, migrations.Dir); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Device registry
	deviceRegistry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	deviceRegistry.SetLogger(log.Component("device"))
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}

	store := bridge.NewStore(cfg.Bridge.ID)
	log.Info("bridge store ready",
		"bridge_id", cfg.Bridge.ID,
		"bridge_name", cfg.Bridge.Name,
	)

	// InfluxDB (optional). Connected before the audit recorder so command
	// counters can be wired in.
	influxClient, err := connectInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	// Command audit trail
	var auditRepo audit.Repository
	if cfg.Audit.Enabled {
		repo := audit.NewSQLiteRepository(db.DB)
		auditRepo = repo

		recorder := audit.NewRecorder(repo, cfg.Bridge.ID, cfg.Audit.BufferSize, log.Component("audit"))
		recorder.SetRetention(time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour)
		if influxClient != nil {
			recorder.SetCounter(influxClient)
		}
		recorder.Start(ctx)
		store.SetObserver(recorder)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if closeErr := recorder.Close(closeCtx); closeErr != nil {
				log.Error("error closing audit recorder", "error", closeErr)
			}
		}()
		log.Info("command audit trail enabled", "retention_days", cfg.Audit.RetentionDays)
	} else {
		log.Info("command audit trail disabled")
	}

	dispatcher := dispatch.New(dispatch.DefaultQueueSize, log.Component("dispatch"))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := dispatcher.Close(closeCtx); closeErr != nil {
			log.Error("error closing dispatcher", "error", closeErr)
		}
	}()

	// State publication
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	fanout := publish.NewFanout(hub)
	fanout.SetLogger(log)
	if influxClient != nil {
		fanout.Add(publish.NewInfluxWriter(influxClient))
	}

	manager := entity.NewManager(store, fanout)
	manager.SetLogger(log.Component("entity"))
	manager.SetRegistrar(deviceRegistry)

	// MQTT (optional)
	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()

		mirror := publish.NewMQTTMirror(mqttClient, manager)
		mirror.SetLogger(log.Component("mqtt"))
		if startErr := mirror.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT mirror: %w", startErr)
		}
		fanout.Add(mirror)
	}

	manager.Start(ctx, dispatcher, dispatch.SignalDeviceUpdate)
	defer manager.Stop()

	// API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Bridge:   cfg.Bridge,
		Logger:   log,
		Store:    store,
		Entities: manager,
		Notifier: dispatcher,
		Audit:    auditRepo,
		Registry: deviceRegistry,
		Hub:      hub,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"entities", len(manager.Entities()),
		"writers", fanout.Len(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses C4BRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("C4BRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects the MQTT mirror's client. It returns nil when MQTT is
// disabled.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.ID)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic_prefix", cfg.MQTT.TopicPrefix,
	)
	return client, nil
}

// connectInfluxDB connects the telemetry client. It returns nil when InfluxDB
// is disabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// healthCheck verifies the infrastructure connections. mqttClient and
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
