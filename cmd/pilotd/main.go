// Pilot Core - Controller Lifecycle Engine
//
// This is the main entry point for the Pilot Core daemon. It hosts the
// controller registry, the switch coordinator and the periodic update
// cycle, and exposes them over HTTP, WebSocket and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/nerrad567/pilot-core/migrations"

	"github.com/nerrad567/pilot-core/internal/api"
	"github.com/nerrad567/pilot-core/internal/controller"
	"github.com/nerrad567/pilot-core/internal/history"
	"github.com/nerrad567/pilot-core/internal/infrastructure/config"
	"github.com/nerrad567/pilot-core/internal/infrastructure/database"
	"github.com/nerrad567/pilot-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/pilot-core/internal/infrastructure/logging"
	"github.com/nerrad567/pilot-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/pilot-core/internal/manager"
	"github.com/nerrad567/pilot-core/internal/plugin"
	"github.com/nerrad567/pilot-core/internal/statebus"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupSwitchTimeout bounds how long startup waits for the first update
// tick to activate the configured controllers.
const startupSwitchTimeout = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Startup wiring is inherently sequential
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Pilot Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Lifecycle history persistence
	historyRepo := history.NewSQLiteRepository(db.DB)
	recorder := history.NewRecorder(historyRepo, log)
	defer func() {
		log.Info("draining history recorder")
		recorder.Close()
	}()

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var bus *statebus.Bus
	events := &eventFanout{}
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		bus = statebus.New(mqttClient, log)
		defer bus.Close()
		events.add(bus)
	} else {
		log.Info("MQTT disabled")
	}

	// Controller factory with the built-in types
	factory := plugin.NewFactory()
	factory.MustRegister("pilot/noop", func() (controller.Controller, error) {
		return &noopController{}, nil
	})

	// Controller manager
	mgr, err := manager.New(manager.Options{
		Factory:    factory,
		UpdateRate: cfg.Cycle.UpdateRate,
		Params:     cfg,
		Logger:     log,
		Events:     events,
		History:    recorder,
	})
	if err != nil {
		return fmt.Errorf("creating manager: %w", err)
	}

	// Accept switch requests over MQTT
	if bus != nil {
		if err := bus.ListenSwitchRequests(mgr); err != nil {
			return fmt.Errorf("subscribing to switch requests: %w", err)
		}
	}

	// Connect to InfluxDB (optional) for update-cycle telemetry
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		mgr.Cycle().SetMetrics(influxClient)
		events.add(&switchTelemetry{writer: influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Load and configure the declared controllers
	activate, err := loadControllers(cfg, mgr, log)
	if err != nil {
		return err
	}

	// API server (broadcasts lifecycle events to WebSocket clients)
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Manager:  mgr,
		Factory:  factory,
		History:  historyRepo,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	events.add(apiServer)
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Start the update cycle
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("starting update cycle: %w", err)
	}
	defer func() {
		log.Info("stopping update cycle")
		mgr.Stop()
	}()
	log.Info("update cycle started", "rate_hz", mgr.Cycle().Rate())

	// Activate startup controllers through the switch protocol. Best effort:
	// a controller that fails to activate leaves the rest running.
	if len(activate) > 0 {
		if err := mgr.SwitchController(activate, nil, controller.StrictnessBestEffort, false, startupSwitchTimeout); err != nil {
			log.Error("startup activation failed", "controllers", activate, "error", err)
		} else {
			log.Info("startup controllers activated", "controllers", activate)
		}
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Update cycle
	// 2. API server
	// 3. InfluxDB (if enabled)
	// 4. MQTT state bus and client (if enabled)
	// 5. History recorder
	// 6. Database

	log.Info("Pilot Core stopped")
	return nil
}

// loadControllers loads each declared controller and runs the configure
// transition where requested. It returns the names to activate once the
// update cycle is running.
func loadControllers(cfg *config.Config, mgr *manager.Manager, log *logging.Logger) ([]string, error) {
	var activate []string
	for _, decl := range cfg.Controllers {
		if _, err := mgr.LoadController(decl.Name, decl.Type); err != nil {
			return nil, fmt.Errorf("loading controller %q: %w", decl.Name, err)
		}
		log.Info("controller loaded", "name", decl.Name, "type", decl.Type)

		if decl.Configure || decl.Activate {
			if err := mgr.ConfigureController(decl.Name); err != nil {
				return nil, fmt.Errorf("configuring controller %q: %w", decl.Name, err)
			}
			log.Info("controller configured", "name", decl.Name)
		}
		if decl.Activate {
			activate = append(activate, decl.Name)
		}
	}
	return activate, nil
}

// getConfigPath returns the configuration file path.
// Uses PILOT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PILOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
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

// eventFanout multiplexes lifecycle events to every registered sink.
// Sinks are added during startup wiring; delivery order follows addition
// order.
type eventFanout struct {
	mu    sync.RWMutex
	sinks []manager.EventSink
}

func (f *eventFanout) add(sink manager.EventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, sink)
}

func (f *eventFanout) ControllerState(name string, from, to controller.State) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sink := range f.sinks {
		sink.ControllerState(name, from, to)
	}
}

func (f *eventFanout) SwitchApplied(outcome manager.Outcome) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sink := range f.sinks {
		sink.SwitchApplied(outcome)
	}
}

// latencyWriter records switch staging-to-application latency.
// *influxdb.Client satisfies it.
type latencyWriter interface {
	WriteSwitchLatency(strictness string, latency time.Duration, started, stopped int)
}

// switchTelemetry forwards applied switch outcomes to the telemetry store.
// State transitions are not recorded here; the retained MQTT topics cover
// those.
type switchTelemetry struct {
	writer latencyWriter
}

func (t *switchTelemetry) ControllerState(string, controller.State, controller.State) {}

func (t *switchTelemetry) SwitchApplied(outcome manager.Outcome) {
	t.writer.WriteSwitchLatency(
		string(outcome.Strictness),
		outcome.AppliedAt.Sub(outcome.StagedAt),
		len(outcome.Started),
		len(outcome.Stopped),
	)
}

// noopController is the built-in do-nothing controller type. It exists so a
// fresh deployment can exercise the full lifecycle and switch machinery
// before any real control policies are linked in.
type noopController struct{}

func (c *noopController) OnConfigure() error           { return nil }
func (c *noopController) OnActivate() error            { return nil }
func (c *noopController) OnDeactivate() error          { return nil }
func (c *noopController) OnCleanup() error             { return nil }
func (c *noopController) OnShutdown() error            { return nil }
func (c *noopController) Update(_ time.Duration) error { return nil }
