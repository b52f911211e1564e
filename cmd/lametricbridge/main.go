// LaMetric bridge - exposes a LaMetric smart display as a point tree.
//
// This is the main entry point for the bridge. It connects the device's local
// HTTP API to the home-automation point tree carried over MQTT:
//   - Device state is polled and written to points (acknowledged)
//   - User writes to points are translated into device calls
//   - Notifications are relayed over MQTT requests and the REST API
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-lametric/migrations"

	"github.com/nerrad567/gray-logic-lametric/internal/api"
	"github.com/nerrad567/gray-logic-lametric/internal/bridges/lametric"
	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-lametric/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lametric/internal/points"
	"github.com/nerrad567/gray-logic-lametric/internal/poller"
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

// Refresh loop names, also used by POST /api/v1/refresh/{loop}.
const (
	loopState = "state"
	loopApps  = "apps"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting LaMetric bridge",
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	registry, err := loadRegistry(ctx, db, log)
	if err != nil {
		return err
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Bridge.ID))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

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
		recorder := points.NewHistoryRecorder(cfg.Bridge.ID, influxClient)
		defer registry.Subscribe(recorder.Observe)()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	client := lametric.NewClient(cfg.Device)
	defer client.Close()
	if client.Enabled() {
		log.Info("LaMetric device configured", "device", cfg.Device.String())
	} else {
		log.Warn("LaMetric device host or token missing, device integration disabled")
	}

	bridge, err := lametric.NewBridge(lametric.BridgeOptions{
		BridgeID:       cfg.Bridge.ID,
		Version:        version,
		Client:         client,
		Registry:       registry,
		MQTTClient:     mqttClient,
		CommandTimeout: cfg.GetCommandTimeout(),
		HealthInterval: cfg.GetHealthInterval(),
		Logger:         log.Component("lametric"),
	})
	if err != nil {
		return fmt.Errorf("creating LaMetric bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting LaMetric bridge: %w", err)
	}
	log.Info("LaMetric bridge started", "bridge_id", cfg.Bridge.ID)

	loops := map[string]*poller.Loop{
		loopState: poller.New(poller.Options{
			Name:     loopState,
			Interval: cfg.GetStateInterval(),
			Run:      bridge.RefreshState,
			Logger:   log.Component("poller"),
		}),
		loopApps: poller.New(poller.Options{
			Name:     loopApps,
			Interval: cfg.GetAppsInterval(),
			Run:      bridge.RefreshApps,
			Logger:   log.Component("poller"),
		}),
	}
	for name, loop := range loops {
		if startErr := loop.Start(); startErr != nil {
			return fmt.Errorf("starting %s loop: %w", name, startErr)
		}
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		refreshers := make(map[string]api.Refresher, len(loops))
		for name, loop := range loops {
			refreshers[name] = loop
		}
		apiServer, err = api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log.Component("api"),
			Registry:   registry,
			Bridge:     bridge,
			Refreshers: refreshers,
			Version:    version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
	} else {
		log.Info("REST API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	refreshLoops := make([]refreshLoop, 0, len(loops))
	for _, loop := range loops {
		refreshLoops = append(refreshLoops, loop)
	}
	var apiCloser io.Closer
	if apiServer != nil {
		apiCloser = apiServer
	}
	shutdown(log, refreshLoops, apiCloser, bridge)

	// Deferred Close() calls run in reverse order:
	// 1. Device client
	// 2. History observer and InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("LaMetric bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LAMETRIC_BRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LAMETRIC_BRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// refreshLoop is the part of *poller.Loop used at shutdown.
type refreshLoop interface {
	Stop()
	Wait()
}

// shutdown stops the components in dependency order:
//  1. Refresh loops stop scheduling. An in-flight refresh keeps its device
//     request and is waited for, so it cannot overwrite the final
//     connection=false write. The wait is bounded by the device timeout.
//  2. The API closes, so no late REST write lands unacknowledged.
//  3. The bridge stops, draining dispatched commands.
func shutdown(log *logging.Logger, loops []refreshLoop, apiServer io.Closer, bridge interface{ Stop() }) {
	for _, loop := range loops {
		loop.Stop()
	}
	for _, loop := range loops {
		loop.Wait()
	}
	if apiServer != nil {
		if err := apiServer.Close(); err != nil {
			log.Error("error closing API server", "error", err)
		}
	}
	bridge.Stop()
}

// loadRegistry builds the point registry from the database and makes sure
// the fixed point catalogue exists.
func loadRegistry(ctx context.Context, db *database.DB, log *logging.Logger) (*points.Registry, error) {
	registry := points.NewRegistry(points.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("points"))

	if err := registry.RefreshCache(ctx); err != nil {
		return nil, fmt.Errorf("loading point registry: %w", err)
	}
	created, err := registry.EnsureAll(ctx, points.FixedDefinitions())
	if err != nil {
		return nil, fmt.Errorf("creating fixed points: %w", err)
	}
	log.Info("point registry initialised", "points", registry.Count(), "created", created)
	return registry, nil
}

// connectInfluxDB connects to InfluxDB when enabled. Returns nil when disabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
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

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
