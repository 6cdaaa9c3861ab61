// Hearth Core - Smart Home Dashboard Backend
//
// This is the main entry point for the Hearth Core application: an
// authoritative in-memory device store with a REST API, a WebSocket push
// channel for real-time dashboard updates, a sensor simulator that walks
// thermostats toward their targets, and a SQLite-backed telemetry history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomvassey/hearth-core/migrations"

	"github.com/tomvassey/hearth-core/internal/api"
	"github.com/tomvassey/hearth-core/internal/command"
	"github.com/tomvassey/hearth-core/internal/device"
	"github.com/tomvassey/hearth-core/internal/infrastructure/config"
	"github.com/tomvassey/hearth-core/internal/infrastructure/database"
	"github.com/tomvassey/hearth-core/internal/infrastructure/influxdb"
	"github.com/tomvassey/hearth-core/internal/infrastructure/logging"
	"github.com/tomvassey/hearth-core/internal/simulator"
	"github.com/tomvassey/hearth-core/internal/telemetry"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
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

	// Seed the device store
	seed, err := loadSeed(cfg.Devices.SeedFile)
	if err != nil {
		return fmt.Errorf("loading device seed: %w", err)
	}

	store, err := device.NewStore(seed)
	if err != nil {
		return fmt.Errorf("initialising device store: %w", err)
	}
	store.SetLogger(log)
	log.Info("device store initialised", "devices", len(seed))

	processor := command.NewProcessor(store)
	processor.SetLogger(log)

	telemetryRepo := telemetry.NewSQLiteRepository(db.DB)

	// Connect to InfluxDB (optional)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the sensor simulator (if enabled)
	if cfg.Simulator.Enabled {
		simOpts := []simulator.Option{
			simulator.WithInterval(cfg.GetSimulatorInterval()),
			simulator.WithRecorder(telemetryRepo),
			simulator.WithLogger(log),
		}
		if influxClient != nil {
			simOpts = append(simOpts, simulator.WithMetricWriter(influxClient))
		}
		sim := simulator.New(store, simOpts...)
		go sim.Run(ctx)
		log.Info("sensor simulator started", "interval", cfg.GetSimulatorInterval())
	} else {
		log.Info("sensor simulator disabled")
	}

	// Start the telemetry retention pruner
	go pruneLoop(ctx, telemetryRepo, cfg.GetPruneInterval(), cfg.GetTelemetryRetention(), log)

	// Mirror coarse device counts to InfluxDB alongside the temperature
	// samples, so dashboards can graph fleet size and lit lights.
	if influxClient != nil {
		go statsLoop(ctx, store, influxClient)
		log.Info("system stats gauge started", "interval", statsInterval)
	}

	// Start the API server
	apiDeps := api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Store:     store,
		Processor: processor,
		Telemetry: telemetryRepo,
		Version:   version,
	}
	if influxClient != nil {
		apiDeps.Metrics = influxClient
	}

	apiServer, err := api.New(apiDeps)
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
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. Database

	log.Info("Hearth Core stopped")
	return nil
}

// loadSeed returns the devices to seed the store with: the configured YAML
// file if one is set, the built-in demo home otherwise.
func loadSeed(path string) ([]device.Device, error) {
	if path == "" {
		return device.DefaultSeed(), nil
	}
	return device.LoadSeed(path)
}

// statsInterval is how often the system stats gauge is written to InfluxDB.
const statsInterval = 60 * time.Second

// statsLoop periodically writes a system_stats gauge to InfluxDB: total
// device count and how many lights are on. It exits when the context is
// cancelled.
func statsLoop(ctx context.Context, store *device.Store, metrics *influxdb.Client) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			devices, _ := store.Snapshot()
			lightsOn := 0
			for i := range devices {
				d := &devices[i]
				if d.Kind == device.KindLight && d.IsOn != nil && *d.IsOn {
					lightsOn++
				}
			}
			metrics.WritePoint("system_stats",
				map[string]string{"service": "hearth"},
				map[string]interface{}{
					"devices":   len(devices),
					"lights_on": lightsOn,
				})
		}
	}
}

// pruneLoop periodically deletes telemetry readings older than the retention
// window. It exits when the context is cancelled.
func pruneLoop(ctx context.Context, repo telemetry.Repository, interval, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.Prune(ctx, retention)
			if err != nil {
				log.Error("telemetry prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("telemetry pruned", "deleted", deleted, "retention", retention)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
