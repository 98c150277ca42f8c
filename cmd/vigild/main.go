// Vigil Core - dead man's switch registry
//
// This is the main entry point for the Vigil Core daemon. Vigil tracks
// registered devices by heartbeat and delivers each device's last will
// exactly once when its keep-alives stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/vigil-core/migrations"

	"github.com/nerrad567/vigil-core/internal/api"
	"github.com/nerrad567/vigil-core/internal/bus"
	"github.com/nerrad567/vigil-core/internal/device"
	"github.com/nerrad567/vigil-core/internal/infrastructure/config"
	"github.com/nerrad567/vigil-core/internal/infrastructure/database"
	"github.com/nerrad567/vigil-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/vigil-core/internal/infrastructure/logging"
	"github.com/nerrad567/vigil-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/vigil-core/internal/notify"
	"github.com/nerrad567/vigil-core/internal/poller"
	"github.com/nerrad567/vigil-core/internal/service"
	"github.com/nerrad567/vigil-core/internal/uow"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Vigil Core",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	health := make(map[string]api.HealthChecker)

	// Select the device store backend
	var store device.Store
	switch cfg.Store.Backend {
	case config.StoreBackendSQLite:
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
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
		log.Info("database migrations complete")

		store = device.NewSQLiteStore(db.DB)
		health["database"] = db
	default:
		store = device.NewMemoryStore()
		log.Info("using in-memory device store")
	}

	// Unit-of-work factory, service, and message bus
	factory := uow.NewFactory(store, log)
	svc := service.NewService(factory, log)

	b := bus.New(log)
	if wireErr := service.Wire(b, svc); wireErr != nil {
		return fmt.Errorf("wiring command handlers: %w", wireErr)
	}
	notify.AttachLogObserver(b, log)

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		notify.AttachMQTTObserver(b, mqttClient)
		if subErr := notify.AttachKeepAliveListener(mqttClient, b); subErr != nil {
			return fmt.Errorf("subscribing to keep-alives: %w", subErr)
		}
		health["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		notify.AttachTelemetryObserver(b, influxClient)
		health["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the expiry poller
	p := poller.New(factory, b, poller.Config{
		IntervalSeconds: cfg.Poller.Interval,
		ConsumerID:      cfg.Service.ID,
		CatchUp:         cfg.Poller.CatchUp,
	}, log)
	p.Start(ctx)
	defer func() {
		log.Info("stopping expiry poller")
		p.Stop()
	}()

	// Start the API server
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log,
		Dispatcher: b,
		Service:    svc,
		Health:     health,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("Vigil Core running", "service_id", cfg.Service.ID)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the configuration file path from the VIGIL_CONFIG
// environment variable, or the default path.
func getConfigPath() string {
	if path := os.Getenv("VIGIL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
