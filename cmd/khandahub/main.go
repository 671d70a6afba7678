// Khanda Hub - multi-transport message router
//
// This is the main entry point for the Khanda Hub. The hub joins a UDP
// multicast group and a set of serial links, normalizes slave device
// traffic into one message stream, and routes replies back out:
//   - EVENT records appended to the flat-file event log
//   - LED tokens translated into control-plane commands
//   - DEVICE packets registered and acknowledged
//
// Optional integrations (InfluxDB event mirror, MQTT bus bridge,
// SQLite-backed registry persistence) are wired here when enabled.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanda-io/khanda-hub/internal/eventlog"
	"github.com/khanda-io/khanda-hub/internal/infrastructure/config"
	"github.com/khanda-io/khanda-hub/internal/infrastructure/database"
	"github.com/khanda-io/khanda-hub/internal/infrastructure/influxdb"
	"github.com/khanda-io/khanda-hub/internal/infrastructure/logging"
	"github.com/khanda-io/khanda-hub/internal/infrastructure/mqtt"
	"github.com/khanda-io/khanda-hub/internal/registry"
	"github.com/khanda-io/khanda-hub/internal/router"
	"github.com/khanda-io/khanda-hub/internal/transport"
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

// stopTimeout bounds the graceful shutdown of the worker pool.
const stopTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Khanda Hub",
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

	// Registry persistence (optional)
	var store registry.Store
	if cfg.Registry.Persist {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Registry.Database.Path,
			WALMode:     cfg.Registry.Database.WALMode,
			BusyTimeout: cfg.Registry.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening registry database: %w", openErr)
		}
		defer func() {
			log.Info("closing registry database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing registry database", "error", closeErr)
			}
		}()
		log.Info("registry database connected", "path", cfg.Registry.Database.Path)

		store, err = registry.NewSQLiteStore(ctx, db.DB)
		if err != nil {
			return fmt.Errorf("preparing registry store: %w", err)
		}
	} else {
		log.Info("registry persistence disabled")
	}

	reg := registry.New(store)
	reg.SetLogger(log)
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("loading device registry: %w", err)
	}
	log.Info("device registry initialised", "devices", reg.Count())

	// Event log sink
	sink, err := eventlog.Open(cfg.EventLog.Path)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			log.Error("error closing event log", "error", closeErr)
		}
	}()
	log.Info("event log open", "path", cfg.EventLog.Path)

	// Optional integrations feed from dispatch hooks.
	hooks, closeIntegrations, err := wireIntegrations(cfg, log)
	if err != nil {
		return err
	}
	defer closeIntegrations()

	// Router
	hub := router.New(router.Config{
		Group:            cfg.Hub.MulticastGroup,
		Port:             cfg.Hub.Port,
		ControlAddress:   cfg.Hub.ControlAddress,
		MaxFrameBytes:    cfg.Hub.MaxFrameBytes,
		SerialChunkBytes: cfg.Serial.ReadChunkBytes,
		PollInterval:     time.Duration(cfg.Hub.PollIntervalMs) * time.Millisecond,
		InboundQueue:     cfg.Hub.InboundQueue,
		OutboundQueue:    cfg.Hub.OutboundQueue,
	}, transport.NewSet(), reg, sink)
	hub.SetLogger(log)
	hub.SetHooks(hooks)

	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("starting router: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		if stopErr := hub.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping router", "error", stopErr)
		}
	}()

	// Serial devices are optional; a failed open is logged, never fatal.
	for _, dev := range cfg.Serial.Devices {
		baud := dev.Baud
		if baud <= 0 {
			baud = cfg.Serial.DefaultBaud
		}
		if serialErr := hub.AddSerialDevice(dev.Path, baud); serialErr != nil {
			log.Warn("serial device unavailable", "path", dev.Path, "error", serialErr)
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses KHANDA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KHANDA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// wireIntegrations connects the optional InfluxDB mirror and MQTT bridge
// and returns dispatch hooks that feed them, plus a close function for
// the defer chain. Disabled integrations leave their hook slot nil.
func wireIntegrations(cfg *config.Config, log *logging.Logger) (router.Hooks, func(), error) {
	var (
		influxClient *influxdb.Client
		mqttClient   *mqtt.Client
		err          error
	)

	closeAll := func() {
		if mqttClient != nil {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}
		if influxClient != nil {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return router.Hooks{}, closeAll, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			closeAll()
			return router.Hooks{}, func() {}, fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	hooks := router.Hooks{
		OnEvent: func(eventType, payload, timestamp string) {
			if influxClient != nil {
				influxClient.WriteEvent(eventType, payload, time.Now().UTC())
			}
			if mqttClient != nil {
				body, encErr := eventBody(eventType, payload, timestamp)
				if encErr != nil {
					log.Warn("event encode failed", "type", eventType, "error", encErr)
					return
				}
				if pubErr := mqttClient.PublishEvent(eventType, body); pubErr != nil {
					log.Warn("event publish failed", "type", eventType, "error", pubErr)
				}
			}
		},
		OnRegistration: func(r registry.Registration) {
			if influxClient != nil {
				influxClient.WriteRegistration(r.DeviceType, r.Address, r.Link, r.RegisteredAt)
			}
			if mqttClient != nil {
				body, encErr := registrationBody(r)
				if encErr != nil {
					log.Warn("registration encode failed", "address", r.Address, "error", encErr)
					return
				}
				if pubErr := mqttClient.PublishRegistration(r.Address, body); pubErr != nil {
					log.Warn("registration publish failed", "address", r.Address, "error", pubErr)
				}
			}
		},
	}

	if influxClient == nil && mqttClient == nil {
		return router.Hooks{}, closeAll, nil
	}
	return hooks, closeAll, nil
}

// eventBody encodes an MQTT event payload. Device payloads are opaque
// strings and may contain quotes, so the body goes through the JSON encoder.
func eventBody(eventType, payload, timestamp string) ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		Payload   string `json:"payload"`
		Timestamp string `json:"timestamp"`
	}{eventType, payload, timestamp})
}

// registrationBody encodes a retained MQTT registration payload.
func registrationBody(r registry.Registration) ([]byte, error) {
	return json.Marshal(struct {
		DeviceType   string `json:"device_type"`
		Address      string `json:"address"`
		Link         string `json:"link"`
		RegisteredAt string `json:"registered_at"`
	}{r.DeviceType, r.Address, r.Link, r.RegisteredAt.UTC().Format(time.RFC3339)})
}
