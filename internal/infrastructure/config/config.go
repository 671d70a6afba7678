package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Khanda Hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	Serial   SerialConfig   `yaml:"serial"`
	EventLog EventLogConfig `yaml:"eventlog"`
	Registry RegistryConfig `yaml:"registry"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HubConfig contains the core message-router settings.
type HubConfig struct {
	// MulticastGroup is the group the hub joins and filters inbound traffic on.
	MulticastGroup string `yaml:"multicast_group"`

	// Port is the UDP port for both receive and transmit.
	Port int `yaml:"port"`

	// MaxFrameBytes is the largest datagram accepted from the network.
	MaxFrameBytes int `yaml:"max_frame_bytes"`

	// ControlAddress is the fixed control-plane address LED commands are sent to.
	ControlAddress string `yaml:"control_address"`

	// PollIntervalMs bounds how long a worker blocks on a transport before
	// re-checking for cancellation. Also the upper bound on per-worker
	// shutdown latency.
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// InboundQueue and OutboundQueue are the FIFO channel capacities.
	InboundQueue  int `yaml:"inbound_queue"`
	OutboundQueue int `yaml:"outbound_queue"`
}

// SerialConfig contains serial transport settings.
type SerialConfig struct {
	// Devices are serial links opened at startup. Open failures are logged
	// but never abort startup; links can also be attached at runtime.
	Devices []SerialDeviceConfig `yaml:"devices"`

	// ReadChunkBytes is the per-read buffer size for serial ingestion.
	ReadChunkBytes int `yaml:"read_chunk_bytes"`

	// DefaultBaud is used when a device entry omits its baud rate.
	DefaultBaud int `yaml:"default_baud"`
}

// SerialDeviceConfig describes a single serial link.
type SerialDeviceConfig struct {
	Path string `yaml:"path"`
	Baud int    `yaml:"baud"`
}

// EventLogConfig contains the append-only event log settings.
type EventLogConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig contains device registry settings.
type RegistryConfig struct {
	// Persist enables the SQLite-backed registration store. When false the
	// registry is purely in-memory for the process lifetime.
	Persist  bool           `yaml:"persist"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT bus-bridge settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains the optional event-history mirror settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: KHANDA_SECTION_KEY
// For example: KHANDA_HUB_PORT, KHANDA_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in defaults without reading any file.
// Useful for tests and for embedding the hub as a library.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
// Wire-level defaults (group, port, frame size, serial chunk) match the
// slave device firmware and must not drift casually.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			MulticastGroup: "224.1.1.1",
			Port:           5007,
			MaxFrameBytes:  512,
			ControlAddress: "10.0.0.120",
			PollIntervalMs: 250,
			InboundQueue:   256,
			OutboundQueue:  256,
		},
		Serial: SerialConfig{
			ReadChunkBytes: 128,
			DefaultBaud:    9600,
		},
		EventLog: EventLogConfig{
			Path: "./data/events.log",
		},
		Registry: RegistryConfig{
			Persist: false,
			Database: DatabaseConfig{
				Path:        "./data/khanda.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "khanda-hub",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: KHANDA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("KHANDA_HUB_GROUP"); v != "" {
		cfg.Hub.MulticastGroup = v
	}
	if v := os.Getenv("KHANDA_HUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Hub.Port = port
		}
	}

	// Event log
	if v := os.Getenv("KHANDA_EVENTLOG_PATH"); v != "" {
		cfg.EventLog.Path = v
	}

	// Registry
	if v := os.Getenv("KHANDA_REGISTRY_DB_PATH"); v != "" {
		cfg.Registry.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("KHANDA_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("KHANDA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("KHANDA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("KHANDA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for invalid or inconsistent values.
//
// Returns:
//   - error: Describing the first problem found, or nil
func (c *Config) Validate() error {
	ip := net.ParseIP(c.Hub.MulticastGroup)
	if ip == nil {
		return fmt.Errorf("hub.multicast_group %q is not a valid IP address", c.Hub.MulticastGroup)
	}
	if !ip.IsMulticast() {
		return fmt.Errorf("hub.multicast_group %q is not a multicast address", c.Hub.MulticastGroup)
	}
	if c.Hub.Port <= 0 || c.Hub.Port > 65535 {
		return fmt.Errorf("hub.port %d out of range", c.Hub.Port)
	}
	if c.Hub.MaxFrameBytes <= 0 {
		return fmt.Errorf("hub.max_frame_bytes must be positive, got %d", c.Hub.MaxFrameBytes)
	}
	if net.ParseIP(c.Hub.ControlAddress) == nil {
		return fmt.Errorf("hub.control_address %q is not a valid IP address", c.Hub.ControlAddress)
	}
	if c.Hub.PollIntervalMs <= 0 {
		return fmt.Errorf("hub.poll_interval_ms must be positive, got %d", c.Hub.PollIntervalMs)
	}
	if c.Hub.InboundQueue <= 0 || c.Hub.OutboundQueue <= 0 {
		return fmt.Errorf("hub queue capacities must be positive")
	}
	if c.Serial.ReadChunkBytes <= 0 {
		return fmt.Errorf("serial.read_chunk_bytes must be positive, got %d", c.Serial.ReadChunkBytes)
	}
	if c.Serial.DefaultBaud <= 0 {
		return fmt.Errorf("serial.default_baud must be positive, got %d", c.Serial.DefaultBaud)
	}
	for i, dev := range c.Serial.Devices {
		if dev.Path == "" {
			return fmt.Errorf("serial.devices[%d].path is empty", i)
		}
	}
	if c.EventLog.Path == "" {
		return fmt.Errorf("eventlog.path is empty")
	}
	if c.Registry.Persist && c.Registry.Database.Path == "" {
		return fmt.Errorf("registry.database.path required when registry.persist is enabled")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			return fmt.Errorf("mqtt.broker.host required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1, or 2, got %d", c.MQTT.QoS)
		}
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		return fmt.Errorf("influxdb.url required when influxdb is enabled")
	}
	return nil
}
