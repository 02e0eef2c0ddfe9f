package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/muurk/btscan/internal/discovery"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 1

// Discovery backends selectable with scan.backend.
const (
	BackendBlueZ = "bluez"
	BackendBLE   = "ble"
	BackendMDNS  = "mdns"
	BackendSim   = "sim"
)

// Backends lists every valid scan.backend value.
var Backends = []string{BackendBlueZ, BackendBLE, BackendMDNS, BackendSim}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the entire user configuration file.
type Config struct {
	Version int          `yaml:"version"`
	Scan    ScanConfig   `yaml:"scan"`
	MDNS    MDNSConfig   `yaml:"mdns"`
	MQTT    MQTTConfig   `yaml:"mqtt"`
	Server  ServerConfig `yaml:"server"`
	Sim     SimConfig    `yaml:"sim"`
}

// ScanConfig controls the discovery session.
type ScanConfig struct {
	Backend        string        `yaml:"backend"`         // bluez, ble, mdns or sim
	Adapter        string        `yaml:"adapter"`         // BlueZ adapter id, e.g. hci0
	Timeout        time.Duration `yaml:"timeout"`         // Scan duration before auto-stop
	Dedup          string        `yaml:"dedup"`           // first-seen or latest
	RequireConsent bool          `yaml:"require_consent"` // Ask before the first scan
}

// MDNSConfig selects the service browsed by the mdns backend.
type MDNSConfig struct {
	Service string `yaml:"service"`
	Domain  string `yaml:"domain"`
}

// MQTTConfig configures publishing of session events to a broker.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

// ServerConfig configures the HTTP and WebSocket API.
type ServerConfig struct {
	Listen  string `yaml:"listen"`
	TLSCert string `yaml:"tls_cert,omitempty"` // PEM certificate; TLS is off when empty
	TLSKey  string `yaml:"tls_key,omitempty"`
}

// SimConfig configures the simulated radio.
type SimConfig struct {
	Interval time.Duration `yaml:"interval"`
	Devices  []SimDevice   `yaml:"devices"`
}

// SimDevice is one device the simulated radio reports.
type SimDevice struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name,omitempty"`
	RSSI    int    `yaml:"rssi"`
	Paired  bool   `yaml:"paired,omitempty"`
}

// DefaultBackend returns the backend used when none is configured.
func DefaultBackend() string {
	if runtime.GOOS == "linux" {
		return BackendBlueZ
	}
	return BackendBLE
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			Backend:        DefaultBackend(),
			Adapter:        "hci0",
			Timeout:        15 * time.Second,
			Dedup:          discovery.FirstSeenWins.String(),
			RequireConsent: true,
		},
		MDNS: MDNSConfig{
			Service: discovery.DefaultServiceType,
			Domain:  discovery.DefaultServiceDomain,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "btscan",
			TopicPrefix: "btscan",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8787",
		},
		Sim: SimConfig{
			Interval: 700 * time.Millisecond,
			Devices: []SimDevice{
				{Address: "AA:11:22:33:44:55", Name: "Phone", RSSI: -55, Paired: true},
				{Address: "BB:22:33:44:55:66", RSSI: -85},
				{Address: "CC:33:44:55:66:77", Name: "Headphones", RSSI: -64, Paired: true},
				{Address: "DD:44:55:66:77:88", Name: "Fitness Band", RSSI: -72},
			},
		},
	}
}

// DedupPolicy returns the parsed scan.dedup value.
func (c *Config) DedupPolicy() (discovery.DedupPolicy, error) {
	return discovery.ParseDedupPolicy(c.Scan.Dedup)
}

// Validate checks the config for values the scanner cannot use.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}

	if !validBackend(c.Scan.Backend) {
		return fmt.Errorf("%w: unknown scan.backend %q (expected one of %v)", ErrInvalid, c.Scan.Backend, Backends)
	}
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("%w: scan.timeout must be positive, got %s", ErrInvalid, c.Scan.Timeout)
	}
	if _, err := c.DedupPolicy(); err != nil {
		return fmt.Errorf("%w: scan.dedup: %v", ErrInvalid, err)
	}

	if c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2, got %d", ErrInvalid, c.MQTT.QoS)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalid)
	}

	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("%w: server.tls_cert and server.tls_key must be set together", ErrInvalid)
	}

	if c.Scan.Backend == BackendSim {
		if c.Sim.Interval <= 0 {
			return fmt.Errorf("%w: sim.interval must be positive, got %s", ErrInvalid, c.Sim.Interval)
		}
		for i, d := range c.Sim.Devices {
			if d.Address == "" {
				return fmt.Errorf("%w: sim.devices[%d] has no address", ErrInvalid, i)
			}
		}
	}

	return nil
}

func validBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}
