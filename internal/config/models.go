package config

import (
	"fmt"
	"time"

	"github.com/muurk/ledsync/internal/discovery"
)

// CurrentVersion is the settings file format version
const CurrentVersion = 1

// Settings represents the entire user configuration file.
// Discovered devices are never stored here; the registry is rebuilt by
// discovery on every run.
type Settings struct {
	Version   int               `yaml:"version"`
	Discovery DiscoverySettings `yaml:"discovery"`
	Device    DeviceSettings    `yaml:"device"`
	Server    ServerSettings    `yaml:"server"`
	MQTT      MQTTSettings      `yaml:"mqtt"`
}

// DiscoverySettings controls the UDP broadcast discovery
type DiscoverySettings struct {
	InterfaceMatch string `yaml:"interface_match"` // Substring selecting the wireless interface
	AnnouncePort   int    `yaml:"announce_port"`   // Destination port for DEVICEID
	ListenPort     int    `yaml:"listen_port"`     // Port DEVICENAME replies arrive on
	BufferSize     int    `yaml:"buffer_size"`     // Receive buffer; longer datagrams are truncated
	ScanTimeout    int    `yaml:"scan_timeout"`    // Seconds 'scan' waits for replies
}

// DeviceSettings controls the HTTP control client
type DeviceSettings struct {
	HTTPPort       int `yaml:"http_port"`       // Controller HTTP port
	RequestTimeout int `yaml:"request_timeout"` // Per-request timeout in seconds
}

// ServerSettings controls 'ledsync serve'
type ServerSettings struct {
	Listen       string  `yaml:"listen"`        // API listen address
	Advertise    bool    `yaml:"advertise"`     // Publish the API over mDNS
	DiscoverRate float64 `yaml:"discover_rate"` // Broadcasts per second allowed via the API
	TLSCert      string  `yaml:"tls_cert"`      // Serve HTTPS when set together with tls_key
	TLSKey       string  `yaml:"tls_key"`
}

// MQTTSettings controls the optional MQTT bridge
type MQTTSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// Default returns settings with every value at its default
func Default() *Settings {
	return &Settings{
		Version: CurrentVersion,
		Discovery: DiscoverySettings{
			InterfaceMatch: discovery.DefaultInterfaceMatch,
			AnnouncePort:   discovery.AnnouncePort,
			ListenPort:     discovery.ListenPort,
			BufferSize:     discovery.DefaultBufferSize,
			ScanTimeout:    5,
		},
		Device: DeviceSettings{
			HTTPPort:       discovery.DefaultHTTPPort,
			RequestTimeout: 10,
		},
		Server: ServerSettings{
			Listen:       ":8090",
			Advertise:    false,
			DiscoverRate: 1,
		},
		MQTT: MQTTSettings{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			ClientID:    "ledsync",
			TopicPrefix: "ledsync",
			QoS:         1,
		},
	}
}

// ScanTimeout returns the discovery wait as a duration
func (s *Settings) ScanTimeout() time.Duration {
	return time.Duration(s.Discovery.ScanTimeout) * time.Second
}

// RequestTimeout returns the device request timeout as a duration
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.Device.RequestTimeout) * time.Second
}

// Validate checks that every value is usable
func (s *Settings) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion)
	}

	ports := map[string]int{
		"discovery.announce_port": s.Discovery.AnnouncePort,
		"discovery.listen_port":   s.Discovery.ListenPort,
		"device.http_port":        s.Device.HTTPPort,
	}
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be 1-65535, got %d", name, port)
		}
	}

	if s.Discovery.BufferSize < 64 || s.Discovery.BufferSize > 65507 {
		return fmt.Errorf("discovery.buffer_size must be 64-65507, got %d", s.Discovery.BufferSize)
	}
	if s.Discovery.ScanTimeout <= 0 {
		return fmt.Errorf("discovery.scan_timeout must be positive, got %d", s.Discovery.ScanTimeout)
	}
	if s.Device.RequestTimeout <= 0 {
		return fmt.Errorf("device.request_timeout must be positive, got %d", s.Device.RequestTimeout)
	}
	if s.Server.DiscoverRate <= 0 {
		return fmt.Errorf("server.discover_rate must be positive, got %v", s.Server.DiscoverRate)
	}
	if (s.Server.TLSCert == "") != (s.Server.TLSKey == "") {
		return fmt.Errorf("server.tls_cert and server.tls_key must be set together")
	}
	if s.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", s.MQTT.QoS)
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}

	return nil
}
