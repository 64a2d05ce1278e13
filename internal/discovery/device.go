package discovery

import (
	"fmt"
	"sync"
	"time"
)

// DefaultHTTPPort is the port LED controllers serve their control API on
const DefaultHTTPPort = 8080

// Device represents a discovered LED controller on the network.
//
// The address is fixed when the device is created and identifies it for the
// lifetime of the process. The name is owned by the device itself and is
// refreshed from its configuration; it may be stale until the first reload.
type Device struct {
	address string
	port    int

	mu   sync.RWMutex
	name string

	// DiscoveredAt is when the first announcement for this address arrived
	DiscoveredAt time.Time
}

// DeviceInfo is a point-in-time copy of a Device, safe to serialize
type DeviceInfo struct {
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	BaseURL      string    `json:"base_url"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// NewDevice creates a device for an announcement received from address
func NewDevice(name, address string) *Device {
	return NewDeviceWithPort(name, address, DefaultHTTPPort)
}

// NewDeviceWithPort creates a device whose control API listens on port
func NewDeviceWithPort(name, address string, port int) *Device {
	if port == 0 {
		port = DefaultHTTPPort
	}
	return &Device{
		address:      address,
		port:         port,
		name:         name,
		DiscoveredAt: time.Now(),
	}
}

// Name returns the last known device name
func (d *Device) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// SetName replaces the device name. Only configuration reloads should call
// this; announcements never overwrite a known name.
func (d *Device) SetName(name string) {
	d.mu.Lock()
	d.name = name
	d.mu.Unlock()
}

// Address returns the IP address (or hostname) the device announced from
func (d *Device) Address() string {
	return d.address
}

// Port returns the HTTP port of the device control API
func (d *Device) Port() int {
	return d.port
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.address, d.port)
}

// Info returns a snapshot of the device
func (d *Device) Info() DeviceInfo {
	return DeviceInfo{
		Name:         d.Name(),
		Address:      d.address,
		BaseURL:      d.BaseURL(),
		DiscoveredAt: d.DiscoveredAt,
	}
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("LED Device %q at %s", d.Name(), d.address)
}
