package registry

import (
	"sync"

	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var metricDevices = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "ledsync",
	Subsystem: "registry",
	Name:      "devices",
	Help:      "Number of devices currently held in the registry",
})

// Registry is the in-memory set of discovered devices, keyed by address and
// kept in discovery order.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices []*discovery.Device
	index   map[string]*discovery.Device
	port    int

	// notifyMu serializes mutation together with observer delivery so
	// callbacks arrive in the order mutations happened
	notifyMu sync.Mutex

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int

	logger *zap.Logger
}

// New creates an empty registry whose devices use the default HTTP port
func New() *Registry {
	return NewWithPort(discovery.DefaultHTTPPort)
}

// NewWithPort creates an empty registry whose devices serve their control
// API on port
func NewWithPort(port int) *Registry {
	return &Registry{
		index:     make(map[string]*discovery.Device),
		port:      port,
		observers: make(map[int]Observer),
		logger:    logging.Named("registry"),
	}
}

// Subscribe registers an observer and returns a function that removes it
func (r *Registry) Subscribe(o Observer) func() {
	r.obsMu.Lock()
	id := r.nextObsID
	r.nextObsID++
	r.observers[id] = o
	r.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.obsMu.Lock()
			delete(r.observers, id)
			r.obsMu.Unlock()
		})
	}
}

// RecordAnnouncement adds a device for address unless one already exists.
// An existing entry is returned unchanged, even when the announced name
// differs; names only change through UpdateName. created reports whether a
// new entry was inserted.
func (r *Registry) RecordAnnouncement(name, address string) (device *discovery.Device, created bool) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if existing, ok := r.index[address]; ok {
		r.mu.Unlock()
		return existing, false
	}
	device = discovery.NewDeviceWithPort(name, address, r.port)
	r.devices = append(r.devices, device)
	r.index[address] = device
	count := len(r.devices)
	r.mu.Unlock()

	metricDevices.Set(float64(count))
	r.logger.Info("Device discovered",
		zap.String("name", name),
		zap.String("address", address),
		zap.Int("count", count),
	)

	for _, o := range r.snapshotObservers() {
		o.OnDeviceDiscovered(device)
	}
	return device, true
}

// UpdateName sets the name of the device at address. Observers are notified
// only when the name actually changed. ok is false for unknown addresses.
func (r *Registry) UpdateName(address, name string) (device *discovery.Device, ok bool) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.RLock()
	device, ok = r.index[address]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	previous := device.Name()
	if previous == name {
		return device, true
	}
	device.SetName(name)

	r.logger.Info("Device renamed",
		zap.String("address", address),
		zap.String("from", previous),
		zap.String("to", name),
	)

	for _, o := range r.snapshotObservers() {
		o.OnDeviceUpdated(device)
	}
	return device, true
}

// Clear removes every device and notifies observers of the reset
func (r *Registry) Clear() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	removed := len(r.devices)
	r.devices = nil
	r.index = make(map[string]*discovery.Device)
	r.mu.Unlock()

	metricDevices.Set(0)
	r.logger.Debug("Registry cleared", zap.Int("removed", removed))

	for _, o := range r.snapshotObservers() {
		o.OnDevicesCleared()
	}
}

// List returns the devices in the order they were first discovered.
// The slice is a copy; the devices are shared.
func (r *Registry) List() []*discovery.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]*discovery.Device, len(r.devices))
	copy(devices, r.devices)
	return devices
}

// Get looks up a device by address
func (r *Registry) Get(address string) (*discovery.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.index[address]
	return device, ok
}

// Len returns the number of known devices
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Handle records an announcement; it matches discovery.Handler
func (r *Registry) Handle(a discovery.Announcement) {
	r.RecordAnnouncement(a.Name, a.Address)
}

func (r *Registry) snapshotObservers() []Observer {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()

	// Deliver in subscription order
	observers := make([]Observer, 0, len(r.observers))
	for id := 0; id < r.nextObsID; id++ {
		if o, ok := r.observers[id]; ok {
			observers = append(observers, o)
		}
	}
	return observers
}
