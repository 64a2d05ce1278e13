package registry

import "github.com/muurk/ledsync/internal/discovery"

// Observer receives registry events. Callbacks are delivered one at a time,
// in mutation order, after the registry lock has been released. Observers may
// read the registry from a callback but must not mutate it synchronously.
type Observer interface {
	// OnDeviceDiscovered is called once per newly recorded address
	OnDeviceDiscovered(device *discovery.Device)

	// OnDevicesCleared is called after Clear removes every entry
	OnDevicesCleared()

	// OnDeviceUpdated is called after a configuration reload renamed a device
	OnDeviceUpdated(device *discovery.Device)
}

// ObserverFuncs adapts plain functions to the Observer interface.
// Nil fields are ignored.
type ObserverFuncs struct {
	Discovered func(*discovery.Device)
	Cleared    func()
	Updated    func(*discovery.Device)
}

// OnDeviceDiscovered implements Observer
func (f ObserverFuncs) OnDeviceDiscovered(device *discovery.Device) {
	if f.Discovered != nil {
		f.Discovered(device)
	}
}

// OnDevicesCleared implements Observer
func (f ObserverFuncs) OnDevicesCleared() {
	if f.Cleared != nil {
		f.Cleared()
	}
}

// OnDeviceUpdated implements Observer
func (f ObserverFuncs) OnDeviceUpdated(device *discovery.Device) {
	if f.Updated != nil {
		f.Updated(device)
	}
}
