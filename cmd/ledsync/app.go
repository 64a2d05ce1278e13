package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/muurk/ledsync/internal/config"
	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/registry"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

// bindTimeout bounds how long commands wait for the reply socket
const bindTimeout = 3 * time.Second

// session wires discovery, the registry and control clients from settings
type session struct {
	settings  *config.Settings
	registry  *registry.Registry
	resolver  *discovery.Resolver
	announcer *discovery.Announcer
	listener  *discovery.Listener
}

func newSession(s *config.Settings) *session {
	reg := registry.NewWithPort(s.Device.HTTPPort)

	announcer := discovery.NewAnnouncer()
	announcer.Port = s.Discovery.AnnouncePort

	listener := discovery.NewListener(s.Discovery.ListenPort, reg.Handle)
	listener.SetBufferSize(s.Discovery.BufferSize)

	return &session{
		settings:  s,
		registry:  reg,
		resolver:  discovery.NewResolver(s.Discovery.InterfaceMatch),
		announcer: announcer,
		listener:  listener,
	}
}

// supervisor returns a supervisor whose events go to the log
func supervisor(name string) *suture.Supervisor {
	logger := logging.Named("supervisor")
	return suture.New(name, suture.Spec{
		EventHook: func(e suture.Event) { logServiceEvent(logger, e) },
		Timeout:   5 * time.Second,
	})
}

// logServiceEvent reports UDP socket failures as errors and every other
// supervisor event as a warning
func logServiceEvent(logger *zap.Logger, e suture.Event) {
	if term, ok := e.(suture.EventServiceTerminate); ok {
		if err, isErr := term.Err.(error); isErr && discovery.IsSocketError(err) {
			logger.Error("UDP socket failed",
				zap.String("service", term.ServiceName),
				zap.Bool("restarting", term.Restarting),
				zap.Error(err),
			)
			return
		}
	}
	logger.Warn("Service event", zap.String("event", e.String()))
}

// startListener runs the reply listener under a supervisor until ctx ends.
// It returns once the socket is bound.
func (s *session) startListener(ctx context.Context) error {
	sup := supervisor("ledsync")
	sup.Add(s.listener)
	sup.ServeBackground(ctx)

	select {
	case <-s.listener.Bound():
		return nil
	case <-time.After(bindTimeout):
		return fmt.Errorf("could not listen for replies on UDP port %d (is another ledsync running?)", s.settings.Discovery.ListenPort)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// solicit sends one DEVICEID request
func (s *session) solicit(ctx context.Context) (net.IP, error) {
	return discovery.Solicit(ctx, s.resolver, s.announcer)
}

// discover clears the registry, sends one request and collects replies for
// the configured scan timeout
func (s *session) discover(ctx context.Context) ([]*discovery.Device, error) {
	if err := s.startListener(ctx); err != nil {
		return nil, err
	}
	s.registry.Clear()
	if _, err := s.solicit(ctx); err != nil {
		return nil, err
	}

	wait := time.NewTimer(s.settings.ScanTimeout())
	defer wait.Stop()
	select {
	case <-wait.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.registry.List(), nil
}

// client returns a control client for d that reports renames to the registry
func (s *session) client(d *discovery.Device) *deviceconfig.Client {
	c := deviceconfig.NewClient(d).WithNameUpdater(s.registry)
	c.SetTimeout(s.settings.RequestTimeout())
	return c
}

// resolveDevice picks the device a single-device command acts on.
// An IP address in --device is used directly. Otherwise discovery runs and
// --device, when set, selects a device by name.
func (s *session) resolveDevice(ctx context.Context, selector string) (*discovery.Device, error) {
	if ip := net.ParseIP(selector); ip != nil {
		return discovery.NewDeviceWithPort(selector, ip.String(), s.settings.Device.HTTPPort), nil
	}

	devices, err := s.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	return selectDevice(devices, selector)
}

var errNoDevices = errors.New("no LED controllers answered; use --device to give an IP address")

// selectDevice returns the device named selector, or the only device when
// selector is empty
func selectDevice(devices []*discovery.Device, selector string) (*discovery.Device, error) {
	if len(devices) == 0 {
		return nil, errNoDevices
	}

	if selector != "" {
		for _, d := range devices {
			if strings.EqualFold(d.Name(), selector) {
				return d, nil
			}
		}
		return nil, fmt.Errorf("no controller named %q among %s", selector, deviceNames(devices))
	}

	if len(devices) > 1 {
		return nil, fmt.Errorf("multiple controllers found (%s); use --device to choose one", deviceNames(devices))
	}
	return devices[0], nil
}

func deviceNames(devices []*discovery.Device) string {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = fmt.Sprintf("%s at %s", d.Name(), d.Address())
	}
	return strings.Join(names, ", ")
}
