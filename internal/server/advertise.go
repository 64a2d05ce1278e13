package server

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/version"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service the API is published under
	ServiceType = "_ledsync._tcp"

	serviceDomain   = "local."
	serviceInstance = "LEDSync"
)

// Advertise publishes the API on port over mDNS. Call Shutdown on the
// returned server to withdraw it.
func Advertise(port int, secure bool) (*zeroconf.Server, error) {
	srv, err := zeroconf.Register(serviceInstance, ServiceType, serviceDomain, port, advertiseText(secure), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising API over mDNS",
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return srv, nil
}

func advertiseText(secure bool) []string {
	return []string{
		"path=/api",
		"version=" + version.Version,
		fmt.Sprintf("secure=%t", secure),
	}
}
