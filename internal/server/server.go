package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/registry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultListen is the default API listen address
	DefaultListen = ":8090"

	// shutdownTimeout bounds how long in-flight requests may run after cancel
	shutdownTimeout = 5 * time.Second
)

// Config holds the server configuration
type Config struct {
	Listen         string        // Address to listen on, e.g. ":8090"
	Advertise      bool          // Publish the API over mDNS as _ledsync._tcp
	DiscoverRate   float64       // Broadcasts per second allowed through POST /api/discover
	RequestTimeout time.Duration // Timeout for requests forwarded to devices
	CertPath       string        // Serve HTTPS when set together with KeyPath
	KeyPath        string
}

// Server exposes the registry and the device control client over HTTP.
//
// It implements suture.Service so it can run under the same supervisor as
// the discovery listener.
type Server struct {
	config    Config
	registry  *registry.Registry
	tlsConfig *tls.Config
	limiter   *rate.Limiter
	hub       *Hub
	logger    *zap.Logger

	// solicit resolves the broadcast address and sends one DEVICEID request
	solicit func(ctx context.Context) (net.IP, error)

	unsubscribe func()

	mu        sync.Mutex
	listener  net.Listener
	bound     chan struct{}
	boundOnce sync.Once
}

// New creates a Server over reg. Discovery requests use resolver and
// announcer. The server subscribes to reg immediately; call Close to detach.
func New(config Config, reg *registry.Registry, resolver *discovery.Resolver, announcer *discovery.Announcer) (*Server, error) {
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if config.DiscoverRate <= 0 {
		config.DiscoverRate = 1
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:    config,
		registry:  reg,
		tlsConfig: tlsConfig,
		limiter:   rate.NewLimiter(rate.Limit(config.DiscoverRate), 1),
		hub:       NewHub(),
		logger:    logging.Named("server"),
		solicit: func(ctx context.Context) (net.IP, error) {
			return discovery.Solicit(ctx, resolver, announcer)
		},
		bound: make(chan struct{}),
	}
	s.unsubscribe = reg.Subscribe(s.hub)

	return s, nil
}

// Handler returns the HTTP handler serving the API, the event stream and
// the metrics endpoint
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/api/devices", s.getDevices)
	router.HandlerFunc(http.MethodPost, "/api/discover", s.postDiscover)
	router.GET("/api/devices/:address", s.getDevice)
	router.GET("/api/devices/:address/config", s.getDeviceConfig)
	router.PUT("/api/devices/:address/config/:key", s.putDeviceConfigValue)
	router.POST("/api/devices/:address/reload", s.postDeviceReload)
	router.POST("/api/devices/:address/toggle", s.postDeviceToggle)
	router.Handler(http.MethodGet, "/api/events", s.hub)
	router.Handler(http.MethodGet, "/metrics", metricsHandler())

	return logRequests(router)
}

// Serve listens on the configured address and serves until ctx is cancelled.
// Cancellation shuts the HTTP server down gracefully and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.boundOnce.Do(func() { close(s.bound) })

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if s.tlsConfig != nil {
		scheme = "https"
	}
	s.logger.Info("API server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("scheme", scheme),
	)

	if s.config.Advertise {
		adv, err := Advertise(ln.Addr().(*net.TCPAddr).Port, s.tlsConfig != nil)
		if err != nil {
			s.logger.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	stop := context.AfterFunc(ctx, func() {
		s.logger.Info("Shutting down API server...")
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = httpSrv.Close()
		}
	})
	defer stop()

	err = httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
		return nil
	}
	return err
}

// Bound is closed once Serve has opened its listener
func (s *Server) Bound() <-chan struct{} {
	return s.bound
}

// Addr returns the listening address, or nil before Serve binds
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GetActiveConnections returns the number of connected event stream clients
func (s *Server) GetActiveConnections() int {
	return s.hub.ClientCount()
}

// Close detaches the server from the registry and drops event stream clients
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.closeAll()
}

func (s *Server) String() string {
	return fmt.Sprintf("api server %s", s.config.Listen)
}
