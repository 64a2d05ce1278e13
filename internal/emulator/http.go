package emulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/muurk/ledsync/internal/logging"
	"go.uber.org/zap"
)

// HTTPServer serves a Device's control API
type HTTPServer struct {
	device *Device
	addr   string

	mu        sync.Mutex
	listener  net.Listener
	bound     chan struct{}
	boundOnce sync.Once
}

// NewHTTPServer creates a control API server for device on addr
func NewHTTPServer(device *Device, addr string) *HTTPServer {
	return &HTTPServer{
		device: device,
		addr:   addr,
		bound:  make(chan struct{}),
	}
}

// Bound is closed once the listener is open
func (s *HTTPServer) Bound() <-chan struct{} {
	return s.bound
}

// Addr returns the listening address, or nil before Serve binds
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *HTTPServer) String() string {
	return fmt.Sprintf("emulator.HTTPServer@%s", s.addr)
}

// Serve runs the control API until ctx is cancelled
func (s *HTTPServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp4", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.boundOnce.Do(func() { close(s.bound) })

	srv := &http.Server{
		Handler:           s.device.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	logging.Named("emulator").Info("Serving control API",
		zap.String("addr", ln.Addr().String()),
		zap.String("device", s.device.Name()),
	)

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
