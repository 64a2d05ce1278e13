package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/muurk/ledsync/internal/logging"
	"go.uber.org/zap"
)

// Handler receives every accepted announcement, including repeats.
// It is called synchronously on the listener goroutine.
type Handler func(Announcement)

// Listener receives DEVICENAME announcements on the listen port. It is a
// long running service: Serve blocks until the context is cancelled or the
// socket fails.
type Listener struct {
	port       int
	bufferSize int
	handler    Handler

	mu        sync.Mutex
	localAddr *net.UDPAddr
	bound     chan struct{}
	boundOnce sync.Once
}

// NewListener creates a listener on port that delivers announcements to
// handler. Port 0 binds an ephemeral port.
func NewListener(port int, handler Handler) *Listener {
	return &Listener{
		port:       port,
		bufferSize: DefaultBufferSize,
		handler:    handler,
		bound:      make(chan struct{}),
	}
}

// SetBufferSize changes the receive buffer size for the next Serve call
func (l *Listener) SetBufferSize(size int) {
	if size > 0 {
		l.bufferSize = size
	}
}

// Bound is closed once the listener socket has been bound for the first time
func (l *Listener) Bound() <-chan struct{} {
	return l.bound
}

// LocalAddr returns the bound socket address, or nil before Serve binds
func (l *Listener) LocalAddr() *net.UDPAddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.localAddr
}

// String implements fmt.Stringer for supervisor logging
func (l *Listener) String() string {
	return fmt.Sprintf("discovery.Listener@udp4:%d", l.port)
}

// Serve binds 0.0.0.0 on the listen port and dispatches announcements until
// ctx is cancelled. Cancellation closes the socket and returns nil. A bind or
// receive failure is returned as *SocketError. Malformed datagrams are dropped.
func (l *Listener) Serve(ctx context.Context) error {
	log := logging.Named("discovery")

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: l.port})
	if err != nil {
		return &SocketError{Op: "bind", Addr: fmt.Sprintf("0.0.0.0:%d", l.port), Err: err}
	}
	defer func() { _ = conn.Close() }()

	// Unblock ReadFromUDP on cancellation
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	l.mu.Lock()
	l.localAddr, _ = conn.LocalAddr().(*net.UDPAddr)
	l.mu.Unlock()
	l.boundOnce.Do(func() { close(l.bound) })

	log.Info("Listening for device announcements", zap.String("addr", conn.LocalAddr().String()))

	buf := make([]byte, l.bufferSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("Announcement listener stopped")
				return nil
			}
			return &SocketError{Op: "receive", Addr: conn.LocalAddr().String(), Err: err}
		}

		l.dispatch(buf[:n], src)
	}
}

func (l *Listener) dispatch(payload []byte, src *net.UDPAddr) {
	address := src.IP.String()

	ann, err := ParseAnnouncement(payload, address)
	if err != nil {
		metricDatagramsReceived.WithLabelValues(resultDiscarded).Inc()
		logging.LogDiscarded(address, payload)
		return
	}

	metricDatagramsReceived.WithLabelValues(resultAccepted).Inc()
	logging.LogAnnouncement(address, ann.Name)

	if l.handler != nil {
		l.handler(ann)
	}
}
