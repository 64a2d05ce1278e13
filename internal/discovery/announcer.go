package discovery

import (
	"context"
	"net"
	"time"

	"github.com/muurk/ledsync/internal/logging"
	"go.uber.org/zap"
)

// DefaultWriteTimeout bounds a single DEVICEID send
const DefaultWriteTimeout = 5 * time.Second

// Announcer broadcasts the discovery request
type Announcer struct {
	// Port is the destination port devices listen on
	Port int

	// WriteTimeout bounds the send when the context has no deadline
	WriteTimeout time.Duration
}

// NewAnnouncer creates an announcer targeting AnnouncePort
func NewAnnouncer() *Announcer {
	return &Announcer{
		Port:         AnnouncePort,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Announce sends exactly one DEVICEID datagram to broadcast on the announce
// port. The socket is opened for this send only and always closed. Failures
// are returned as *SocketError; nothing is retried.
func (a *Announcer) Announce(ctx context.Context, broadcast net.IP) error {
	port := a.Port
	if port == 0 {
		port = AnnouncePort
	}
	dst := &net.UDPAddr{IP: broadcast, Port: port}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return &SocketError{Op: "bind", Err: err}
	}
	defer func() { _ = conn.Close() }()

	deadline, ok := ctx.Deadline()
	if !ok {
		timeout := a.WriteTimeout
		if timeout <= 0 {
			timeout = DefaultWriteTimeout
		}
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return &SocketError{Op: "send", Addr: dst.String(), Err: err}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := conn.WriteToUDP([]byte(RequestPayload), dst); err != nil {
		return &SocketError{Op: "send", Addr: dst.String(), Err: err}
	}

	metricAnnouncementsSent.Inc()
	logging.Named("discovery").Debug("Discovery request sent",
		zap.String("broadcast", dst.String()),
	)
	return nil
}

// Solicit resolves the broadcast address and sends one discovery request to
// it. It returns ErrNetworkUnavailable when no broadcast address exists.
func Solicit(ctx context.Context, r *Resolver, a *Announcer) (net.IP, error) {
	broadcast, ok, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNetworkUnavailable
	}
	if err := a.Announce(ctx, broadcast); err != nil {
		return broadcast, err
	}
	return broadcast, nil
}
