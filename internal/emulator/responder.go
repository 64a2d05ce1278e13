package emulator

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"go.uber.org/zap"
)

// Responder answers DEVICEID requests on behalf of a Device
type Responder struct {
	device    *Device
	addr      string
	replyPort int

	mu        sync.Mutex
	localAddr *net.UDPAddr
	bound     chan struct{}
	boundOnce sync.Once
}

// NewResponder creates a responder bound to addr (e.g. "0.0.0.0:9080") that
// replies to the requester's address on replyPort
func NewResponder(device *Device, addr string, replyPort int) *Responder {
	return &Responder{
		device:    device,
		addr:      addr,
		replyPort: replyPort,
		bound:     make(chan struct{}),
	}
}

// Bound is closed once the socket has been bound
func (r *Responder) Bound() <-chan struct{} {
	return r.bound
}

// LocalAddr returns the bound address, or nil before Serve binds
func (r *Responder) LocalAddr() *net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localAddr
}

func (r *Responder) String() string {
	return fmt.Sprintf("emulator.Responder@%s", r.addr)
}

// Serve answers requests until ctx is cancelled
func (r *Responder) Serve(ctx context.Context) error {
	log := logging.Named("emulator")

	laddr, err := net.ResolveUDPAddr("udp4", r.addr)
	if err != nil {
		return &discovery.SocketError{Op: "bind", Addr: r.addr, Err: err}
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return &discovery.SocketError{Op: "bind", Addr: r.addr, Err: err}
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	r.mu.Lock()
	r.localAddr, _ = conn.LocalAddr().(*net.UDPAddr)
	r.mu.Unlock()
	r.boundOnce.Do(func() { close(r.bound) })

	log.Info("Answering discovery requests", zap.String("addr", conn.LocalAddr().String()))

	buf := make([]byte, 64)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &discovery.SocketError{Op: "receive", Addr: conn.LocalAddr().String(), Err: err}
		}

		if !bytes.Equal(bytes.TrimRight(buf[:n], "\x00\r\n"), []byte(discovery.RequestPayload)) {
			logging.LogDiscarded(src.IP.String(), buf[:n])
			continue
		}

		dst := &net.UDPAddr{IP: src.IP, Port: r.replyPort}
		if _, err := conn.WriteToUDP(discovery.FormatAnnouncement(r.device.Name()), dst); err != nil {
			log.Warn("Failed to answer discovery request", zap.String("to", dst.String()), zap.Error(err))
			continue
		}
		log.Debug("Answered discovery request", zap.String("to", dst.String()))
	}
}
