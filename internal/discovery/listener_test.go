package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu   sync.Mutex
	got  []Announcement
	seen chan struct{}
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan struct{}, 64)}
}

func (r *recorder) handle(a Announcement) {
	r.mu.Lock()
	r.got = append(r.got, a)
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func (r *recorder) announcements() []Announcement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Announcement(nil), r.got...)
}

func startListener(t *testing.T, handler Handler) (*Listener, context.CancelFunc, <-chan error) {
	t.Helper()

	l := NewListener(0, handler)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	select {
	case <-l.Bound():
	case err := <-done:
		cancel()
		t.Fatalf("Serve() returned before binding: %v", err)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("listener did not bind")
	}
	return l, cancel, done
}

func send(t *testing.T, l *Listener, payloads ...string) {
	t.Helper()

	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: l.LocalAddr().Port}
	conn, err := net.DialUDP("udp4", nil, dst)
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer func() { _ = conn.Close() }()

	for _, p := range payloads {
		if _, err := conn.Write([]byte(p)); err != nil {
			t.Fatalf("Write(%q): %v", p, err)
		}
	}
}

func waitFor(t *testing.T, rec *recorder, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-rec.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d announcements, want %d", i, n)
		}
	}
}

func TestListener_DeliversAnnouncement(t *testing.T) {
	rec := newRecorder()
	l, cancel, done := startListener(t, rec.handle)
	defer cancel()

	send(t, l, "DEVICENAME:Lamp1")
	waitFor(t, rec, 1)

	got := rec.announcements()
	if len(got) != 1 {
		t.Fatalf("got %d announcements, want 1", len(got))
	}
	if got[0].Name != "Lamp1" {
		t.Errorf("Announcement.Name = %q, want Lamp1", got[0].Name)
	}
	if got[0].Address != "127.0.0.1" {
		t.Errorf("Announcement.Address = %q, want 127.0.0.1", got[0].Address)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestListener_DropsMalformedAndKeepsRunning(t *testing.T) {
	rec := newRecorder()
	l, cancel, _ := startListener(t, rec.handle)
	defer cancel()

	// UDP on loopback preserves ordering in practice; the final valid
	// datagram proves the malformed ones before it were consumed.
	send(t, l, "FOO", "DEVICENAME", "DEVICEID", "DEVICENAME:Lamp2")
	waitFor(t, rec, 1)

	got := rec.announcements()
	if len(got) != 1 || got[0].Name != "Lamp2" {
		t.Errorf("announcements = %+v, want only Lamp2", got)
	}
}

func TestListener_RepeatsAreDelivered(t *testing.T) {
	rec := newRecorder()
	l, cancel, _ := startListener(t, rec.handle)
	defer cancel()

	send(t, l, "DEVICENAME:Lamp1", "DEVICENAME:Lamp1")
	waitFor(t, rec, 2)

	if got := rec.announcements(); len(got) != 2 {
		t.Errorf("got %d announcements, want 2", len(got))
	}
}

func TestListener_TruncatesOversizedDatagram(t *testing.T) {
	rec := newRecorder()
	l := NewListener(0, rec.handle)
	l.SetBufferSize(16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Serve(ctx) }()
	<-l.Bound()

	send(t, l, "DEVICENAME:ABCDEFGHIJKLMNOP")
	waitFor(t, rec, 1)

	got := rec.announcements()
	if got[0].Name != "ABCDE" {
		t.Errorf("Announcement.Name = %q, want truncated ABCDE", got[0].Name)
	}
}

func TestListener_BindFailure(t *testing.T) {
	occupied, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer func() { _ = occupied.Close() }()

	l := NewListener(occupied.LocalAddr().(*net.UDPAddr).Port, nil)
	err = l.Serve(context.Background())

	var sockErr *SocketError
	if !errors.As(err, &sockErr) {
		t.Fatalf("Serve() error = %v, want *SocketError", err)
	}
	if sockErr.Op != "bind" {
		t.Errorf("SocketError.Op = %q, want bind", sockErr.Op)
	}
}

func TestAnnouncer_Announce(t *testing.T) {
	device, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer func() { _ = device.Close() }()

	a := &Announcer{Port: device.LocalAddr().(*net.UDPAddr).Port, WriteTimeout: time.Second}
	if err := a.Announce(context.Background(), net.IPv4(127, 0, 0, 1)); err != nil {
		t.Fatalf("Announce() error = %v", err)
	}

	buf := make([]byte, 64)
	_ = device.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := device.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	if string(buf[:n]) != "DEVICEID" {
		t.Errorf("payload = %q, want DEVICEID", buf[:n])
	}
}

func TestAnnouncer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewAnnouncer().Announce(ctx, net.IPv4(127, 0, 0, 1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Announce() error = %v, want context.Canceled", err)
	}
}

func TestSolicit_NetworkUnavailable(t *testing.T) {
	r := &Resolver{Match: "wlan", Lister: staticLister(
		Interface{Name: "eth0", Flags: net.FlagUp | net.FlagBroadcast, Addrs: []net.Addr{ipNet(t, "10.0.0.2/8")}},
	)}

	_, err := Solicit(context.Background(), r, NewAnnouncer())
	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Errorf("Solicit() error = %v, want ErrNetworkUnavailable", err)
	}
}
