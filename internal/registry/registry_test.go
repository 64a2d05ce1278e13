package registry

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/muurk/ledsync/internal/discovery"
)

type event struct {
	kind    string
	name    string
	address string
}

type recordingObserver struct {
	mu     sync.Mutex
	events []event
}

func (o *recordingObserver) OnDeviceDiscovered(d *discovery.Device) {
	o.add(event{"discovered", d.Name(), d.Address()})
}

func (o *recordingObserver) OnDevicesCleared() {
	o.add(event{kind: "cleared"})
}

func (o *recordingObserver) OnDeviceUpdated(d *discovery.Device) {
	o.add(event{"updated", d.Name(), d.Address()})
}

func (o *recordingObserver) add(e event) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() []event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]event(nil), o.events...)
}

func TestRecordAnnouncement_Idempotent(t *testing.T) {
	r := New()
	obs := &recordingObserver{}
	r.Subscribe(obs)

	first, created := r.RecordAnnouncement("Lamp1", "10.0.0.5")
	if !created {
		t.Fatal("first RecordAnnouncement() created = false, want true")
	}

	second, created := r.RecordAnnouncement("Renamed", "10.0.0.5")
	if created {
		t.Error("second RecordAnnouncement() created = true, want false")
	}
	if second != first {
		t.Error("second RecordAnnouncement() returned a different device")
	}
	if second.Name() != "Lamp1" {
		t.Errorf("Name() = %q, want name from first announcement Lamp1", second.Name())
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	events := obs.snapshot()
	if len(events) != 1 || events[0] != (event{"discovered", "Lamp1", "10.0.0.5"}) {
		t.Errorf("events = %+v, want one discovered event for Lamp1", events)
	}
}

func TestList_PreservesDiscoveryOrder(t *testing.T) {
	r := New()
	addrs := []string{"10.0.0.9", "10.0.0.2", "10.0.0.5", "10.0.0.1"}
	for i, addr := range addrs {
		r.RecordAnnouncement(fmt.Sprintf("dev%d", i), addr)
	}
	// Repeats must not move entries
	r.RecordAnnouncement("again", "10.0.0.9")

	list := r.List()
	if len(list) != len(addrs) {
		t.Fatalf("List() returned %d devices, want %d", len(list), len(addrs))
	}
	for i, d := range list {
		if d.Address() != addrs[i] {
			t.Errorf("List()[%d].Address() = %s, want %s", i, d.Address(), addrs[i])
		}
		if i > 0 && d.DiscoveredAt.Before(list[i-1].DiscoveredAt) {
			t.Errorf("List()[%d] discovered before List()[%d]", i, i-1)
		}
	}
}

func TestList_ReturnsCopy(t *testing.T) {
	r := New()
	r.RecordAnnouncement("Lamp1", "10.0.0.5")

	list := r.List()
	list[0] = nil

	if r.List()[0] == nil {
		t.Error("modifying List() result changed the registry")
	}
}

func TestClear(t *testing.T) {
	r := New()
	obs := &recordingObserver{}
	r.Subscribe(obs)

	r.RecordAnnouncement("Lamp1", "10.0.0.5")
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", r.Len())
	}
	if _, ok := r.Get("10.0.0.5"); ok {
		t.Error("Get() found a device after Clear()")
	}

	// The same address is new again after a reset
	if _, created := r.RecordAnnouncement("Lamp1", "10.0.0.5"); !created {
		t.Error("RecordAnnouncement() after Clear() created = false, want true")
	}

	want := []event{
		{"discovered", "Lamp1", "10.0.0.5"},
		{kind: "cleared"},
		{"discovered", "Lamp1", "10.0.0.5"},
	}
	got := obs.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestUpdateName(t *testing.T) {
	r := New()
	obs := &recordingObserver{}
	r.Subscribe(obs)
	r.RecordAnnouncement("Lamp1", "10.0.0.5")

	device, ok := r.UpdateName("10.0.0.5", "Kitchen")
	if !ok {
		t.Fatal("UpdateName() ok = false, want true")
	}
	if device.Name() != "Kitchen" || device.Address() != "10.0.0.5" {
		t.Errorf("device = %s, want Kitchen at 10.0.0.5", device)
	}

	// Same name again is not an update
	r.UpdateName("10.0.0.5", "Kitchen")

	if _, ok := r.UpdateName("10.0.0.99", "Ghost"); ok {
		t.Error("UpdateName() for unknown address ok = true, want false")
	}

	events := obs.snapshot()
	if len(events) != 2 || events[1] != (event{"updated", "Kitchen", "10.0.0.5"}) {
		t.Errorf("events = %+v, want discovered then one updated", events)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	r := New()
	obs := &recordingObserver{}
	unsubscribe := r.Subscribe(obs)

	r.RecordAnnouncement("Lamp1", "10.0.0.5")
	unsubscribe()
	unsubscribe()
	r.RecordAnnouncement("Lamp2", "10.0.0.6")

	if n := len(obs.snapshot()); n != 1 {
		t.Errorf("observer received %d events, want 1", n)
	}
}

func TestObserverFuncs(t *testing.T) {
	r := New()

	var discovered, cleared int
	r.Subscribe(ObserverFuncs{
		Discovered: func(*discovery.Device) { discovered++ },
		Cleared:    func() { cleared++ },
	})

	r.RecordAnnouncement("Lamp1", "10.0.0.5")
	r.UpdateName("10.0.0.5", "Lamp2")
	r.Clear()

	if discovered != 1 || cleared != 1 {
		t.Errorf("discovered = %d, cleared = %d, want 1 and 1", discovered, cleared)
	}
}

func TestObserver_CanReadRegistry(t *testing.T) {
	r := New()

	var seen int
	r.Subscribe(ObserverFuncs{
		Discovered: func(*discovery.Device) { seen = r.Len() },
	})

	r.RecordAnnouncement("Lamp1", "10.0.0.5")
	if seen != 1 {
		t.Errorf("Len() inside callback = %d, want 1", seen)
	}
}

func TestHandle_MatchesListenerHandler(t *testing.T) {
	r := New()
	var handler discovery.Handler = r.Handle

	handler(discovery.Announcement{Name: "Lamp1", Address: "10.0.0.5"})
	handler(discovery.Announcement{Name: "Lamp1", Address: "10.0.0.5"})

	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestHandle_MalformedDatagramsAreNotRecorded(t *testing.T) {
	r := New()
	obs := &recordingObserver{}
	r.Subscribe(obs)
	discovered := make(chan struct{}, 8)
	r.Subscribe(ObserverFuncs{Discovered: func(*discovery.Device) { discovered <- struct{}{} }})

	l := discovery.NewListener(0, r.Handle)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Serve(ctx) }()
	select {
	case <-l.Bound():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not bind")
	}

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: l.LocalAddr().Port})
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer func() { _ = conn.Close() }()

	// The trailing valid datagram marks the point where the rest were consumed
	for _, p := range []string{"FOO", "DEVICENAME", "", "DEVICEID", "DEVICENAME:Marker"} {
		if _, err := conn.Write([]byte(p)); err != nil {
			t.Fatalf("Write(%q): %v", p, err)
		}
	}

	select {
	case <-discovered:
	case <-time.After(2 * time.Second):
		t.Fatal("marker announcement never arrived")
	}

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want only the marker device", r.Len())
	}
	if d := r.List()[0]; d.Name() != "Marker" {
		t.Errorf("device = %q, want Marker", d.Name())
	}
	if got := obs.snapshot(); len(got) != 1 || got[0].kind != "discovered" {
		t.Errorf("events = %+v, want a single discovery", got)
	}
}

func TestRecordAnnouncement_Concurrent(t *testing.T) {
	r := New()
	obs := &recordingObserver{}
	r.Subscribe(obs)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for j := 0; j < 5; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r.RecordAnnouncement("dev", fmt.Sprintf("10.0.1.%d", i))
			}(i)
		}
	}
	wg.Wait()

	if r.Len() != 20 {
		t.Errorf("Len() = %d, want 20", r.Len())
	}
	if n := len(obs.snapshot()); n != 20 {
		t.Errorf("observer received %d discovered events, want 20", n)
	}

	// Delivery order matches registry order
	events := obs.snapshot()
	for i, d := range r.List() {
		if events[i].address != d.Address() {
			t.Errorf("event[%d] address = %s, List()[%d] = %s", i, events[i].address, i, d.Address())
		}
	}
}

func TestNewWithPort(t *testing.T) {
	r := NewWithPort(18080)
	d, _ := r.RecordAnnouncement("Lamp1", "127.0.0.1")

	if d.BaseURL() != "http://127.0.0.1:18080" {
		t.Errorf("BaseURL() = %s, want http://127.0.0.1:18080", d.BaseURL())
	}
}
