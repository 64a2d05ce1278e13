package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/registry"
)

// fakeController serves the device control API from an in-memory config
type fakeController struct {
	mu       sync.Mutex
	config   map[string]string
	toggles  int
	rejectOn string
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/config":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.config)
	case r.Method == http.MethodPut && len(r.URL.Path) > len("/config/"):
		key := r.URL.Path[len("/config/"):]
		if key == f.rejectOn {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.config[key] = r.URL.Query().Get("value")
	case r.Method == http.MethodPost && r.URL.Path == "/mode/toggle":
		f.toggles++
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// newTestServer wires a registry whose devices point at a fake controller
func newTestServer(t *testing.T) (*Server, *registry.Registry, *fakeController, *httptest.Server) {
	t.Helper()

	ctrl := &fakeController{
		config:   map[string]string{"device_name": "Lamp1", "mode": "static"},
		rejectOn: "unknown",
	}
	device := httptest.NewServer(ctrl)
	t.Cleanup(device.Close)

	u, err := url.Parse(device.URL)
	if err != nil {
		t.Fatalf("parse device URL: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())

	reg := registry.NewWithPort(port)
	srv, err := New(Config{RequestTimeout: 2 * time.Second, DiscoverRate: 100}, reg, discovery.NewResolver("wlan"), discovery.NewAnnouncer())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(srv.Close)

	return srv, reg, ctrl, device
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestGetDevices(t *testing.T) {
	srv, reg, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[[]discovery.DeviceInfo](t, rec); len(got) != 0 {
		t.Errorf("devices = %v, want empty list", got)
	}

	reg.RecordAnnouncement("Lamp1", "127.0.0.1")
	reg.RecordAnnouncement("Lamp2", "10.0.0.2")

	got := decode[[]discovery.DeviceInfo](t, do(t, h, http.MethodGet, "/api/devices"))
	if len(got) != 2 || got[0].Name != "Lamp1" || got[1].Address != "10.0.0.2" {
		t.Errorf("devices = %+v, want Lamp1 then 10.0.0.2", got)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/api/devices/10.9.9.9/config")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetDeviceConfig(t *testing.T) {
	srv, reg, _, _ := newTestServer(t)
	reg.RecordAnnouncement("Lamp1", "127.0.0.1")

	rec := do(t, srv.Handler(), http.MethodGet, "/api/devices/127.0.0.1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	got := decode[map[string]any](t, rec)
	if got["mode"] != "static" {
		t.Errorf("config = %v, want mode=static", got)
	}
}

func TestReload_UpdatesRegistry(t *testing.T) {
	srv, reg, ctrl, _ := newTestServer(t)
	reg.RecordAnnouncement("Stale", "127.0.0.1")

	var mu sync.Mutex
	var updated []string
	reg.Subscribe(registry.ObserverFuncs{
		Updated: func(d *discovery.Device) {
			mu.Lock()
			updated = append(updated, d.Name())
			mu.Unlock()
		},
	})

	ctrl.mu.Lock()
	ctrl.config["device_name"] = "Kitchen"
	ctrl.mu.Unlock()

	rec := do(t, srv.Handler(), http.MethodPost, "/api/devices/127.0.0.1/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got := decode[discovery.DeviceInfo](t, rec); got.Name != "Kitchen" {
		t.Errorf("device name = %q, want Kitchen", got.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updated) != 1 || updated[0] != "Kitchen" {
		t.Errorf("updated events = %v, want [Kitchen]", updated)
	}
}

func TestPutConfigValue(t *testing.T) {
	srv, reg, ctrl, _ := newTestServer(t)
	reg.RecordAnnouncement("Lamp1", "127.0.0.1")
	h := srv.Handler()

	tests := []struct {
		name         string
		target       string
		wantStatus   int
		wantAccepted bool
	}{
		{"accepted", "/api/devices/127.0.0.1/config/brightness?value=80", http.StatusOK, true},
		{"rejected by device", "/api/devices/127.0.0.1/config/unknown?value=1", http.StatusOK, false},
		{"missing value", "/api/devices/127.0.0.1/config/brightness", http.StatusBadRequest, false},
		{"empty device name", "/api/devices/127.0.0.1/config/device_name?value=", http.StatusBadRequest, false},
		{"colon in device name", "/api/devices/127.0.0.1/config/device_name?value=a:b", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Code != http.StatusOK {
				return
			}
			if got := decode[acceptedResponse](t, rec); got.Accepted != tt.wantAccepted {
				t.Errorf("accepted = %v, want %v", got.Accepted, tt.wantAccepted)
			}
		})
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.config["brightness"] != "80" {
		t.Errorf("controller brightness = %q, want 80", ctrl.config["brightness"])
	}
}

func TestPutConfigValue_RenameReachesRegistry(t *testing.T) {
	srv, reg, _, _ := newTestServer(t)
	reg.RecordAnnouncement("Lamp1", "127.0.0.1")

	rec := do(t, srv.Handler(), http.MethodPut, "/api/devices/127.0.0.1/config/device_name?value=Porch%20Light")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	d, _ := reg.Get("127.0.0.1")
	if d.Name() != "Porch Light" {
		t.Errorf("registry name = %q, want Porch Light", d.Name())
	}
}

func TestToggle(t *testing.T) {
	srv, reg, ctrl, _ := newTestServer(t)
	reg.RecordAnnouncement("Lamp1", "127.0.0.1")

	rec := do(t, srv.Handler(), http.MethodPost, "/api/devices/127.0.0.1/toggle")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[acceptedResponse](t, rec); !got.Accepted {
		t.Error("accepted = false, want true")
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.toggles != 1 {
		t.Errorf("toggles = %d, want 1", ctrl.toggles)
	}
}

func TestToggle_DeviceUnreachable(t *testing.T) {
	srv, reg, _, device := newTestServer(t)
	reg.RecordAnnouncement("Lamp1", "127.0.0.1")
	device.Close()

	rec := do(t, srv.Handler(), http.MethodPost, "/api/devices/127.0.0.1/toggle")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error == "" || got.Hint == "" {
		t.Errorf("error response = %+v, want message and hint", got)
	}
}

func TestDiscover(t *testing.T) {
	srv, reg, _, _ := newTestServer(t)
	reg.RecordAnnouncement("Old", "10.0.0.1")

	var calls int
	srv.solicit = func(context.Context) (net.IP, error) {
		calls++
		return net.IPv4(192, 168, 1, 255), nil
	}

	rec := do(t, srv.Handler(), http.MethodPost, "/api/discover")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if got := decode[discoverResponse](t, rec); got.Broadcast != "192.168.1.255" {
		t.Errorf("broadcast = %q, want 192.168.1.255", got.Broadcast)
	}
	if reg.Len() != 0 {
		t.Errorf("registry Len() = %d, want 0 after discover", reg.Len())
	}
	if calls != 1 {
		t.Errorf("solicit calls = %d, want 1", calls)
	}
}

func TestDiscover_NetworkUnavailable(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	srv.solicit = func(context.Context) (net.IP, error) {
		return nil, discovery.ErrNetworkUnavailable
	}

	rec := do(t, srv.Handler(), http.MethodPost, "/api/discover")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDiscover_SocketError(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	srv.solicit = func(context.Context) (net.IP, error) {
		return nil, &discovery.SocketError{Op: "send", Addr: "192.168.1.255:9080", Err: errors.New("boom")}
	}

	rec := do(t, srv.Handler(), http.MethodPost, "/api/discover")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestDiscover_RateLimited(t *testing.T) {
	reg := registry.New()
	srv, err := New(Config{DiscoverRate: 0.01}, reg, discovery.NewResolver("wlan"), discovery.NewAnnouncer())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Close()
	srv.solicit = func(context.Context) (net.IP, error) {
		return net.IPv4(10, 0, 0, 255), nil
	}
	h := srv.Handler()

	if rec := do(t, h, http.MethodPost, "/api/discover"); rec.Code != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/discover")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "100" {
		t.Errorf("Retry-After = %q, want 100", rec.Header().Get("Retry-After"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ledsync_registry_devices") {
		t.Error("/metrics does not expose ledsync_registry_devices")
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	reg := registry.New()
	srv, err := New(Config{Listen: "127.0.0.1:0"}, reg, discovery.NewResolver("wlan"), discovery.NewAnnouncer())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	select {
	case <-srv.Bound():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not bind")
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/api/devices")
	if err != nil {
		t.Fatalf("GET /api/devices: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestServe_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv, err := New(Config{Listen: ln.Addr().String()}, registry.New(), discovery.NewResolver("wlan"), discovery.NewAnnouncer())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Close()

	if err := srv.Serve(context.Background()); err == nil {
		t.Error("Serve() error = nil, want bind error")
	}
}

func TestNew_TLSRequiresBothFiles(t *testing.T) {
	if _, err := New(Config{CertPath: "/nonexistent/cert.pem"}, registry.New(), nil, nil); err == nil {
		t.Error("New() with cert but no key error = nil, want error")
	}
}

func TestAdvertiseText(t *testing.T) {
	txt := advertiseText(true)
	want := map[string]bool{"path=/api": false, "secure=true": false}
	for _, r := range txt {
		if _, ok := want[r]; ok {
			want[r] = true
		}
	}
	for r, seen := range want {
		if !seen {
			t.Errorf("advertiseText() = %v, missing %q", txt, r)
		}
	}
}
