package discovery

import (
	"errors"
	"net"
	"testing"
)

func ipNet(t *testing.T, cidr string) *net.IPNet {
	t.Helper()
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		t.Fatalf("ParseCIDR(%q): %v", cidr, err)
	}
	ipnet.IP = ip
	return ipnet
}

func staticLister(ifaces ...Interface) InterfaceLister {
	return func() ([]Interface, error) {
		return ifaces, nil
	}
}

func TestResolver_Resolve(t *testing.T) {
	up := net.FlagUp | net.FlagBroadcast

	tests := []struct {
		name   string
		ifaces []Interface
		want   string
		wantOK bool
	}{
		{
			name: "wlan0 after eth0",
			ifaces: []Interface{
				{Name: "eth0", Flags: up, Addrs: []net.Addr{ipNet(t, "10.0.0.2/8")}},
				{Name: "wlan0", Flags: up, Addrs: []net.Addr{ipNet(t, "192.168.1.42/24")}},
			},
			want:   "192.168.1.255",
			wantOK: true,
		},
		{
			name: "IPv6 address is skipped",
			ifaces: []Interface{
				{Name: "wlan0", Flags: up, Addrs: []net.Addr{
					ipNet(t, "fe80::1/64"),
					ipNet(t, "172.16.32.33/20"),
				}},
			},
			want:   "172.16.47.255",
			wantOK: true,
		},
		{
			name: "only first matching interface is considered",
			ifaces: []Interface{
				{Name: "wlan0", Flags: up, Addrs: []net.Addr{ipNet(t, "fe80::1/64")}},
				{Name: "wlan1", Flags: up, Addrs: []net.Addr{ipNet(t, "192.168.7.3/24")}},
			},
			wantOK: false,
		},
		{
			name: "first IPv4 without broadcast decides",
			ifaces: []Interface{
				{Name: "wlan0", Flags: up, Addrs: []net.Addr{
					ipNet(t, "10.1.1.1/32"),
					ipNet(t, "192.168.1.42/24"),
				}},
			},
			wantOK: false,
		},
		{
			name: "substring match",
			ifaces: []Interface{
				{Name: "p2p-wlan0-0", Flags: up, Addrs: []net.Addr{ipNet(t, "192.168.49.1/24")}},
			},
			want:   "192.168.49.255",
			wantOK: true,
		},
		{
			name: "no wireless interface",
			ifaces: []Interface{
				{Name: "lo", Flags: net.FlagUp | net.FlagLoopback, Addrs: []net.Addr{ipNet(t, "127.0.0.1/8")}},
				{Name: "eth0", Flags: up, Addrs: []net.Addr{ipNet(t, "10.0.0.2/8")}},
			},
			wantOK: false,
		},
		{
			name:   "no interfaces at all",
			ifaces: nil,
			wantOK: false,
		},
		{
			name: "point-to-point link has no broadcast",
			ifaces: []Interface{
				{Name: "wlan0", Flags: net.FlagUp | net.FlagPointToPoint, Addrs: []net.Addr{ipNet(t, "10.8.0.2/24")}},
			},
			wantOK: false,
		},
		{
			name: "host route has no broadcast",
			ifaces: []Interface{
				{Name: "wlan0", Flags: up, Addrs: []net.Addr{ipNet(t, "192.168.1.42/32")}},
			},
			wantOK: false,
		},
		{
			name: "non IPNet address is skipped",
			ifaces: []Interface{
				{Name: "wlan0", Flags: up, Addrs: []net.Addr{
					&net.IPAddr{IP: net.ParseIP("192.168.1.42")},
					ipNet(t, "192.168.1.42/24"),
				}},
			},
			want:   "192.168.1.255",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{Match: "wlan", Lister: staticLister(tt.ifaces...)}

			got, ok, err := r.Resolve()
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v (got %v)", ok, tt.wantOK, got)
			}
			if ok && got.String() != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_ListerError(t *testing.T) {
	listErr := errors.New("netlink unavailable")
	r := &Resolver{Lister: func() ([]Interface, error) { return nil, listErr }}

	_, ok, err := r.Resolve()
	if !errors.Is(err, listErr) {
		t.Errorf("Resolve() error = %v, want %v", err, listErr)
	}
	if ok {
		t.Error("Resolve() ok = true, want false")
	}
}

func TestResolver_CustomMatch(t *testing.T) {
	r := NewResolver("en")
	r.Lister = staticLister(
		Interface{Name: "lo0", Flags: net.FlagUp | net.FlagLoopback, Addrs: []net.Addr{ipNet(t, "127.0.0.1/8")}},
		Interface{Name: "en0", Flags: net.FlagUp | net.FlagBroadcast, Addrs: []net.Addr{ipNet(t, "10.1.2.3/16")}},
	)

	got, ok, err := r.Resolve()
	if err != nil || !ok {
		t.Fatalf("Resolve() = %v, %v, %v", got, ok, err)
	}
	if got.String() != "10.1.255.255" {
		t.Errorf("Resolve() = %v, want 10.1.255.255", got)
	}
}

func TestNewResolver_DefaultMatch(t *testing.T) {
	if r := NewResolver(""); r.Match != DefaultInterfaceMatch {
		t.Errorf("NewResolver(\"\").Match = %q, want %q", r.Match, DefaultInterfaceMatch)
	}
}

func TestBroadcastFor(t *testing.T) {
	cases := []struct {
		addr  string
		bcast string
	}{
		{"172.16.32.33/24", "172.16.32.255"},
		{"10.20.30.40/16", "10.20.255.255"},
		{"192.168.0.1/30", "192.168.0.3"},
		{"10.0.0.1/8", "10.255.255.255"},
	}

	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			ipnet := ipNet(t, tc.addr)
			got := broadcastFor(net.FlagBroadcast, ipnet.IP.To4(), ipnet.Mask)
			if got.String() != tc.bcast {
				t.Errorf("broadcastFor(%s) = %v, want %v", tc.addr, got, tc.bcast)
			}
		})
	}
}

func TestDottedQuad(t *testing.T) {
	valid := []string{"0.0.0.0", "192.168.1.42", "255.255.255.255", "10.0.0.01"}
	invalid := []string{"256.1.1.1", "1.2.3", "1.2.3.4.5", "a.b.c.d", "fe80::1", ""}

	for _, s := range valid {
		if !dottedQuad.MatchString(s) {
			t.Errorf("dottedQuad rejected %q", s)
		}
	}
	for _, s := range invalid {
		if dottedQuad.MatchString(s) {
			t.Errorf("dottedQuad accepted %q", s)
		}
	}
}
