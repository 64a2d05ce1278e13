package discovery

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// DefaultInterfaceMatch selects the wireless interface on most Linux and
// Android systems
const DefaultInterfaceMatch = "wlan"

// dottedQuad matches a strict IPv4 literal with every octet in 0-255
var dottedQuad = regexp.MustCompile(`^(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)(\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)){3}$`)

// Interface is the subset of a network interface the resolver inspects
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// InterfaceLister enumerates network interfaces
type InterfaceLister func() ([]Interface, error)

// SystemInterfaces lists the host's interfaces and their addresses
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			// An interface that vanished mid-enumeration just has no addresses
			addrs = nil
		}
		result = append(result, Interface{
			Name:  iface.Name,
			Flags: iface.Flags,
			Addrs: addrs,
		})
	}
	return result, nil
}

// Resolver determines the IPv4 broadcast address of the local wireless network
type Resolver struct {
	// Match is the substring an interface name must contain
	Match string

	// Lister enumerates interfaces; SystemInterfaces when nil
	Lister InterfaceLister
}

// NewResolver creates a resolver matching interface names containing match.
// An empty match selects DefaultInterfaceMatch.
func NewResolver(match string) *Resolver {
	if match == "" {
		match = DefaultInterfaceMatch
	}
	return &Resolver{
		Match:  match,
		Lister: SystemInterfaces,
	}
}

// Resolve returns the broadcast address of the first matching interface
// carrying an IPv4 address. ok is false when no matching interface exists or
// its first IPv4 address has no broadcast address; that is an absent result,
// not an error.
// The returned error is only set when interfaces could not be enumerated.
func (r *Resolver) Resolve() (broadcast net.IP, ok bool, err error) {
	lister := r.Lister
	if lister == nil {
		lister = SystemInterfaces
	}
	match := r.Match
	if match == "" {
		match = DefaultInterfaceMatch
	}

	ifaces, err := lister()
	if err != nil {
		return nil, false, err
	}

	for _, iface := range ifaces {
		if !strings.Contains(iface.Name, match) {
			continue
		}

		// Only the first matching interface is considered
		for _, addr := range iface.Addrs {
			ipnet, isNet := addr.(*net.IPNet)
			if !isNet {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || !dottedQuad.MatchString(ip4.String()) {
				continue
			}
			// The first IPv4 address decides, even when it has no broadcast
			if bc := broadcastFor(iface.Flags, ip4, ipnet.Mask); bc != nil {
				return bc, true, nil
			}
			return nil, false, nil
		}
		return nil, false, nil
	}

	return nil, false, nil
}

// broadcastFor computes ip | ^mask, or nil when the link has no broadcast
// address (point-to-point, loopback, /31 and /32 networks)
func broadcastFor(flags net.Flags, ip4 net.IP, mask net.IPMask) net.IP {
	if flags&(net.FlagPointToPoint|net.FlagLoopback) != 0 {
		return nil
	}
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	if ones, _ := mask.Size(); ones >= 31 {
		return nil
	}

	bc := make(net.IP, net.IPv4len)
	for i := range bc {
		bc[i] = ip4[i] | ^mask[i]
	}
	return bc
}
