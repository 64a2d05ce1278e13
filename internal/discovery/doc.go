// Package discovery provides UDP broadcast discovery for LEDSync LED controllers.
//
// LED controllers do not advertise themselves. A client broadcasts the
// request "DEVICEID" to UDP port 9080 on the local subnet and every
// controller answers with a unicast datagram "DEVICENAME:<name>" to UDP
// port 9081 on the requesting host.
//
// # Discovery Process
//
// The discovery process works as follows:
//  1. Resolver picks the first interface whose name contains "wlan" and
//     derives its IPv4 broadcast address
//  2. Announcer sends a single DEVICEID datagram to that address
//  3. Listener, a long running service, receives DEVICENAME replies and
//     hands each parsed Announcement to a callback
//
// The listener does not deduplicate; repeated announcements from the same
// device are delivered every time. Deduplication belongs to the registry.
//
// # Usage Example
//
//	listener := discovery.NewListener(discovery.ListenPort, func(a discovery.Announcement) {
//	    fmt.Printf("Found: %s at %s\n", a.Name, a.Address)
//	})
//	go listener.Serve(ctx)
//
//	broadcast, err := discovery.Solicit(ctx, discovery.NewResolver(""), discovery.NewAnnouncer())
//	if errors.Is(err, discovery.ErrNetworkUnavailable) {
//	    // not connected to a wireless network
//	}
//
// # Network Requirements
//
// - Devices must be on the same broadcast domain as the client
// - Firewall must allow inbound UDP 9081 and outbound broadcast to UDP 9080
//
// # Thread Safety
//
// Device is safe for concurrent use. A Listener must only be served once at a
// time; Announcer and Resolver hold no state between calls.
package discovery
