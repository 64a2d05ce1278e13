// Package server implements the LEDSync HTTP API used by 'ledsync serve'.
//
// The server exposes the device registry and the device control client so
// other programs can list, query and configure LED controllers without
// speaking the UDP discovery protocol themselves.
//
// # Endpoints
//
//	GET  /api/devices                          devices in discovery order
//	POST /api/discover                         clear the registry and broadcast DEVICEID
//	GET  /api/devices/:address                 one device
//	GET  /api/devices/:address/config          the device configuration
//	POST /api/devices/:address/reload          refresh the device name
//	PUT  /api/devices/:address/config/:key     set a value (?value=)
//	POST /api/devices/:address/toggle          toggle the operating mode
//	GET  /api/events                           WebSocket stream of registry events
//	GET  /metrics                              Prometheus metrics
//
// Devices that answer but refuse a change produce a 200 with
// {"accepted": false}. Devices that cannot be reached produce 502, or 504
// on timeout. POST /api/discover is rate limited and answers 429 when
// called too often and 503 when no broadcast address is available.
//
// # Event Stream
//
// Each registry change is sent as a JSON text message:
//
//	{"type":"device.discovered","device":{...},"timestamp":"..."}
//	{"type":"device.updated","device":{...},"timestamp":"..."}
//	{"type":"devices.cleared","timestamp":"..."}
//
// # Usage Example
//
//	srv, err := server.New(server.Config{Listen: ":8090"}, reg, resolver, announcer)
//	if err != nil {
//	    return err
//	}
//	supervisor.Add(srv)
//
// # Graceful Shutdown
//
// Cancelling the context passed to Serve closes event stream clients and
// shuts the HTTP server down, waiting briefly for in-flight requests.
package server
