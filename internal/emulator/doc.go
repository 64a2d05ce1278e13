// Package emulator implements a fake LED controller for development and
// tests.
//
// A Device answers DEVICEID discovery requests with DEVICENAME:<name> and
// serves the controller HTTP API from an in-memory configuration:
//
//	GET  /config              {"device_name":..., "mode":..., "brightness":..., "color":...}
//	PUT  /config/:key?value=  200, 400 for a bad value, 404 for an unknown key
//	POST /mode/toggle         switches mode between "static" and "cycle"
//
// Both the Responder and the HTTP server implement suture.Service.
package emulator
