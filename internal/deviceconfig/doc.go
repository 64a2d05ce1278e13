// Package deviceconfig provides an HTTP client for the control API of LEDSync
// LED controllers.
//
// Each controller serves a small HTTP API on port 8080:
//
//	GET  /config              JSON object including device_name
//	PUT  /config/{key}?value= set one configuration key, 200 on success
//	POST /mode/toggle         toggle the operating mode, 200 on success
//
// # Usage Example
//
//	device, _ := reg.Get("192.168.1.40")
//	client := deviceconfig.NewClient(device).WithNameUpdater(reg)
//
//	// Refresh the device name from the controller
//	if err := client.ReloadConfiguration(ctx); err != nil {
//	    fmt.Println(deviceconfig.GetShortErrorMessage(err))
//	}
//
//	// Rename the controller; the registry is updated after the device accepts
//	accepted, err := client.SetConfigurationValue(ctx, "device_name", "Kitchen")
//
// # Rejected versus Failed
//
// The client distinguishes a device that answered but refused a change from a
// device that could not be reached. SetConfigurationValue and ToggleMode
// return false with a nil error for any non-200 response. Connection, timeout
// and DNS failures are returned as *DeviceError values classified by
// ClassifyNetworkError.
//
// # Thread Safety
//
// Client instances are safe for concurrent use. Nothing is cached; every call
// reads through to the device, and concurrent renames resolve last writer wins.
//
// # Error Handling
//
// All errors are *DeviceError or wrap one with %w. Use IsNetworkError,
// IsHTTPError, IsParseError and GetTroubleshootingHint to present them.
package deviceconfig
