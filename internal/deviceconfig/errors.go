package deviceconfig

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType is the category of a DeviceError
type ErrorType int

const (
	ErrTypeNetwork ErrorType = iota
	ErrTypeTimeout
	ErrTypeConnectionRefused
	ErrTypeDNS
	ErrTypeHTTP  // non-2xx answer to a read
	ErrTypeParse // body is not a JSON object, or device_name is missing
	ErrTypeValidation
)

var errorTypeNames = [...]string{
	ErrTypeNetwork:           "Network Error",
	ErrTypeTimeout:           "Timeout",
	ErrTypeConnectionRefused: "Connection Refused",
	ErrTypeDNS:               "DNS Error",
	ErrTypeHTTP:              "HTTP Error",
	ErrTypeParse:             "Parse Error",
	ErrTypeValidation:        "Validation Error",
}

func (et ErrorType) String() string {
	if et >= 0 && int(et) < len(errorTypeNames) {
		return errorTypeNames[et]
	}
	return fmt.Sprintf("ErrorType(%d)", int(et))
}

// NetworkErrorSubtype narrows a transport failure
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// DeviceError is returned by every Client operation that fails.
// A device that answers but refuses a change is not an error.
type DeviceError struct {
	Type           ErrorType
	Message        string
	StatusCode     int // HTTP errors only
	Err            error
	NetworkSubtype NetworkErrorSubtype
	DeviceIP       string
	Retryable      bool
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// errnoClasses maps socket errors seen when dialing a controller
var errnoClasses = []struct {
	errno   syscall.Errno
	typ     ErrorType
	subtype NetworkErrorSubtype
	message string
}{
	{syscall.ECONNREFUSED, ErrTypeConnectionRefused, NetworkErrorConnectionRefused, "Device refused connection"},
	{syscall.EHOSTUNREACH, ErrTypeNetwork, NetworkErrorHostUnreachable, "Host unreachable"},
	{syscall.ENETUNREACH, ErrTypeNetwork, NetworkErrorNetworkUnreachable, "Network unreachable"},
}

// ClassifyNetworkError turns a transport error into a DeviceError. Only DNS
// failures are not retryable. It returns nil for a nil err.
func ClassifyNetworkError(err error, deviceIP string) *DeviceError {
	if err == nil {
		return nil
	}

	devErr := &DeviceError{
		Type:      ErrTypeNetwork,
		Message:   "Network error occurred",
		Err:       err,
		DeviceIP:  deviceIP,
		Retryable: true,
	}

	var dnsErr *net.DNSError
	switch {
	case os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded):
		devErr.Type, devErr.NetworkSubtype = ErrTypeTimeout, NetworkErrorTimeout
		devErr.Message = "Request timed out"
	case errors.As(err, &dnsErr):
		devErr.Type, devErr.NetworkSubtype = ErrTypeDNS, NetworkErrorDNS
		devErr.Message = fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
		devErr.Retryable = false
	default:
		for _, c := range errnoClasses {
			if errors.Is(err, c.errno) {
				devErr.Type, devErr.NetworkSubtype, devErr.Message = c.typ, c.subtype, c.message
				break
			}
		}
	}
	return devErr
}

// NewNetworkError classifies err and replaces the message with message
func NewNetworkError(message string, err error, deviceIP string) *DeviceError {
	if devErr := ClassifyNetworkError(err, deviceIP); devErr != nil {
		devErr.Message = message
		return devErr
	}
	return &DeviceError{Type: ErrTypeNetwork, Message: message, DeviceIP: deviceIP, Retryable: true}
}

// NewHTTPError reports a non-2xx answer to a read. 5xx is retryable.
func NewHTTPError(statusCode int, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeParse, Message: message, Err: err}
}

// NewValidationError reports a request refused before anything was sent
func NewValidationError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeValidation, Message: message}
}

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

func hasType(err error, types ...ErrorType) bool {
	devErr, ok := asDeviceError(err)
	if !ok {
		return false
	}
	for _, t := range types {
		if devErr.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError reports any transport failure, including timeouts,
// refused connections and DNS errors
func IsNetworkError(err error) bool {
	return hasType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

func IsHTTPError(err error) bool       { return hasType(err, ErrTypeHTTP) }
func IsParseError(err error) bool      { return hasType(err, ErrTypeParse) }
func IsValidationError(err error) bool { return hasType(err, ErrTypeValidation) }

// IsRetryable reports whether repeating the same request may succeed.
// Errors that are not DeviceErrors are never retryable.
func IsRetryable(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Retryable
}

// hint is troubleshooting text: a summary followed by bulleted tips
type hint struct {
	summary []string
	tips    []string
}

func (h hint) String() string {
	lines := append([]string(nil), h.summary...)
	if len(h.tips) > 0 {
		lines = append(lines, "Troubleshooting:")
		for _, tip := range h.tips {
			lines = append(lines, "  • "+tip)
		}
	}
	return strings.Join(lines, "\n")
}

func hintFor(devErr *DeviceError) hint {
	switch devErr.Type {
	case ErrTypeTimeout:
		return hint{
			summary: []string{"The LED controller did not respond in time."},
			tips: []string{
				"Check that the controller is powered on",
				"Verify it is still on the same wireless network",
				"Try increasing the request timeout (device.request_timeout)",
			},
		}
	case ErrTypeConnectionRefused:
		return hint{
			summary: []string{"The LED controller refused the connection."},
			tips: []string{
				"The controller's HTTP server may not be running - try power cycling it",
				"Verify the control port (default is 8080)",
				"Run 'ledsync scan' to check the controller still answers discovery",
			},
		}
	case ErrTypeDNS:
		return hint{
			summary: []string{"Could not resolve the controller hostname."},
			tips: []string{
				"Use the IP address shown by 'ledsync scan' instead",
				"Check your network DNS settings",
			},
		}
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return hint{
				summary: []string{"Network communication failed.", "The controller is not reachable on the network."},
				tips: []string{
					"Verify the controller address is correct",
					"Check that you're on the same network as the controller",
					"Try pinging the controller: ping " + devErr.DeviceIP,
				},
			}
		case NetworkErrorNetworkUnreachable:
			return hint{
				summary: []string{"Network communication failed.", "Your computer cannot reach the controller's network."},
				tips: []string{
					"Connect to the wireless network the controllers use",
					"Check your network adapter settings",
				},
			}
		}
		return hint{
			summary: []string{"Network communication failed."},
			tips: []string{
				"Check your network connection",
				"Verify the controller is powered on",
				"Ensure you're connected to the correct network",
			},
		}
	case ErrTypeHTTP:
		if devErr.StatusCode >= 500 {
			return hint{
				summary: []string{fmt.Sprintf("The controller returned an error (HTTP %d).", devErr.StatusCode)},
				tips: []string{
					"Try power cycling the controller",
					"Check whether a firmware update is available",
				},
			}
		}
		return hint{summary: []string{fmt.Sprintf("The controller returned HTTP error %d. Check the request parameters.", devErr.StatusCode)}}
	case ErrTypeParse:
		return hint{
			summary: []string{
				"Failed to parse the controller's response.",
				"The configuration must be a JSON object with a string device_name.",
				"This may indicate an incompatible firmware version.",
			},
		}
	case ErrTypeValidation:
		return hint{summary: []string{"The request was not sent. Check the error message for details."}}
	}
	return hint{summary: []string{"An error occurred. Please check the error message for details."}}
}

// GetTroubleshootingHint returns multi-line advice for presenting err
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}
	return hintFor(devErr).String()
}

// GetShortErrorMessage returns a one-line description of err for status lines
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection - is the control server running?"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Device unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check WiFi connection"
		}
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Device error (HTTP %d)", devErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse device response"
	}
	return devErr.Message
}
