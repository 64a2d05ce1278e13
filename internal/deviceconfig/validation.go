package deviceconfig

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxDeviceNameLength bounds names so a DEVICENAME announcement fits a
// single discovery datagram
const MaxDeviceNameLength = 64

// ValidateKey checks a configuration key before it is placed in a URL path
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return NewValidationError("configuration key cannot be empty")
	}
	if strings.ContainsAny(key, "/?#") {
		return NewValidationError(fmt.Sprintf("configuration key %q contains a reserved character", key))
	}
	return nil
}

// ValidateDeviceName checks a new device name.
//
// An empty name is rejected so callers can skip the rename entirely.
// A ':' is rejected because announcements split on it and the name would be
// cut short on the next discovery.
func ValidateDeviceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("device name cannot be empty")
	}
	if strings.Contains(name, ":") {
		return NewValidationError("device name cannot contain ':'")
	}
	if n := utf8.RuneCountInString(name); n > MaxDeviceNameLength {
		return NewValidationError(fmt.Sprintf("device name too long (max %d chars): %d chars", MaxDeviceNameLength, n))
	}
	return nil
}

// ValidateSetting validates a key/value pair destined for SetConfigurationValue.
// device_name values get the stricter name rules.
func ValidateSetting(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if key == KeyDeviceName {
		return ValidateDeviceName(value)
	}
	return nil
}
