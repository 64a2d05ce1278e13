package deviceconfig

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the configuration
func (c Configuration) Summary() string {
	name, ok := c.DeviceName()
	if !ok {
		name = "(unnamed)"
	}
	if mode := c.Value(KeyMode); mode != "" {
		return fmt.Sprintf("%s [mode: %s]", name, mode)
	}
	return name
}

// FormatCompact returns one key=value pair per line, sorted by key
func (c Configuration) FormatCompact() string {
	var b strings.Builder

	for _, key := range c.Keys() {
		b.WriteString(fmt.Sprintf("%s=%s\n", key, c.Value(key)))
	}

	return b.String()
}

// FormatDetailed returns a boxed, aligned listing of the configuration
// for the controller at address
func (c Configuration) FormatDetailed(address string) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║              LED CONTROLLER CONFIGURATION                      ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n")
	b.WriteString("\n")

	name, ok := c.DeviceName()
	if !ok {
		name = "(missing device_name)"
	}
	b.WriteString("=== Device ===\n")
	b.WriteString(fmt.Sprintf("Name:    %s\n", name))
	b.WriteString(fmt.Sprintf("Address: %s\n", address))
	b.WriteString("\n")

	b.WriteString("=== Settings ===\n")
	width := 0
	for _, key := range c.Keys() {
		if len(key) > width {
			width = len(key)
		}
	}
	settings := 0
	for _, key := range c.Keys() {
		if key == KeyDeviceName {
			continue
		}
		b.WriteString(fmt.Sprintf("%-*s  %s\n", width, key+":", c.Value(key)))
		settings++
	}
	if settings == 0 {
		b.WriteString("(no other settings reported)\n")
	}

	return b.String()
}

// FormatDiff returns the keys whose values differ between two configurations
func FormatDiff(old, new Configuration) string {
	var b strings.Builder

	b.WriteString("=== Configuration Differences ===\n")

	seen := make(map[string]bool)
	keys := append(old.Keys(), new.Keys()...)
	changes := 0
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		_, inOld := old[key]
		_, inNew := new[key]
		switch {
		case inOld && !inNew:
			b.WriteString(fmt.Sprintf("  %s: %s → (removed)\n", key, old.Value(key)))
		case !inOld && inNew:
			b.WriteString(fmt.Sprintf("  %s: (added) → %s\n", key, new.Value(key)))
		case old.Value(key) != new.Value(key):
			b.WriteString(fmt.Sprintf("  %s: %s → %s\n", key, old.Value(key), new.Value(key)))
		default:
			continue
		}
		changes++
	}

	if changes == 0 {
		b.WriteString("(no differences detected)\n")
	}

	return b.String()
}
