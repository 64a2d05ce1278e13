package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/muurk/ledsync/internal/deviceconfig"
)

func TestHeader_Render(t *testing.T) {
	out := NewHeader("Set Configuration", "ledsync set brightness 80", map[string]string{
		"Value":  "80",
		"Device": "192.168.1.40",
	}).SetWidth(80).Render()

	for _, want := range []string{"SET CONFIGURATION", "ledsync set brightness 80", "Device:", "192.168.1.40"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Device:") > strings.Index(out, "Value:") {
		t.Error("parameters are not rendered in key order")
	}
}

func TestResult_Render(t *testing.T) {
	success := NewSuccessResult("Mode toggled", nil).AddDetail("Device", "Lamp1").SetWidth(80).Render()
	if !strings.Contains(success, "SUCCESS") || !strings.Contains(success, "Lamp1") {
		t.Errorf("success box = \n%s", success)
	}

	warning := RenderWarning("Change rejected", map[string]string{"Status": "rejected"})
	if !strings.Contains(warning, "WARNING") {
		t.Errorf("warning box = \n%s", warning)
	}

	failure := RenderFailure("Toggle failed", errors.New("boom"), []string{"Check power"})
	for _, want := range []string{"FAILED", "Error: boom", "Troubleshooting:", "Check power"} {
		if !strings.Contains(failure, want) {
			t.Errorf("failure box missing %q", want)
		}
	}
}

func TestNewDeviceFailureResult(t *testing.T) {
	err := &deviceconfig.DeviceError{Type: deviceconfig.ErrTypeTimeout, Message: "Request timed out"}

	r := NewDeviceFailureResult("Reload failed", err)
	if r.Error == nil || r.Error.Error() != "Device not responding (timeout)" {
		t.Errorf("Error = %v, want short timeout message", r.Error)
	}
	if len(r.Troubleshooting) != 3 {
		t.Errorf("Troubleshooting = %q, want the 3 timeout tips", r.Troubleshooting)
	}
}

func TestNewDeviceFailureResult_Retryable(t *testing.T) {
	r := NewDeviceFailureResult("Read failed", fmt.Errorf("show: %w", deviceconfig.NewHTTPError(503, "busy")))
	if len(r.Troubleshooting) != 3 || r.Troubleshooting[2] != retryTip {
		t.Errorf("Troubleshooting = %q, want two tips plus the retry tip", r.Troubleshooting)
	}

	r = NewDeviceFailureResult("Read failed", deviceconfig.NewParseError("bad body", nil))
	for _, tip := range r.Troubleshooting {
		if tip == retryTip {
			t.Error("parse error offered a retry tip")
		}
	}
}

func TestHintLines(t *testing.T) {
	if got := hintLines("Just one line."); len(got) != 1 || got[0] != "Just one line." {
		t.Errorf("hintLines(plain) = %q", got)
	}
	if got := hintLines(""); len(got) != 0 {
		t.Errorf("hintLines(\"\") = %q, want none", got)
	}
	if got := hintLines("Title\n  • one\n  • two"); len(got) != 2 || got[1] != "two" {
		t.Errorf("hintLines(bullets) = %q", got)
	}
}
