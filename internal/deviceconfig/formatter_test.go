package deviceconfig

import (
	"encoding/json"
	"strings"
	"testing"
)

func testConfiguration() Configuration {
	return Configuration{
		"device_name": "Kitchen",
		"mode":        "rainbow",
		"brightness":  json.Number("128"),
	}
}

func TestConfiguration_Summary(t *testing.T) {
	tests := []struct {
		name   string
		config Configuration
		want   string
	}{
		{"name and mode", testConfiguration(), "Kitchen [mode: rainbow]"},
		{"name only", Configuration{"device_name": "Desk"}, "Desk"},
		{"unnamed", Configuration{}, "(unnamed)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfiguration_FormatCompact(t *testing.T) {
	got := testConfiguration().FormatCompact()
	want := "brightness=128\ndevice_name=Kitchen\nmode=rainbow\n"

	if got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestConfiguration_FormatDetailed(t *testing.T) {
	output := testConfiguration().FormatDetailed("192.168.1.40")

	expected := []string{
		"LED CONTROLLER CONFIGURATION",
		"Name:    Kitchen",
		"Address: 192.168.1.40",
		"=== Settings ===",
		"brightness:",
		"128",
		"rainbow",
	}
	for _, text := range expected {
		if !strings.Contains(output, text) {
			t.Errorf("FormatDetailed() missing %q\nGot:\n%s", text, output)
		}
	}

	// device_name is shown in the header only
	if strings.Count(output, "Kitchen") != 1 {
		t.Errorf("FormatDetailed() should list the name once\nGot:\n%s", output)
	}
}

func TestConfiguration_FormatDetailed_NameOnly(t *testing.T) {
	output := Configuration{"device_name": "Desk"}.FormatDetailed("10.0.0.5")
	if !strings.Contains(output, "(no other settings reported)") {
		t.Errorf("FormatDetailed() = %s, want empty settings note", output)
	}
}

func TestFormatDiff(t *testing.T) {
	old := testConfiguration()
	updated := Configuration{
		"device_name": "Kitchen",
		"mode":        "solid",
		"color":       "#ffffff",
	}

	diff := FormatDiff(old, updated)

	for _, text := range []string{
		"mode: rainbow → solid",
		"brightness: 128 → (removed)",
		"color: (added) → #ffffff",
	} {
		if !strings.Contains(diff, text) {
			t.Errorf("FormatDiff() missing %q\nGot:\n%s", text, diff)
		}
	}
	if strings.Contains(diff, "device_name") {
		t.Errorf("FormatDiff() listed an unchanged key\nGot:\n%s", diff)
	}
}

func TestFormatDiff_NoChanges(t *testing.T) {
	diff := FormatDiff(testConfiguration(), testConfiguration())
	if !strings.Contains(diff, "(no differences detected)") {
		t.Errorf("FormatDiff() = %s, want no differences", diff)
	}
}
