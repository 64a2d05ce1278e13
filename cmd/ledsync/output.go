package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/ui"
)

const (
	formatDetailed = "detailed"
	formatCompact  = "compact"
	formatJSON     = "json"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printDevices writes a discovery result in the selected format
func printDevices(w io.Writer, format string, devices []*discovery.Device) error {
	switch format {
	case formatJSON:
		infos := make([]discovery.DeviceInfo, len(devices))
		for i, d := range devices {
			infos[i] = d.Info()
		}
		return writeJSON(w, infos)

	case formatCompact:
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\n", d.Address(), d.Name())
		}
		return nil
	}

	if len(devices) == 0 {
		fmt.Fprintln(w, ui.RenderFailure("No LED controllers found", nil, []string{
			"Ensure the controllers are powered on",
			"Check that this computer is on the controllers' wireless network",
			"Use --interface if the wireless interface is not named wlan*",
			"Increase discovery.scan_timeout in the settings file",
		}))
		return nil
	}

	fmt.Fprintf(w, "Found %d controller(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Fprintf(w, "%d. %s\n", i+1, d.Name())
		fmt.Fprintf(w, "   Address: %s\n", d.Address())
		fmt.Fprintf(w, "   Control: %s\n\n", d.BaseURL())
	}
	fmt.Fprintln(w, "Use 'ledsync show --device <ip>' to view a controller's configuration")
	return nil
}

// printConfiguration writes a controller configuration in the selected format
func printConfiguration(w io.Writer, format string, d *discovery.Device, c deviceconfig.Configuration) error {
	switch format {
	case formatJSON:
		return writeJSON(w, c)
	case formatCompact:
		_, err := io.WriteString(w, c.FormatCompact())
		return err
	default:
		_, err := fmt.Fprintln(w, c.FormatDetailed(d.Address()))
		return err
	}
}

// actionResult is the JSON form of a set or toggle outcome
type actionResult struct {
	Device   discovery.DeviceInfo `json:"device"`
	Accepted bool                 `json:"accepted"`
	Error    string               `json:"error,omitempty"`
}

// printAction reports whether a controller accepted a change
func printAction(w io.Writer, format, title string, d *discovery.Device, accepted bool, err error) error {
	switch format {
	case formatJSON:
		res := actionResult{Device: d.Info(), Accepted: accepted}
		if err != nil {
			res.Error = err.Error()
		}
		return writeJSON(w, res)
	case formatCompact:
		status := "accepted"
		if !accepted {
			status = "rejected"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Address(), d.Name(), status)
		return nil
	}

	details := map[string]string{
		"Device":  d.Name(),
		"Address": d.Address(),
	}
	switch {
	case !accepted:
		details["Status"] = "rejected by the controller"
		fmt.Fprintln(w, ui.RenderWarning(title+" rejected", details))
	case err != nil:
		fmt.Fprintln(w, ui.RenderDeviceFailure(title+" accepted, reload failed", err))
	default:
		fmt.Fprintln(w, ui.RenderSuccess(title, details))
	}
	return nil
}

// printEvent writes one registry event line for 'watch'
func printEvent(w io.Writer, format, event string, d *discovery.Device) {
	now := time.Now()
	switch format {
	case formatJSON:
		ev := struct {
			Type      string                `json:"type"`
			Device    *discovery.DeviceInfo `json:"device,omitempty"`
			Timestamp time.Time             `json:"timestamp"`
		}{Type: event, Timestamp: now}
		if d != nil {
			info := d.Info()
			ev.Device = &info
		}
		data, _ := json.Marshal(ev)
		fmt.Fprintln(w, string(data))
	default:
		if d == nil {
			fmt.Fprintf(w, "%s  %s\n", now.Format(time.TimeOnly), event)
			return
		}
		fmt.Fprintf(w, "%s  %-18s %-16s %s\n", now.Format(time.TimeOnly), event, d.Address(), d.Name())
	}
}
