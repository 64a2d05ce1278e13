package tui

import (
	"context"
	"net"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/discovery"
)

// Registry events, forwarded by Observe
type deviceDiscoveredMsg struct{ device *discovery.Device }
type deviceUpdatedMsg struct{ device *discovery.Device }
type devicesClearedMsg struct{}

// discoverDoneMsg reports the outcome of one DEVICEID broadcast
type discoverDoneMsg struct {
	broadcast net.IP
	err       error
}

// actionDoneMsg reports a reload, toggle or rename against one device
type actionDoneMsg struct {
	action   string
	device   *discovery.Device
	accepted bool
	err      error
}

// configMsg carries a fetched configuration
type configMsg struct {
	device *discovery.Device
	config deviceconfig.Configuration
	err    error
}

const (
	actionReload = "Reload"
	actionToggle = "Toggle"
	actionRename = "Rename"
)

// discoverCmd clears the registry and broadcasts a new DEVICEID request.
// Replies arrive as registry events, not as the result of this command.
func discoverCmd(ctx context.Context, deps Deps) tea.Cmd {
	return func() tea.Msg {
		deps.Registry.Clear()
		ip, err := deps.Discover(ctx)
		return discoverDoneMsg{broadcast: ip, err: err}
	}
}

func reloadCmd(ctx context.Context, deps Deps, d *discovery.Device) tea.Cmd {
	return func() tea.Msg {
		err := deps.NewClient(d).ReloadConfiguration(ctx)
		return actionDoneMsg{action: actionReload, device: d, accepted: err == nil, err: err}
	}
}

func toggleCmd(ctx context.Context, deps Deps, d *discovery.Device) tea.Cmd {
	return func() tea.Msg {
		accepted, err := deps.NewClient(d).ToggleMode(ctx)
		return actionDoneMsg{action: actionToggle, device: d, accepted: accepted, err: err}
	}
}

func renameCmd(ctx context.Context, deps Deps, d *discovery.Device, name string) tea.Cmd {
	return func() tea.Msg {
		accepted, err := deps.NewClient(d).SetConfigurationValue(ctx, deviceconfig.KeyDeviceName, name)
		return actionDoneMsg{action: actionRename, device: d, accepted: accepted, err: err}
	}
}

func configCmd(ctx context.Context, deps Deps, d *discovery.Device) tea.Cmd {
	return func() tea.Msg {
		config, err := deps.NewClient(d).GetConfiguration(ctx)
		return configMsg{device: d, config: config, err: err}
	}
}
