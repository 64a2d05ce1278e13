package tui

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/registry"
)

// Deps are the collaborators the TUI drives
type Deps struct {
	// Registry holds discovered devices; its events feed the device list
	Registry *registry.Registry

	// Discover broadcasts one DEVICEID request and returns the broadcast address
	Discover func(ctx context.Context) (net.IP, error)

	// NewClient returns a control client for a device
	NewClient func(*discovery.Device) *deviceconfig.Client
}

// Model is the device list screen
type Model struct {
	ctx  context.Context
	deps Deps

	// Device list state
	Devices list.Model
	Busy    bool
	Status  string
	Failed  bool

	// Configuration of the last device inspected with 'c'
	Config       deviceconfig.Configuration
	ConfigDevice *discovery.Device

	// Rename state
	Renaming  bool
	NameInput textinput.Model
	target    *discovery.Device

	// UI state
	Width      int
	Height     int
	Spinner    spinner.Model
	Help       help.Model
	Keys       keyMap
	RenameKeys renameKeyMap
}

// NewModel creates the device list screen. It starts busy because Init
// triggers the first discovery.
func NewModel(ctx context.Context, deps Deps) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.CharLimit = deviceconfig.MaxDeviceNameLength
	input.Width = 40

	devices := list.New(nil, deviceDelegate{width: defaultWidth}, 0, 0)
	devices.Title = "LED Controllers"
	devices.Styles.Title = TitleStyle
	devices.SetShowStatusBar(false)
	devices.SetShowHelp(false)
	devices.SetFilteringEnabled(true)

	m := Model{
		ctx:        ctx,
		deps:       deps,
		Devices:    devices,
		Busy:       true,
		Status:     "Searching for LED controllers...",
		NameInput:  input,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Spinner:    s,
		Help:       help.New(),
		Keys:       defaultKeyMap(),
		RenameKeys: defaultRenameKeyMap(),
	}
	for _, d := range deps.Registry.List() {
		m.addDevice(d)
	}
	return m
}

// Init starts the first discovery
func (m Model) Init() tea.Cmd {
	return tea.Batch(discoverCmd(m.ctx, m.deps), m.Spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Devices.SetDelegate(deviceDelegate{width: msg.Width})
		m.Devices.SetSize(msg.Width-4, msg.Height-12)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.Renaming {
			return m.updateRename(msg)
		}
		return m.updateBrowse(msg)

	case deviceDiscoveredMsg:
		m.addDevice(msg.device)
		return m, nil

	case deviceUpdatedMsg:
		for i, item := range m.Devices.Items() {
			if item.(deviceItem).device.Address() == msg.device.Address() {
				m.Devices.SetItem(i, deviceItem{device: msg.device})
				break
			}
		}
		return m, nil

	case devicesClearedMsg:
		m.Devices.SetItems(nil)
		m.Config = nil
		m.ConfigDevice = nil
		return m, nil

	case discoverDoneMsg:
		m.Busy = false
		if msg.err != nil {
			m.setStatus(true, "Discovery failed: %v", msg.err)
		} else {
			m.setStatus(false, "DEVICEID sent to %s; controllers appear as they answer", msg.broadcast)
		}
		return m, nil

	case actionDoneMsg:
		m.Busy = false
		m.applyActionResult(msg)
		return m, nil

	case configMsg:
		m.Busy = false
		if deviceconfig.IsParseError(msg.err) {
			m.setStatus(true, "%s answered with a configuration ledsync cannot read", msg.device.Name())
			return m, nil
		}
		if msg.err != nil {
			m.setStatus(true, "Could not read configuration: %s", deviceconfig.GetShortErrorMessage(msg.err))
			return m, nil
		}
		m.Config = msg.config
		m.ConfigDevice = msg.device
		m.setStatus(false, "Configuration of %s", msg.device.Name())
		return m, nil

	case spinner.TickMsg:
		if !m.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Devices, cmd = m.Devices.Update(msg)
	return m, cmd
}

// updateBrowse handles keyboard input on the device list
func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the filter prompt is open every key belongs to the list
	if m.Devices.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.Devices, cmd = m.Devices.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Discover):
		if m.Busy {
			return m, nil
		}
		m.Busy = true
		m.setStatus(false, "Searching for LED controllers...")
		return m, tea.Batch(discoverCmd(m.ctx, m.deps), m.Spinner.Tick)

	case key.Matches(msg, m.Keys.Reload):
		return m.runOnSelected(func(d *discovery.Device) tea.Cmd {
			return reloadCmd(m.ctx, m.deps, d)
		})

	case key.Matches(msg, m.Keys.Toggle):
		return m.runOnSelected(func(d *discovery.Device) tea.Cmd {
			return toggleCmd(m.ctx, m.deps, d)
		})

	case key.Matches(msg, m.Keys.Config):
		return m.runOnSelected(func(d *discovery.Device) tea.Cmd {
			return configCmd(m.ctx, m.deps, d)
		})

	case key.Matches(msg, m.Keys.Rename):
		d := m.selected()
		if d == nil {
			return m, nil
		}
		m.Renaming = true
		m.target = d
		m.NameInput.SetValue("")
		m.NameInput.Placeholder = d.Name()
		return m, m.NameInput.Focus()
	}

	var cmd tea.Cmd
	m.Devices, cmd = m.Devices.Update(msg)
	return m, cmd
}

// updateRename handles keyboard input while a new name is being typed
func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.RenameKeys.Cancel):
		m.stopRename()
		return m, nil

	case key.Matches(msg, m.RenameKeys.Confirm):
		name := strings.TrimSpace(m.NameInput.Value())
		target := m.target
		m.stopRename()

		// An empty name leaves the device untouched and sends nothing
		if name == "" {
			m.setStatus(false, "Rename cancelled: name is empty")
			return m, nil
		}
		if err := deviceconfig.ValidateDeviceName(name); err != nil {
			m.setStatus(true, "Rename refused: %s", deviceconfig.GetShortErrorMessage(err))
			return m, nil
		}
		m.Busy = true
		m.setStatus(false, "Renaming %s to %q...", target.Name(), name)
		return m, tea.Batch(renameCmd(m.ctx, m.deps, target, name), m.Spinner.Tick)
	}

	var cmd tea.Cmd
	m.NameInput, cmd = m.NameInput.Update(msg)
	return m, cmd
}

func (m *Model) stopRename() {
	m.Renaming = false
	m.target = nil
	m.NameInput.Blur()
	m.NameInput.SetValue("")
}

// runOnSelected starts cmd for the selected device unless another request
// is in flight
func (m Model) runOnSelected(cmd func(*discovery.Device) tea.Cmd) (tea.Model, tea.Cmd) {
	d := m.selected()
	if d == nil || m.Busy {
		return m, nil
	}
	m.Busy = true
	m.setStatus(false, "Contacting %s...", d.Name())
	return m, tea.Batch(cmd(d), m.Spinner.Tick)
}

func (m Model) selected() *discovery.Device {
	if item, ok := m.Devices.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}

// addDevice appends d unless its address is already listed
func (m *Model) addDevice(d *discovery.Device) {
	for _, item := range m.Devices.Items() {
		if item.(deviceItem).device.Address() == d.Address() {
			return
		}
	}
	m.Devices.InsertItem(len(m.Devices.Items()), deviceItem{device: d})
}

func (m *Model) applyActionResult(msg actionDoneMsg) {
	name := msg.device.Name()
	switch {
	case msg.err != nil && msg.accepted:
		m.setStatus(true, "%s accepted by %s, but reload failed: %s", msg.action, name, deviceconfig.GetShortErrorMessage(msg.err))
	case msg.err != nil && deviceconfig.IsRetryable(msg.err):
		m.setStatus(true, "%s failed: %s (try again)", msg.action, deviceconfig.GetShortErrorMessage(msg.err))
	case msg.err != nil:
		m.setStatus(true, "%s failed: %s", msg.action, deviceconfig.GetShortErrorMessage(msg.err))
	case !msg.accepted:
		m.setStatus(true, "%s rejected by %s", msg.action, name)
	default:
		m.setStatus(false, "%s accepted by %s", msg.action, name)
	}
}

func (m *Model) setStatus(failed bool, format string, args ...any) {
	m.Failed = failed
	m.Status = fmt.Sprintf(format, args...)
}

// View renders the device list screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	if len(m.Devices.Items()) == 0 {
		if m.Busy {
			b.WriteString("  " + m.Spinner.View() + " Waiting for DEVICENAME replies...")
		} else {
			b.WriteString("  " + warningStyle.Render("⚠ No LED controllers found"))
			b.WriteString("\n\n")
			b.WriteString(SubtitleStyle.Render("    Check the controllers are powered and on this wireless network, then press d"))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(m.Devices.View())
		b.WriteString("\n")
	}

	if m.Renaming {
		b.WriteString("\n")
		b.WriteString(renamePanelStyle.Render("New name: " + m.NameInput.View()))
		b.WriteString("\n")
	}

	if m.Config != nil && m.ConfigDevice != nil {
		var lines []string
		for _, k := range m.Config.Keys() {
			lines = append(lines, fmt.Sprintf("%-14s %s", k+":", m.Config.Value(k)))
		}
		b.WriteString("\n")
		b.WriteString(configPanelStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	if m.Status != "" {
		b.WriteString("\n")
		status := m.Status
		if m.Busy {
			status = m.Spinner.View() + " " + status
		}
		if m.Failed {
			b.WriteString(statusErrorStyle.Render("✗ " + status))
		} else {
			b.WriteString(statusStyle.Render(status))
		}
		b.WriteString("\n")
	}

	var helpText string
	if m.Renaming {
		helpText = m.Help.View(m.RenameKeys)
	} else {
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(b.String(), helpText, m.Width, m.Height)
}
