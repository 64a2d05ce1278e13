package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/registry"
)

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Observe returns a registry observer that forwards events to s.
// Send blocks until the program reads the message, so the program must not
// mutate the registry from Update.
func Observe(s Sender) registry.Observer {
	return registry.ObserverFuncs{
		Discovered: func(d *discovery.Device) { s.Send(deviceDiscoveredMsg{device: d}) },
		Cleared:    func() { s.Send(devicesClearedMsg{}) },
		Updated:    func(d *discovery.Device) { s.Send(deviceUpdatedMsg{device: d}) },
	}
}

// Run shows the device list until the user quits or ctx is cancelled.
// The caller must keep a discovery listener feeding deps.Registry.
func Run(ctx context.Context, deps Deps, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(ctx, deps), opts...)

	unsubscribe := deps.Registry.Subscribe(Observe(p))
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
