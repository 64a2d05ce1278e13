// Package tui implements the interactive terminal interface of ledsync.
//
// The TUI is a single screen listing discovered LED controllers. It is a
// registry observer: Observe forwards registry events into the Bubble Tea
// program, so the list changes as DEVICENAME replies arrive and as reloads
// rename devices. Network calls run as tea.Cmd functions, never in Update.
//
// # Keys
//
//	d      clear the list and broadcast a new DEVICEID request
//	enter  reload the selected device's configuration
//	t      toggle the selected device's mode
//	n      rename the selected device (empty names are ignored)
//	c      show the selected device's configuration
//	/      filter the list
//	q      quit
//
// # Usage Example
//
//	deps := tui.Deps{
//	    Registry: reg,
//	    Discover: func(ctx context.Context) (net.IP, error) {
//	        return discovery.Solicit(ctx, resolver, announcer)
//	    },
//	    NewClient: func(d *discovery.Device) *deviceconfig.Client {
//	        return deviceconfig.NewClient(d).WithNameUpdater(reg)
//	    },
//	}
//	err := tui.Run(ctx, deps)
//
// Run does not start the UDP listener; the caller supervises it alongside
// the program.
package tui
