package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/muurk/ledsync/internal/config"
	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/registry"
	"github.com/muurk/ledsync/internal/tui"
	"github.com/muurk/ledsync/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scanTimeout   int
	watchInterval time.Duration
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(tuiCmd)
}

// scanCmd discovers controllers on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover LED controllers on the network",
	Long: `Broadcast a DEVICEID request and list the controllers that answer.

Replies are collected until the scan timeout expires. A controller that
answers more than once is listed once.`,
	Example: `  # Scan with the configured timeout (5 seconds by default)
  ledsync scan

  # Quick scan on a specific interface
  ledsync scan --timeout 2 --interface wlp3s0

  # JSON output for scripting
  ledsync scan --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Seconds to wait for replies (default from settings)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanTimeout > 0 {
		settings.Discovery.ScanTimeout = scanTimeout
	}
	s := newSession(settings)

	if outputFormat == formatDetailed {
		fmt.Fprintln(cmd.OutOrStdout(), ui.NewHeader("Scan", "ledsync scan", map[string]string{
			"Interface": settings.Discovery.InterfaceMatch,
			"Timeout":   settings.ScanTimeout().String(),
		}).Render())
	}

	devices, err := s.discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return printDevices(cmd.OutOrStdout(), outputFormat, devices)
}

// watchCmd prints registry events as they happen
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print discovery events until interrupted",
	Long: `Broadcast a DEVICEID request and print each controller as it answers.

With --interval the request is repeated; controllers already seen are not
printed again. Stop with Ctrl+C.`,
	Example: `  # Watch for controllers, asking once
  ledsync watch

  # Ask every 30 seconds, one JSON event per line
  ledsync watch --interval 30s --format json`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Repeat the discovery request at this interval (0 asks once)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s := newSession(settings)
	out := cmd.OutOrStdout()

	unsubscribe := s.registry.Subscribe(registry.ObserverFuncs{
		Discovered: func(d *discovery.Device) { printEvent(out, outputFormat, "device.discovered", d) },
		Updated:    func(d *discovery.Device) { printEvent(out, outputFormat, "device.updated", d) },
		Cleared:    func() { printEvent(out, outputFormat, "devices.cleared", nil) },
	})
	defer unsubscribe()

	if err := s.startListener(ctx); err != nil {
		return err
	}
	if _, err := s.solicit(ctx); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if watchInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.solicit(ctx); err != nil {
				logging.Warn("Discovery request failed", zap.Error(err))
			}
		}
	}
}

// showCmd displays a controller's configuration
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a controller's configuration",
	Long: `Fetch and display the configuration of one controller.

Without --device, discovery runs first and the single controller found is
used. --device accepts an IP address or a controller name.`,
	Example: `  # Show config with auto-discovery
  ledsync show

  # Show config for a specific controller
  ledsync show --device 192.168.1.40
  ledsync show --device Kitchen

  # key=value output
  ledsync show --device 192.168.1.40 --format compact`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	s := newSession(settings)
	device, err := s.resolveDevice(cmd.Context(), deviceFlag)
	if err != nil {
		return err
	}

	cfg, err := s.client(device).GetConfiguration(cmd.Context())
	if err != nil {
		return reportDeviceError(cmd, "Could not read configuration", err)
	}
	return printConfiguration(cmd.OutOrStdout(), outputFormat, device, cfg)
}

// setCmd changes one configuration value
var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration value",
	Long: `Set one configuration key on a controller via its HTTP control API.

A controller that answers anything other than 200 has rejected the change;
that is reported but is not an error. Setting device_name renames the
controller; an empty name is ignored and nothing is sent.`,
	Example: `  # Rename a controller
  ledsync set device_name Porch --device 192.168.1.40

  # Change brightness on the only controller found
  ledsync set brightness 200`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if key == deviceconfig.KeyDeviceName && value == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Empty device name ignored; nothing was sent")
		return nil
	}
	if err := deviceconfig.ValidateSetting(key, value); err != nil {
		return err
	}

	s := newSession(settings)
	device, err := s.resolveDevice(cmd.Context(), deviceFlag)
	if err != nil {
		return err
	}

	if outputFormat == formatDetailed {
		fmt.Fprintln(cmd.OutOrStdout(), ui.NewHeader("Set Configuration", fmt.Sprintf("ledsync set %s %s", key, value), map[string]string{
			"Device": device.Address(),
			"Key":    key,
			"Value":  value,
		}).Render())
	}

	accepted, err := s.client(device).SetConfigurationValue(cmd.Context(), key, value)
	if err != nil && !accepted {
		return reportDeviceError(cmd, "Set failed", err)
	}
	return printAction(cmd.OutOrStdout(), outputFormat, "Configuration updated", device, accepted, err)
}

// toggleCmd switches a controller's operating mode
var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle a controller's operating mode",
	Example: `  ledsync toggle --device 192.168.1.40`,
	Args:    cobra.NoArgs,
	RunE:    runToggle,
}

func runToggle(cmd *cobra.Command, args []string) error {
	s := newSession(settings)
	device, err := s.resolveDevice(cmd.Context(), deviceFlag)
	if err != nil {
		return err
	}

	accepted, err := s.client(device).ToggleMode(cmd.Context())
	if err != nil {
		return reportDeviceError(cmd, "Toggle failed", err)
	}
	return printAction(cmd.OutOrStdout(), outputFormat, "Mode toggled", device, accepted, nil)
}

// reportDeviceError prints a troubleshooting box for detailed output and
// returns the error for the exit status
func reportDeviceError(cmd *cobra.Command, title string, err error) error {
	if outputFormat == formatDetailed {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderDeviceFailure(title, err))
	}
	return fmt.Errorf("%s: %w", title, err)
}

// tuiCmd launches the interactive TUI regardless of the terminal check
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive device list",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Log lines would corrupt the screen; send them to a file instead
	if logFile == "" && logLevel != "" {
		dir, err := config.GetConfigDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		if err := logging.InitializeWithOutput(logLevel, filepath.Join(dir, "ledsync.log")); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	s := newSession(settings)
	if err := s.startListener(ctx); err != nil {
		return err
	}

	return tui.Run(ctx, tui.Deps{
		Registry:  s.registry,
		Discover:  s.solicit,
		NewClient: s.client,
	})
}
