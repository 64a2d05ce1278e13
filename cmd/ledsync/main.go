// Ledsync discovers LED controllers on the local wireless network and
// configures them over their HTTP control API.
//
// Discovery broadcasts a DEVICEID request on UDP port 9080 and collects the
// DEVICENAME replies that arrive on port 9081. Controllers are then
// controlled individually over HTTP on port 8080.
//
// Usage:
//
//	ledsync [command] [flags]
//
// Running without arguments launches the interactive TUI when stdout is a
// terminal, and the plain event watcher otherwise.
// See 'ledsync --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muurk/ledsync/internal/config"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/ui"
	"github.com/muurk/ledsync/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath    string
	deviceFlag    string
	interfaceFlag string
	outputFormat  string
	logLevel      string
	logFile       string
)

// settings is loaded once per invocation by the root PersistentPreRunE
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "ledsync",
	Short: "LED controller discovery and configuration",
	Long: `Discover LED controllers on the local wireless network and configure them.

Controllers are found by broadcasting a DEVICEID request; each answers with
its name. Configuration is read and changed through the controller's HTTP
control API.

If no command is specified, the interactive TUI launches when stdout is a
terminal; otherwise discovery events are printed as they happen.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ui.IsTerminal() {
			return runTUI(cmd, args)
		}
		return runWatch(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Settings file (default is the user config directory)")
	flags.StringVar(&deviceFlag, "device", "", "Device IP address or name (skips selection)")
	flags.StringVar(&interfaceFlag, "interface", "", "Substring of the wireless interface name (default from settings)")
	flags.StringVar(&outputFormat, "format", formatDetailed, "Output format (detailed, compact, json)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	flags.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(versionCmd)
}

// setup loads settings, applies global flag overrides and configures logging
func setup(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case formatDetailed, formatCompact, formatJSON:
	default:
		return fmt.Errorf("unknown --format %q (use detailed, compact or json)", outputFormat)
	}

	output := logFile
	if output == "" {
		output = "stderr"
	}
	if err := logging.InitializeWithOutput(logLevel, output); err != nil {
		return err
	}

	s, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if interfaceFlag != "" {
		s.Discovery.InterfaceMatch = interfaceFlag
	}
	settings = s
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ledsync %s\n", version.Full())
	},
}
