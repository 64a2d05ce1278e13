// Ledsync-emulator runs fake LED controllers for development and testing.
//
// Each emulated controller answers DEVICEID discovery requests with
// DEVICENAME:<name> and serves the HTTP control API from an in-memory
// configuration.
//
// Usage:
//
//	ledsync-emulator [flags]
//
// Several controllers can run on one host when each is bound to its own
// address, for example loopback aliases.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/muurk/ledsync/internal/deviceconfig"
	"github.com/muurk/ledsync/internal/discovery"
	"github.com/muurk/ledsync/internal/emulator"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
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

var (
	names      []string
	addresses  []string
	listenPort int
	replyPort  int
	httpPort   int
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "ledsync-emulator",
	Short: "Run emulated LED controllers",
	Long: `Run one or more emulated LED controllers.

Each controller listens for DEVICEID on the discovery port, replies with its
name to the sender's reply port, and serves GET /config, PUT /config/:key and
POST /mode/toggle on the HTTP port.

Broadcast requests only reach a controller bound to 0.0.0.0. Controllers
bound to a unicast address answer requests sent to that address only.`,
	Example: `  # One controller on all interfaces
  ledsync-emulator --name Kitchen

  # Two controllers on loopback aliases
  ledsync-emulator --name Kitchen --address 127.0.0.2 \
    --name Porch --address 127.0.0.3`,
	Version:      version.Version,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         run,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.StringArrayVar(&names, "name", []string{"LEDSync-1"}, "Controller name (repeat for several controllers)")
	flags.StringArrayVar(&addresses, "address", []string{"0.0.0.0"}, "Address each controller binds to, in --name order")
	flags.IntVar(&listenPort, "listen-port", discovery.AnnouncePort, "UDP port DEVICEID requests arrive on")
	flags.IntVar(&replyPort, "reply-port", discovery.ListenPort, "UDP port DEVICENAME replies are sent to")
	flags.IntVar(&httpPort, "http-port", discovery.DefaultHTTPPort, "HTTP control API port")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func run(cmd *cobra.Command, args []string) error {
	if err := logging.InitializeWithOutput(logLevel, "stderr"); err != nil {
		return err
	}
	logger := logging.Named("emulator")

	if len(names) != len(addresses) {
		return fmt.Errorf("give one --address per --name (got %d names and %d addresses)", len(names), len(addresses))
	}

	sup := suture.New("ledsync-emulator", suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Warn("Service event", zap.String("event", e.String()))
		},
		Timeout: 5 * time.Second,
	})

	for i, name := range names {
		if err := deviceconfig.ValidateDeviceName(name); err != nil {
			return fmt.Errorf("--name %q: %w", name, err)
		}
		ip := net.ParseIP(addresses[i])
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("--address %q is not an IPv4 address", addresses[i])
		}

		device := emulator.NewDevice(name)
		sup.Add(emulator.NewResponder(device, net.JoinHostPort(ip.String(), strconv.Itoa(listenPort)), replyPort))
		sup.Add(emulator.NewHTTPServer(device, net.JoinHostPort(ip.String(), strconv.Itoa(httpPort))))

		logger.Info("Emulating controller",
			zap.String("name", name),
			zap.String("address", ip.String()),
			zap.Int("discovery_port", listenPort),
			zap.Int("http_port", httpPort),
		)
	}

	ctx := cmd.Context()
	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
