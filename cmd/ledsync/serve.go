package main

import (
	"fmt"

	"github.com/muurk/ledsync/internal/config"
	"github.com/muurk/ledsync/internal/logging"
	"github.com/muurk/ledsync/internal/mqttbridge"
	"github.com/muurk/ledsync/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Serve command flags
var (
	serveListen       string
	serveAdvertise    bool
	serveDiscoverRate float64
	serveCert         string
	serveKey          string
	serveMQTT         bool
	serveMQTTBroker   string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "API listen address (default from settings, \":8090\")")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", false, "Publish the API over mDNS as _ledsync._tcp")
	serveCmd.Flags().Float64Var(&serveDiscoverRate, "discover-rate", 0, "Broadcasts per second allowed through POST /api/discover")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "TLS certificate file (requires --key)")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "TLS private key file (requires --cert)")
	serveCmd.Flags().BoolVar(&serveMQTT, "mqtt", false, "Publish registry events to MQTT")
	serveCmd.Flags().StringVar(&serveMQTTBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
}

// serveCmd runs discovery headless behind the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run discovery behind an HTTP and WebSocket API",
	Long: `Run the reply listener and serve the registry over HTTP.

The API lists discovered controllers, triggers rate-limited discovery
broadcasts and proxies configuration requests to controllers. Registry
events stream over a WebSocket at /api/events and can be published to an
MQTT broker. Prometheus metrics are served at /metrics.

One discovery request is broadcast at startup.`,
	Example: `  # Serve on the default address
  ledsync serve

  # HTTPS with mDNS advertisement and MQTT publishing
  ledsync serve --cert cert.pem --key key.pem --advertise \
    --mqtt --mqtt-broker tcp://broker.local:1883`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// applyServeFlags overrides settings with the serve flags that were given
func applyServeFlags(cmd *cobra.Command, s *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		s.Server.Listen = serveListen
	}
	if flags.Changed("advertise") {
		s.Server.Advertise = serveAdvertise
	}
	if flags.Changed("discover-rate") {
		s.Server.DiscoverRate = serveDiscoverRate
	}
	if flags.Changed("cert") {
		s.Server.TLSCert = serveCert
	}
	if flags.Changed("key") {
		s.Server.TLSKey = serveKey
	}
	if flags.Changed("mqtt") {
		s.MQTT.Enabled = serveMQTT
	}
	if flags.Changed("mqtt-broker") {
		s.MQTT.Broker = serveMQTTBroker
		s.MQTT.Enabled = true
	}
	return s.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := applyServeFlags(cmd, settings); err != nil {
		return err
	}
	// The API logs every request; default to info when no level was given
	if logLevel == "" {
		if err := logging.InitializeWithOutput("info", "stderr"); err != nil {
			return err
		}
	}
	logger := logging.Named("serve")

	ctx := cmd.Context()
	s := newSession(settings)

	srv, err := server.New(server.Config{
		Listen:         settings.Server.Listen,
		Advertise:      settings.Server.Advertise,
		DiscoverRate:   settings.Server.DiscoverRate,
		RequestTimeout: settings.RequestTimeout(),
		CertPath:       settings.Server.TLSCert,
		KeyPath:        settings.Server.TLSKey,
	}, s.registry, s.resolver, s.announcer)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	if settings.MQTT.Enabled {
		bridge, client, err := mqttbridge.Connect(mqttbridge.Config{
			Broker:      settings.MQTT.Broker,
			ClientID:    settings.MQTT.ClientID,
			TopicPrefix: settings.MQTT.TopicPrefix,
			QoS:         settings.MQTT.QoS,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer bridge.Close(client)
		unsubscribe := s.registry.Subscribe(bridge)
		defer unsubscribe()
	}

	sup := supervisor("ledsync-serve")
	sup.Add(s.listener)
	sup.Add(srv)

	go func() {
		select {
		case <-s.listener.Bound():
		case <-ctx.Done():
			return
		}
		if broadcast, err := s.solicit(ctx); err != nil {
			logger.Warn("Startup discovery failed", zap.Error(err))
		} else {
			logger.Info("Startup discovery sent", zap.Stringer("broadcast", broadcast))
		}
	}()

	logger.Info("Serving",
		zap.String("listen", settings.Server.Listen),
		zap.Int("reply_port", settings.Discovery.ListenPort),
	)
	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
