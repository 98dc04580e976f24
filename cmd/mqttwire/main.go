// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/absmach/mqttwire/client"
	"github.com/absmach/mqttwire/config"
	"github.com/absmach/mqttwire/telemetry"
	"github.com/absmach/mqttwire/transport"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

// app holds the state shared by every subcommand.
type app struct {
	configFile string
	broker     string
	clientID   string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	shutdown func(context.Context) error
}

func main() {
	if err := rootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mqttwire",
		Short: "MQTT 3.1.1 wire tool",
		Long: `mqttwire talks to MQTT 3.1.1 brokers over TCP, TLS and WebSocket
and encodes or decodes raw control packets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.shutdown(ctx)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Path to configuration file")
	flags.StringVarP(&a.broker, "broker", "b", "", "Broker URL, overrides client.broker")
	flags.StringVarP(&a.clientID, "client-id", "i", "", "Client identifier, overrides client.client_id")
	flags.StringVarP(&a.logLevel, "log-level", "l", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		pubCmd(a),
		subCmd(a),
		pingCmd(a),
		decodeCmd(),
		encodeCmd(),
		versionCmd(),
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and initializes
// logging and telemetry.
func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.broker != "" {
		cfg.Client.Broker = a.broker
	}
	if a.clientID != "" {
		cfg.Client.ClientID = a.clientID
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log)
	slog.SetDefault(a.logger)

	shutdown, err := telemetry.InitProvider(cfg.Telemetry, cfg.Client.ClientID)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.shutdown = shutdown
	if cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled {
		if a.metrics, err = telemetry.NewMetrics(nil); err != nil {
			return err
		}
	}
	return nil
}

// Logs go to stderr so stdout carries only command output.
func newLogger(cfg config.LogConfig) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

// connect dials the configured broker and completes the CONNECT handshake.
func (a *app) connect(ctx context.Context) (*client.Client, error) {
	d, err := transport.NewDialer(transport.NewConfig(a.cfg.Transport, a.logger))
	if err != nil {
		return nil, err
	}

	opts := client.NewOptionsFromConfig(a.cfg.Client)
	opts.Logger = a.logger
	opts.Metrics = a.metrics

	c, err := client.Dial(ctx, d, opts)
	if err != nil {
		return nil, err
	}
	if _, err := c.Connect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
