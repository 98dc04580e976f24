// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package transport dials the byte streams that MQTT packets travel over:
// plain TCP, TLS and WebSocket. Every stream is exposed as a net.Conn.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/absmach/mqttwire/config"
	"github.com/sony/gobreaker"
	"golang.org/x/net/proxy"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported broker scheme")
	ErrCircuitOpen       = errors.New("circuit breaker open")
)

// Default ports per scheme family.
const (
	DefaultTCPPort = "1883"
	DefaultTLSPort = "8883"
)

// Config holds dialer settings.
type Config struct {
	// WSPath is used when a ws:// or wss:// broker URL has no path.
	WSPath string

	// TLSConfig, when set, is used as is for TLS and WSS connections.
	TLSConfig             *tls.Config
	TLSInsecureSkipVerify bool
	TLSCAFile             string

	DialTimeout time.Duration

	// ProxyURL routes connections through a proxy, e.g. socks5://host:1080.
	ProxyURL string

	// Circuit breaker around dial attempts. A zero threshold disables it.
	FailureThreshold int
	ResetTimeout     time.Duration

	Logger *slog.Logger
}

// NewConfig builds a dialer Config from the transport section of the
// configuration file.
func NewConfig(cfg config.TransportConfig, logger *slog.Logger) Config {
	return Config{
		WSPath:                cfg.WSPath,
		TLSInsecureSkipVerify: cfg.TLSInsecureSkipVerify,
		TLSCAFile:             cfg.TLSCAFile,
		DialTimeout:           cfg.DialTimeout,
		ProxyURL:              cfg.ProxyURL,
		FailureThreshold:      cfg.Breaker.FailureThreshold,
		ResetTimeout:          cfg.Breaker.ResetTimeout,
		Logger:                logger,
	}
}

// Dialer opens connections to MQTT brokers.
type Dialer struct {
	cfg     Config
	tlsCfg  *tls.Config
	proxy   proxy.Dialer
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewDialer validates cfg and returns a Dialer.
func NewDialer(cfg Config) (*Dialer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WSPath == "" {
		cfg.WSPath = "/mqtt"
	}

	tlsCfg, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	d := &Dialer{
		cfg:    cfg,
		tlsCfg: tlsCfg,
		logger: logger,
	}

	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		d.proxy, err = proxy.FromURL(u, &net.Dialer{Timeout: cfg.DialTimeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
		}
	}

	if cfg.FailureThreshold > 0 {
		d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "dial",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     cfg.ResetTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("dial circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}

	return d, nil
}

// Dial connects to broker, a URL such as tcp://host:1883, tls://host:8883
// or ws://host:8083/mqtt.
func (d *Dialer) Dial(ctx context.Context, broker string) (net.Conn, error) {
	u, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url %q: %w", broker, err)
	}

	var dial func(context.Context, *url.URL) (net.Conn, error)
	switch u.Scheme {
	case "tcp", "mqtt":
		dial = d.dialTCP
	case "tls", "ssl", "mqtts":
		dial = d.dialTLS
	case "ws", "wss":
		dial = d.dialWS
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if d.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.DialTimeout)
		defer cancel()
	}

	if d.breaker == nil {
		return dial(ctx, u)
	}
	res, err := d.breaker.Execute(func() (interface{}, error) {
		return dial(ctx, u)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, broker)
		}
		return nil, err
	}
	return res.(net.Conn), nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.TLSConfig != nil {
		return cfg.TLSConfig.Clone(), nil
	}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
	}
	if cfg.TLSCAFile != "" {
		pem, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", cfg.TLSCAFile)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
