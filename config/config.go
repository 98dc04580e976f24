// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the mqttwire client and CLI.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ClientConfig holds the session parameters sent in CONNECT and the
// request limits applied by the client.
type ClientConfig struct {
	Broker       string        `yaml:"broker"`
	ClientID     string        `yaml:"client_id"` // empty = generated
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	CleanSession bool          `yaml:"clean_session"`
	KeepAlive    time.Duration `yaml:"keep_alive"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Maximum remaining length accepted from the broker, 0 = protocol maximum
	MaxPacketSize int `yaml:"max_packet_size"`

	// Outgoing PUBLISH rate limit in messages per second, 0 = unlimited
	PublishRate  float64 `yaml:"publish_rate"`
	PublishBurst int     `yaml:"publish_burst"`

	Will WillConfig `yaml:"will"`
}

// WillConfig describes the will message registered with CONNECT.
// An empty topic means no will.
type WillConfig struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
	QoS     byte   `yaml:"qos"`
	Retain  bool   `yaml:"retain"`
}

// TransportConfig holds dialer settings.
type TransportConfig struct {
	WSPath                string               `yaml:"ws_path"`
	TLSInsecureSkipVerify bool                 `yaml:"tls_insecure_skip_verify"`
	TLSCAFile             string               `yaml:"tls_ca_file"`
	DialTimeout           time.Duration        `yaml:"dial_timeout"`
	ProxyURL              string               `yaml:"proxy_url"` // e.g. socks5://localhost:1080
	Breaker               CircuitBreakerConfig `yaml:"breaker"`
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Endpoint        string  `yaml:"endpoint"` // OTLP gRPC collector
	ServiceName     string  `yaml:"service_name"`
	ServiceVersion  string  `yaml:"service_version"`
	TracesEnabled   bool    `yaml:"traces_enabled"`
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"` // 0.0 to 1.0
}

var brokerSchemes = map[string]bool{
	"tcp": true, "mqtt": true,
	"tls": true, "ssl": true, "mqtts": true,
	"ws": true, "wss": true,
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Broker:         "tcp://localhost:1883",
			CleanSession:   true,
			KeepAlive:      60 * time.Second,
			ConnectTimeout: 10 * time.Second,
			RequestTimeout: 5 * time.Second,
			PublishBurst:   1,
		},
		Transport: TransportConfig{
			WSPath:      "/mqtt",
			DialTimeout: 5 * time.Second,
			Breaker: CircuitBreakerConfig{
				FailureThreshold: 3,
				ResetTimeout:     30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			ServiceName:     "mqttwire",
			ServiceVersion:  "0.1.0",
			TracesEnabled:   false,
			MetricsEnabled:  true,
			TraceSampleRate: 0.1,
		},
	}
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns default configuration.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.Broker)
	if err != nil {
		return fmt.Errorf("client.broker is not a valid URL: %w", err)
	}
	if !brokerSchemes[u.Scheme] {
		return fmt.Errorf("client.broker scheme must be one of: tcp, mqtt, tls, ssl, mqtts, ws, wss")
	}
	if u.Host == "" {
		return fmt.Errorf("client.broker must include a host")
	}

	if c.Client.KeepAlive < 0 || c.Client.KeepAlive > 65535*time.Second {
		return fmt.Errorf("client.keep_alive must be between 0 and 65535 seconds")
	}
	if c.Client.ConnectTimeout < 0 || c.Client.RequestTimeout < 0 {
		return fmt.Errorf("client timeouts cannot be negative")
	}
	if c.Client.MaxPacketSize < 0 {
		return fmt.Errorf("client.max_packet_size cannot be negative")
	}
	if c.Client.PublishRate < 0 {
		return fmt.Errorf("client.publish_rate cannot be negative")
	}
	if c.Client.PublishRate > 0 && c.Client.PublishBurst < 1 {
		return fmt.Errorf("client.publish_burst must be at least 1 when publish_rate is set")
	}

	if c.Client.Will.QoS > 2 {
		return fmt.Errorf("client.will.qos must be 0, 1 or 2")
	}
	if c.Client.Will.Topic == "" && (c.Client.Will.Payload != "" || c.Client.Will.Retain) {
		return fmt.Errorf("client.will.topic required when a will payload or retain is set")
	}

	if c.Transport.ProxyURL != "" {
		if _, err := url.Parse(c.Transport.ProxyURL); err != nil {
			return fmt.Errorf("transport.proxy_url is not a valid URL: %w", err)
		}
	}
	if c.Transport.DialTimeout < 0 {
		return fmt.Errorf("transport.dial_timeout cannot be negative")
	}
	if c.Transport.Breaker.FailureThreshold < 0 {
		return fmt.Errorf("transport.breaker.failure_threshold cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of: text, json")
	}

	// OpenTelemetry validation (only if enabled)
	if c.Telemetry.Enabled {
		if c.Telemetry.ServiceName == "" {
			return fmt.Errorf("telemetry.service_name cannot be empty when telemetry enabled")
		}
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint cannot be empty when telemetry enabled")
		}
	}
	if c.Telemetry.TraceSampleRate < 0.0 || c.Telemetry.TraceSampleRate > 1.0 {
		return fmt.Errorf("telemetry.trace_sample_rate must be between 0.0 and 1.0")
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
