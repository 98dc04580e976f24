// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"time"

	"github.com/absmach/mqttwire/config"
	"github.com/absmach/mqttwire/packets"
	"github.com/absmach/mqttwire/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Default values.
const (
	DefaultKeepAlive      = 60 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 5 * time.Second

	// ClientIDPrefix prefixes generated client identifiers.
	ClientIDPrefix = "mqttwire-"
)

// Options configures the MQTT client.
type Options struct {
	// Connection
	Broker         string        // Broker URL, used by Dial
	ClientID       string        // Client identifier, generated when empty
	Username       string        // Optional username
	Password       string        // Optional password
	CleanSession   bool          // Start with clean session
	KeepAlive      time.Duration // Keep-alive announced in CONNECT
	Will           *packets.Message
	ConnectTimeout time.Duration // Timeout waiting for CONNACK
	RequestTimeout time.Duration // Timeout for requests whose context has no deadline

	// Limits
	MaxPacketSize int     // Maximum inbound remaining length (0 = protocol maximum)
	PublishRate   float64 // Outgoing PUBLISH per second (0 = unlimited)
	PublishBurst  int

	// OnMessage receives PUBLISH packets that arrive while a request waits
	// for its response.
	OnMessage func(*packets.Publish)

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
}

// NewOptions creates Options with sensible defaults.
func NewOptions() *Options {
	return &Options{
		CleanSession:   true,
		KeepAlive:      DefaultKeepAlive,
		ConnectTimeout: DefaultConnectTimeout,
		RequestTimeout: DefaultRequestTimeout,
		PublishBurst:   1,
	}
}

// NewOptionsFromConfig builds Options from the client section of the
// configuration file.
func NewOptionsFromConfig(cfg config.ClientConfig) *Options {
	o := &Options{
		Broker:         cfg.Broker,
		ClientID:       cfg.ClientID,
		Username:       cfg.Username,
		Password:       cfg.Password,
		CleanSession:   cfg.CleanSession,
		KeepAlive:      cfg.KeepAlive,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
		MaxPacketSize:  cfg.MaxPacketSize,
		PublishRate:    cfg.PublishRate,
		PublishBurst:   cfg.PublishBurst,
	}
	if cfg.Will.Topic != "" {
		o.Will = &packets.Message{
			Topic:   cfg.Will.Topic,
			Payload: []byte(cfg.Will.Payload),
			QoS:     packets.QoS(cfg.Will.QoS),
			Retain:  cfg.Will.Retain,
		}
	}
	return o
}

// SetBroker sets the broker URL.
func (o *Options) SetBroker(broker string) *Options {
	o.Broker = broker
	return o
}

// SetClientID sets the client identifier.
func (o *Options) SetClientID(id string) *Options {
	o.ClientID = id
	return o
}

// SetCredentials sets username and password.
func (o *Options) SetCredentials(username, password string) *Options {
	o.Username = username
	o.Password = password
	return o
}

// SetCleanSession sets the clean session flag.
func (o *Options) SetCleanSession(clean bool) *Options {
	o.CleanSession = clean
	return o
}

// SetKeepAlive sets the keep-alive interval.
func (o *Options) SetKeepAlive(d time.Duration) *Options {
	o.KeepAlive = d
	return o
}

// SetWill sets the will message.
func (o *Options) SetWill(topic string, payload []byte, qos packets.QoS, retain bool) *Options {
	o.Will = &packets.Message{Topic: topic, Payload: payload, QoS: qos, Retain: retain}
	return o
}

// SetRequestTimeout sets the default request timeout.
func (o *Options) SetRequestTimeout(d time.Duration) *Options {
	o.RequestTimeout = d
	return o
}

// SetPublishRate limits outgoing PUBLISH packets to rate per second.
func (o *Options) SetPublishRate(rate float64, burst int) *Options {
	o.PublishRate = rate
	o.PublishBurst = burst
	return o
}

// SetOnMessage sets the handler for messages received during requests.
func (o *Options) SetOnMessage(fn func(*packets.Publish)) *Options {
	o.OnMessage = fn
	return o
}

// SetLogger sets the logger.
func (o *Options) SetLogger(logger *slog.Logger) *Options {
	o.Logger = logger
	return o
}

// Validate checks the options.
func (o *Options) Validate() error {
	if o.KeepAlive < 0 || o.KeepAlive > 65535*time.Second {
		return ErrInvalidKeepAlive
	}
	if o.PublishRate < 0 || o.PublishBurst < 0 {
		return ErrInvalidRate
	}
	if o.Will != nil {
		if !o.Will.QoS.Valid() {
			return &packets.QoSError{Value: byte(o.Will.QoS)}
		}
		if o.Will.Topic == "" {
			return ErrInvalidTopic
		}
	}
	return nil
}
