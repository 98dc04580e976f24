// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	"github.com/absmach/mqttwire/packets"
)

// Client errors.
var (
	// Configuration errors.
	ErrNoBroker         = errors.New("no broker configured")
	ErrInvalidKeepAlive = errors.New("keep alive must be between 0 and 65535 seconds")
	ErrInvalidRate      = errors.New("publish rate and burst must not be negative")

	// Connection errors.
	ErrNotConnected     = errors.New("client not connected")
	ErrAlreadyConnected = errors.New("client already connected")
	ErrClientClosed     = errors.New("client has been closed")
	ErrConnectRejected  = errors.New("connection rejected by broker")

	// Operation errors.
	ErrInvalidTopic        = errors.New("invalid topic")
	ErrNoTopics            = errors.New("at least one topic is required")
	ErrSubscriptionRefused = errors.New("subscription refused by broker")

	// Protocol errors.
	ErrUnexpectedPacket = errors.New("unexpected packet type")
)

// ConnectError is returned by Connect when the broker answers CONNACK with
// a non-zero return code.
type ConnectError struct {
	Code packets.ConnectReturnCode
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connection refused: %s", e.Code)
}

func (e *ConnectError) Unwrap() error {
	return ErrConnectRejected
}
