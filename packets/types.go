// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "fmt"

// QoS is the delivery guarantee of a message or subscription.
type QoS byte

const (
	QoS0 QoS = iota // at most once
	QoS1            // at least once
	QoS2            // exactly once
)

// Valid reports whether q is 0, 1 or 2.
func (q QoS) Valid() bool {
	return q <= QoS2
}

// PacketID correlates SUBSCRIBE, UNSUBSCRIBE and QoS>0 PUBLISH packets
// with their acknowledgments.
type PacketID uint16

// ConnectReturnCode is the CONNACK return code.
type ConnectReturnCode byte

const (
	Accepted ConnectReturnCode = iota
	RefusedProtocol
	RefusedIdentifier
	RefusedUnavailable
	RefusedBadLogin
	RefusedNotAuthorized
)

var connectReturnCodes = map[ConnectReturnCode]string{
	Accepted:             "connection accepted",
	RefusedProtocol:      "unacceptable protocol version",
	RefusedIdentifier:    "identifier rejected",
	RefusedUnavailable:   "server unavailable",
	RefusedBadLogin:      "bad user name or password",
	RefusedNotAuthorized: "not authorized",
}

func (c ConnectReturnCode) Valid() bool {
	return c <= RefusedNotAuthorized
}

func (c ConnectReturnCode) String() string {
	if s, ok := connectReturnCodes[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown return code %d", byte(c))
}

// SubAckReturnCode is the per-filter result carried by SUBACK.
type SubAckReturnCode byte

const (
	SubAckQoS0    SubAckReturnCode = 0x00
	SubAckQoS1    SubAckReturnCode = 0x01
	SubAckQoS2    SubAckReturnCode = 0x02
	SubAckFailure SubAckReturnCode = 0x80
)

func (c SubAckReturnCode) Valid() bool {
	return c <= SubAckQoS2 || c == SubAckFailure
}

// Message is the application message carried by PUBLISH and by the
// CONNECT will. An empty payload decodes as nil.
type Message struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
}

func (m Message) String() string {
	return fmt.Sprintf("topic: %s qos: %d retain: %t payload: %q", m.Topic, m.QoS, m.Retain, m.Payload)
}

// Subscription is a SUBSCRIBE topic filter and its requested QoS.
type Subscription struct {
	Topic string
	QoS   QoS
}
