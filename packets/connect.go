// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// Connect flag bits.
const (
	connectReserved     = 1 << 0
	connectCleanSession = 1 << 1
	connectWill         = 1 << 2
	connectWillQoSShift = 3
	connectWillQoSMask  = 0x03 << connectWillQoSShift
	connectWillRetain   = 1 << 5
	connectPassword     = 1 << 6
	connectUsername     = 1 << 7
)

// Connect represents the MQTT V3.1.1 CONNECT packet.
type Connect struct {
	ClientID string
	Username *string
	// Password is nil when absent. A non-nil empty slice is an empty password.
	Password     []byte
	Will         *Message
	CleanSession bool
	KeepAlive    uint16
}

func (c *Connect) String() string {
	username := "<none>"
	if c.Username != nil {
		username = *c.Username
	}
	will := "<none>"
	if c.Will != nil {
		will = c.Will.String()
	}
	return fmt.Sprintf("type: CONNECT client_id: %s clean_session: %t keep_alive: %d username: %s password_set: %t will: [%s]",
		c.ClientID, c.CleanSession, c.KeepAlive, username, c.Password != nil, will)
}

func (c *Connect) Type() byte {
	return ConnectType
}

func (c *Connect) Details() Details {
	return Details{Type: ConnectType}
}

func (c *Connect) flags() byte {
	return 0
}

func (c *Connect) connectFlags() byte {
	var flags byte
	if c.Username != nil {
		flags |= connectUsername
	}
	if c.Password != nil {
		flags |= connectPassword
	}
	if c.Will != nil {
		flags |= connectWill
		flags |= byte(c.Will.QoS&0x03) << connectWillQoSShift
		if c.Will.Retain {
			flags |= connectWillRetain
		}
	}
	if c.CleanSession {
		flags |= connectCleanSession
	}
	return flags
}

func (c *Connect) appendBody(dst []byte) ([]byte, error) {
	if c.Will != nil {
		if err := validQoS(c.Will.QoS); err != nil {
			return dst, fmt.Errorf("will qos: %w", err)
		}
	}

	// Variable header
	dst, _ = codec.AppendString(dst, ProtocolName)
	dst = append(dst, ProtocolLevel, c.connectFlags())
	dst = codec.AppendUint16(dst, c.KeepAlive)

	// Payload
	var err error
	if dst, err = codec.AppendString(dst, c.ClientID); err != nil {
		return dst, fmt.Errorf("client id: %w", err)
	}
	if c.Will != nil {
		if dst, err = appendTopic(dst, c.Will.Topic); err != nil {
			return dst, fmt.Errorf("will topic: %w", err)
		}
		if dst, err = codec.AppendBytes(dst, c.Will.Payload); err != nil {
			return dst, fmt.Errorf("will payload: %w", err)
		}
	}
	if c.Username != nil {
		if dst, err = codec.AppendString(dst, *c.Username); err != nil {
			return dst, fmt.Errorf("username: %w", err)
		}
	}
	if c.Password != nil {
		if dst, err = codec.AppendBytes(dst, c.Password); err != nil {
			return dst, fmt.Errorf("password: %w", err)
		}
	}
	return dst, nil
}

func (c *Connect) unpack(_ byte, r *codec.Reader) error {
	name, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("protocol name: %w", err)
	}
	if name != ProtocolName {
		return fmt.Errorf("%w: %q", ErrProtocolName, name)
	}
	level, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("protocol level: %w", err)
	}
	if level != ProtocolLevel {
		return fmt.Errorf("%w: %d", ErrProtocolLevel, level)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("connect flags: %w", err)
	}
	if flags&connectReserved != 0 {
		return fmt.Errorf("%w: reserved bit set", ErrMalformedConnectFlags)
	}
	hasWill := flags&connectWill != 0
	willQoS := QoS((flags & connectWillQoSMask) >> connectWillQoSShift)
	willRetain := flags&connectWillRetain != 0
	if !hasWill && (willQoS != QoS0 || willRetain) {
		return fmt.Errorf("%w: will qos or retain without will", ErrMalformedConnectFlags)
	}
	if err := validQoS(willQoS); err != nil {
		return fmt.Errorf("will qos: %w", err)
	}
	c.CleanSession = flags&connectCleanSession != 0

	if c.KeepAlive, err = r.ReadUint16(); err != nil {
		return fmt.Errorf("keep alive: %w", err)
	}
	if c.ClientID, err = r.ReadString(); err != nil {
		return fmt.Errorf("client id: %w", err)
	}
	if hasWill {
		will := &Message{QoS: willQoS, Retain: willRetain}
		if will.Topic, err = readTopic(r); err != nil {
			return fmt.Errorf("will topic: %w", err)
		}
		payload, err := r.ReadBytes()
		if err != nil {
			return fmt.Errorf("will payload: %w", err)
		}
		if len(payload) > 0 {
			will.Payload = payload
		}
		c.Will = will
	}
	if flags&connectUsername != 0 {
		username, err := r.ReadString()
		if err != nil {
			return fmt.Errorf("username: %w", err)
		}
		c.Username = &username
	}
	if flags&connectPassword != 0 {
		if c.Password, err = r.ReadBytes(); err != nil {
			return fmt.Errorf("password: %w", err)
		}
	}
	return nil
}
