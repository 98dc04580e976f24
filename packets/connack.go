// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// ConnAck represents the MQTT V3.1.1 CONNACK packet.
type ConnAck struct {
	SessionPresent bool
	ReturnCode     ConnectReturnCode
}

func (c *ConnAck) String() string {
	return fmt.Sprintf("type: CONNACK session_present: %t return_code: %d (%s)", c.SessionPresent, c.ReturnCode, c.ReturnCode)
}

func (c *ConnAck) Type() byte {
	return ConnAckType
}

func (c *ConnAck) Details() Details {
	return Details{Type: ConnAckType}
}

func (c *ConnAck) flags() byte {
	return 0
}

func (c *ConnAck) appendBody(dst []byte) ([]byte, error) {
	if !c.ReturnCode.Valid() {
		return dst, fmt.Errorf("return code: %w", &ReturnCodeError{Value: byte(c.ReturnCode)})
	}
	return append(dst, codec.EncodeBool(c.SessionPresent), byte(c.ReturnCode)), nil
}

func (c *ConnAck) unpack(_ byte, r *codec.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("acknowledge flags: %w", err)
	}
	c.SessionPresent = flags&0x01 != 0

	code, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("return code: %w", err)
	}
	c.ReturnCode = ConnectReturnCode(code)
	if !c.ReturnCode.Valid() {
		return fmt.Errorf("return code: %w", &ReturnCodeError{Value: code})
	}
	return nil
}
