// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"errors"
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// Codec errors re-exported so callers need a single import.
var (
	ErrIncompleteMessage = codec.ErrIncompleteMessage
	ErrTruncatedLength   = codec.ErrTruncatedLength
	ErrMalformedVarint   = codec.ErrMalformedVarint
	ErrInvalidUTF8       = codec.ErrInvalidUTF8
	ErrFieldTooLarge     = codec.ErrFieldTooLarge
)

// FieldTooLargeError carries the size of a field longer than 65535 bytes.
type FieldTooLargeError = codec.FieldTooLargeError

var (
	ErrInvalidQoS            = errors.New("invalid QoS")
	ErrInvalidReturnCode     = errors.New("invalid return code")
	ErrUnknownPacketType     = errors.New("unknown packet type")
	ErrInvalidFlags          = errors.New("invalid fixed header flags")
	ErrTrailingBytes         = errors.New("unexpected bytes after packet body")
	ErrProtocolName          = errors.New("unsupported protocol name")
	ErrProtocolLevel         = errors.New("unsupported protocol level")
	ErrMalformedConnectFlags = errors.New("malformed connect flags")
	ErrEmptyTopic            = errors.New("empty topic")
	ErrMissingPacketID       = errors.New("missing packet id")
	ErrSurplusPacketID       = errors.New("surplus packet id")
	ErrPacketTooLarge        = errors.New("packet exceeds maximum size")
)

// QoSError carries a QoS value outside {0, 1, 2}.
type QoSError struct {
	Value byte
}

func (e *QoSError) Error() string {
	return fmt.Sprintf("invalid QoS %d", e.Value)
}

func (e *QoSError) Unwrap() error {
	return ErrInvalidQoS
}

// ReturnCodeError carries an unmapped CONNACK or SUBACK return code.
type ReturnCodeError struct {
	Value byte
}

func (e *ReturnCodeError) Error() string {
	return fmt.Sprintf("invalid return code 0x%02x", e.Value)
}

func (e *ReturnCodeError) Unwrap() error {
	return ErrInvalidReturnCode
}

// UnknownPacketTypeError carries the raw packet type nibble of the fixed header.
type UnknownPacketTypeError struct {
	Value byte
}

func (e *UnknownPacketTypeError) Error() string {
	return fmt.Sprintf("unknown packet type %d", e.Value)
}

func (e *UnknownPacketTypeError) Unwrap() error {
	return ErrUnknownPacketType
}

func validQoS(q QoS) error {
	if !q.Valid() {
		return &QoSError{Value: byte(q)}
	}
	return nil
}

func appendTopic(dst []byte, topic string) ([]byte, error) {
	if topic == "" {
		return dst, ErrEmptyTopic
	}
	return codec.AppendString(dst, topic)
}

func readTopic(r *codec.Reader) (string, error) {
	topic, err := r.ReadString()
	if err != nil {
		return "", err
	}
	if topic == "" {
		return "", ErrEmptyTopic
	}
	return topic, nil
}

func readPacketID(r *codec.Reader) (PacketID, error) {
	id, err := r.ReadUint16()
	if err != nil {
		return 0, fmt.Errorf("packet id: %w", err)
	}
	return PacketID(id), nil
}
