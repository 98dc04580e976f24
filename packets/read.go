// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/absmach/mqttwire/codec"
)

var packetFactory = [16]func() Packet{
	ConnectType:     func() Packet { return &Connect{} },
	ConnAckType:     func() Packet { return &ConnAck{} },
	PublishType:     func() Packet { return &Publish{} },
	PubAckType:      func() Packet { return &PubAck{} },
	PubRecType:      func() Packet { return &PubRec{} },
	PubRelType:      func() Packet { return &PubRel{} },
	PubCompType:     func() Packet { return &PubComp{} },
	SubscribeType:   func() Packet { return &Subscribe{} },
	SubAckType:      func() Packet { return &SubAck{} },
	UnsubscribeType: func() Packet { return &Unsubscribe{} },
	UnsubAckType:    func() Packet { return &UnsubAck{} },
	PingReqType:     func() Packet { return &PingReq{} },
	PingRespType:    func() Packet { return &PingResp{} },
	DisconnectType:  func() Packet { return &Disconnect{} },
}

// NewPacket returns an empty packet for the given fixed header. It fails for
// reserved packet types and for flags other than those mandated by the type.
func NewPacket(fh FixedHeader) (Packet, error) {
	newFn := packetFactory[fh.PacketType&0x0F]
	if newFn == nil {
		return nil, &UnknownPacketTypeError{Value: fh.PacketType}
	}
	p := newFn()
	if fh.PacketType != PublishType && fh.Flags != p.flags() {
		return nil, fmt.Errorf("%s: %w: %04b", strings.ToLower(typeName(fh.PacketType)), ErrInvalidFlags, fh.Flags)
	}
	return p, nil
}

// ReadFixedHeader reads the packet type byte and the remaining length from r.
// It returns the header and the number of bytes consumed. If r is exhausted
// before the first byte, the error matches both ErrIncompleteMessage and io.EOF.
func ReadFixedHeader(r io.Reader) (FixedHeader, int, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return FixedHeader{}, 0, fmt.Errorf("%w: %w", ErrIncompleteMessage, io.EOF)
		}
		return FixedHeader{}, 0, err
	}

	length, n, err := codec.DecodeVBI(r)
	if err != nil {
		return FixedHeader{}, 1 + n, fmt.Errorf("remaining length: %w", err)
	}
	fh := FixedHeader{
		PacketType:      b[0] >> 4,
		Flags:           b[0] & 0x0F,
		RemainingLength: length,
	}
	return fh, 1 + n, nil
}

// ReadPacket reads exactly one packet from r and decodes it.
func ReadPacket(r io.Reader) (Packet, error) {
	return ReadPacketLimit(r, 0)
}

// ReadPacketLimit is like ReadPacket but rejects packets whose remaining
// length exceeds maxSize before allocating the body. A maxSize of zero or
// less means the protocol maximum.
func ReadPacketLimit(r io.Reader, maxSize int) (Packet, error) {
	fh, _, err := ReadFixedHeader(r)
	if err != nil {
		return nil, err
	}
	p, err := NewPacket(fh)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(typeName(fh.PacketType))
	if maxSize > 0 && fh.RemainingLength > maxSize {
		return nil, fmt.Errorf("%s: %w: %d > %d", name, ErrPacketTooLarge, fh.RemainingLength, maxSize)
	}

	body := make([]byte, fh.RemainingLength)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s: body: %w", name, ErrIncompleteMessage)
		}
		return nil, fmt.Errorf("%s: body: %w", name, err)
	}

	cr := codec.NewReader(body)
	if err := p.unpack(fh.Flags, cr); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if cr.Remaining() > 0 {
		return nil, fmt.Errorf("%s: %w: %d", name, ErrTrailingBytes, cr.Remaining())
	}
	return p, nil
}

// Decode decodes a single packet from b. Bytes after the packet are an error.
func Decode(b []byte) (Packet, error) {
	r := bytes.NewReader(b)
	p, err := ReadPacket(r)
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("%w: %d after %s", ErrTrailingBytes, r.Len(), typeName(p.Type()))
	}
	return p, nil
}
