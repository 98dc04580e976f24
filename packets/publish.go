// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// PUBLISH fixed-header flag bits.
const (
	publishRetain   = 1 << 0
	publishQoSShift = 1
	publishQoSMask  = 0x03 << publishQoSShift
	publishDup      = 1 << 3
)

// Publish represents the MQTT V3.1.1 PUBLISH packet.
// PacketID is set if and only if Message.QoS is not QoS0.
type Publish struct {
	Dup      bool
	Message  Message
	PacketID *PacketID
}

func (p *Publish) String() string {
	id := "<none>"
	if p.PacketID != nil {
		id = fmt.Sprint(*p.PacketID)
	}
	return fmt.Sprintf("type: PUBLISH dup: %t packet_id: %s %s", p.Dup, id, p.Message)
}

func (p *Publish) Type() byte {
	return PublishType
}

func (p *Publish) Details() Details {
	d := Details{Type: PublishType, QoS: p.Message.QoS}
	if p.PacketID != nil {
		d.ID = *p.PacketID
	}
	return d
}

func (p *Publish) flags() byte {
	var flags byte
	if p.Message.Retain {
		flags |= publishRetain
	}
	flags |= byte(p.Message.QoS&0x03) << publishQoSShift
	if p.Dup {
		flags |= publishDup
	}
	return flags
}

func (p *Publish) appendBody(dst []byte) ([]byte, error) {
	if err := validQoS(p.Message.QoS); err != nil {
		return dst, err
	}
	switch {
	case p.Message.QoS != QoS0 && p.PacketID == nil:
		return dst, ErrMissingPacketID
	case p.Message.QoS == QoS0 && p.PacketID != nil:
		return dst, ErrSurplusPacketID
	}

	var err error
	if dst, err = appendTopic(dst, p.Message.Topic); err != nil {
		return dst, fmt.Errorf("topic: %w", err)
	}
	if p.PacketID != nil {
		dst = codec.AppendUint16(dst, uint16(*p.PacketID))
	}
	return append(dst, p.Message.Payload...), nil
}

func (p *Publish) unpack(flags byte, r *codec.Reader) error {
	qos := QoS((flags & publishQoSMask) >> publishQoSShift)
	if err := validQoS(qos); err != nil {
		return err
	}
	p.Dup = flags&publishDup != 0
	p.Message.QoS = qos
	p.Message.Retain = flags&publishRetain != 0

	var err error
	if p.Message.Topic, err = readTopic(r); err != nil {
		return fmt.Errorf("topic: %w", err)
	}
	if qos != QoS0 {
		id, err := r.ReadUint16()
		if err != nil {
			return fmt.Errorf("packet id: %w", err)
		}
		p.PacketID = Ptr(PacketID(id))
	}
	if payload := r.ReadRemaining(); len(payload) > 0 {
		p.Message.Payload = payload
	}
	return nil
}
