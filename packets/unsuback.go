// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// UnsubAck represents the MQTT V3.1.1 UNSUBACK packet. It acknowledges an UNSUBSCRIBE.
type UnsubAck struct {
	ID PacketID
}

func (p *UnsubAck) String() string {
	return fmt.Sprintf("type: UNSUBACK packet_id: %d", p.ID)
}

func (p *UnsubAck) Type() byte {
	return UnsubAckType
}

func (p *UnsubAck) Details() Details {
	return Details{Type: UnsubAckType, ID: p.ID}
}

func (p *UnsubAck) flags() byte {
	return 0
}

func (p *UnsubAck) appendBody(dst []byte) ([]byte, error) {
	return codec.AppendUint16(dst, uint16(p.ID)), nil
}

func (p *UnsubAck) unpack(_ byte, r *codec.Reader) error {
	id, err := readPacketID(r)
	p.ID = id
	return err
}
