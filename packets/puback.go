// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// PubAck represents the MQTT V3.1.1 PUBACK packet. It acknowledges a QoS 1 PUBLISH.
type PubAck struct {
	ID PacketID
}

func (p *PubAck) String() string {
	return fmt.Sprintf("type: PUBACK packet_id: %d", p.ID)
}

func (p *PubAck) Type() byte {
	return PubAckType
}

func (p *PubAck) Details() Details {
	return Details{Type: PubAckType, ID: p.ID}
}

func (p *PubAck) flags() byte {
	return 0
}

func (p *PubAck) appendBody(dst []byte) ([]byte, error) {
	return codec.AppendUint16(dst, uint16(p.ID)), nil
}

func (p *PubAck) unpack(_ byte, r *codec.Reader) error {
	id, err := readPacketID(r)
	p.ID = id
	return err
}
