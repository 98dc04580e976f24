// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// PubComp represents the MQTT V3.1.1 PUBCOMP packet. It completes the QoS 2 exchange.
type PubComp struct {
	ID PacketID
}

func (p *PubComp) String() string {
	return fmt.Sprintf("type: PUBCOMP packet_id: %d", p.ID)
}

func (p *PubComp) Type() byte {
	return PubCompType
}

func (p *PubComp) Details() Details {
	return Details{Type: PubCompType, ID: p.ID}
}

func (p *PubComp) flags() byte {
	return 0
}

func (p *PubComp) appendBody(dst []byte) ([]byte, error) {
	return codec.AppendUint16(dst, uint16(p.ID)), nil
}

func (p *PubComp) unpack(_ byte, r *codec.Reader) error {
	id, err := readPacketID(r)
	p.ID = id
	return err
}
