// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// PubRec represents the MQTT V3.1.1 PUBREC packet. It is the first acknowledgment of a QoS 2 PUBLISH.
type PubRec struct {
	ID PacketID
}

func (p *PubRec) String() string {
	return fmt.Sprintf("type: PUBREC packet_id: %d", p.ID)
}

func (p *PubRec) Type() byte {
	return PubRecType
}

func (p *PubRec) Details() Details {
	return Details{Type: PubRecType, ID: p.ID}
}

func (p *PubRec) flags() byte {
	return 0
}

func (p *PubRec) appendBody(dst []byte) ([]byte, error) {
	return codec.AppendUint16(dst, uint16(p.ID)), nil
}

func (p *PubRec) unpack(_ byte, r *codec.Reader) error {
	id, err := readPacketID(r)
	p.ID = id
	return err
}
