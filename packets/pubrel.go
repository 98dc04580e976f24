// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// PubRel represents the MQTT V3.1.1 PUBREL packet. It is sent in response to PUBREC
// and always carries the reserved flags 0b0010.
type PubRel struct {
	ID PacketID
}

func (p *PubRel) String() string {
	return fmt.Sprintf("type: PUBREL packet_id: %d", p.ID)
}

func (p *PubRel) Type() byte {
	return PubRelType
}

func (p *PubRel) Details() Details {
	return Details{Type: PubRelType, ID: p.ID}
}

func (p *PubRel) flags() byte {
	return reservedFlags
}

func (p *PubRel) appendBody(dst []byte) ([]byte, error) {
	return codec.AppendUint16(dst, uint16(p.ID)), nil
}

func (p *PubRel) unpack(_ byte, r *codec.Reader) error {
	id, err := readPacketID(r)
	p.ID = id
	return err
}
