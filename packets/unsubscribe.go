// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// Unsubscribe represents the MQTT V3.1.1 UNSUBSCRIBE packet.
type Unsubscribe struct {
	ID     PacketID
	Topics []string
}

func (u *Unsubscribe) String() string {
	return fmt.Sprintf("type: UNSUBSCRIBE packet_id: %d topics: %v", u.ID, u.Topics)
}

func (u *Unsubscribe) Type() byte {
	return UnsubscribeType
}

func (u *Unsubscribe) Details() Details {
	return Details{Type: UnsubscribeType, ID: u.ID, QoS: QoS1}
}

func (u *Unsubscribe) flags() byte {
	return reservedFlags
}

func (u *Unsubscribe) appendBody(dst []byte) ([]byte, error) {
	dst = codec.AppendUint16(dst, uint16(u.ID))
	var err error
	for i, topic := range u.Topics {
		if dst, err = appendTopic(dst, topic); err != nil {
			return dst, fmt.Errorf("topic %d: %w", i, err)
		}
	}
	return dst, nil
}

func (u *Unsubscribe) unpack(_ byte, r *codec.Reader) error {
	var err error
	if u.ID, err = readPacketID(r); err != nil {
		return err
	}
	for r.Remaining() > 0 {
		topic, err := readTopic(r)
		if err != nil {
			return fmt.Errorf("topic %d: %w", len(u.Topics), err)
		}
		u.Topics = append(u.Topics, topic)
	}
	return nil
}
