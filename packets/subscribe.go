// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"strings"

	"github.com/absmach/mqttwire/codec"
)

// Subscribe represents the MQTT V3.1.1 SUBSCRIBE packet.
type Subscribe struct {
	ID     PacketID
	Topics []Subscription
}

func (s *Subscribe) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "type: SUBSCRIBE packet_id: %d topics:", s.ID)
	for _, t := range s.Topics {
		fmt.Fprintf(&b, " [%s qos: %d]", t.Topic, t.QoS)
	}
	return b.String()
}

func (s *Subscribe) Type() byte {
	return SubscribeType
}

func (s *Subscribe) Details() Details {
	return Details{Type: SubscribeType, ID: s.ID, QoS: QoS1}
}

func (s *Subscribe) flags() byte {
	return reservedFlags
}

func (s *Subscribe) appendBody(dst []byte) ([]byte, error) {
	dst = codec.AppendUint16(dst, uint16(s.ID))
	var err error
	for i, t := range s.Topics {
		if err = validQoS(t.QoS); err != nil {
			return dst, fmt.Errorf("topic %d: %w", i, err)
		}
		if dst, err = appendTopic(dst, t.Topic); err != nil {
			return dst, fmt.Errorf("topic %d: %w", i, err)
		}
		dst = append(dst, byte(t.QoS))
	}
	return dst, nil
}

func (s *Subscribe) unpack(_ byte, r *codec.Reader) error {
	var err error
	if s.ID, err = readPacketID(r); err != nil {
		return err
	}
	for r.Remaining() > 0 {
		topic, err := readTopic(r)
		if err != nil {
			return fmt.Errorf("topic %d: %w", len(s.Topics), err)
		}
		qos, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("topic %d qos: %w", len(s.Topics), err)
		}
		if err := validQoS(QoS(qos)); err != nil {
			return fmt.Errorf("topic %d: %w", len(s.Topics), err)
		}
		s.Topics = append(s.Topics, Subscription{Topic: topic, QoS: QoS(qos)})
	}
	return nil
}
