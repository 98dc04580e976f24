// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// SubAck represents the MQTT V3.1.1 SUBACK packet. ReturnCodes holds one
// entry per topic filter of the matching SUBSCRIBE, in order.
type SubAck struct {
	ID          PacketID
	ReturnCodes []SubAckReturnCode
}

func (s *SubAck) String() string {
	return fmt.Sprintf("type: SUBACK packet_id: %d return_codes: %v", s.ID, s.ReturnCodes)
}

func (s *SubAck) Type() byte {
	return SubAckType
}

func (s *SubAck) Details() Details {
	return Details{Type: SubAckType, ID: s.ID}
}

func (s *SubAck) flags() byte {
	return 0
}

func (s *SubAck) appendBody(dst []byte) ([]byte, error) {
	dst = codec.AppendUint16(dst, uint16(s.ID))
	for _, c := range s.ReturnCodes {
		if !c.Valid() {
			return dst, &ReturnCodeError{Value: byte(c)}
		}
		dst = append(dst, byte(c))
	}
	return dst, nil
}

func (s *SubAck) unpack(_ byte, r *codec.Reader) error {
	var err error
	if s.ID, err = readPacketID(r); err != nil {
		return err
	}
	for _, b := range r.ReadRemaining() {
		c := SubAckReturnCode(b)
		if !c.Valid() {
			return &ReturnCodeError{Value: b}
		}
		s.ReturnCodes = append(s.ReturnCodes, c)
	}
	return nil
}
