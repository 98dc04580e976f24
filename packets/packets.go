// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package packets implements the MQTT 3.1.1 control packets and their
// wire encoding. Encode and WritePacket serialize a Packet; ReadPacket
// reads exactly one packet from a byte stream and decodes it.
package packets

import (
	"fmt"

	"github.com/absmach/mqttwire/codec"
)

// Protocol name and level written in every CONNECT packet.
const (
	ProtocolName  = "MQTT"
	ProtocolLevel = 0x04 // MQTT 3.1.1
)

// Packet type constants.
const (
	ConnectType byte = iota + 1 // 0 value is forbidden
	ConnAckType
	PublishType
	PubAckType
	PubRecType
	PubRelType
	PubCompType
	SubscribeType
	SubAckType
	UnsubscribeType
	UnsubAckType
	PingReqType
	PingRespType
	DisconnectType
)

// Reserved fixed-header flags for PUBREL, SUBSCRIBE and UNSUBSCRIBE.
const reservedFlags byte = 0b0010

// PacketNames maps packet type constants to string names.
var PacketNames = map[byte]string{
	ConnectType:     "CONNECT",
	ConnAckType:     "CONNACK",
	PublishType:     "PUBLISH",
	PubAckType:      "PUBACK",
	PubRecType:      "PUBREC",
	PubRelType:      "PUBREL",
	PubCompType:     "PUBCOMP",
	SubscribeType:   "SUBSCRIBE",
	SubAckType:      "SUBACK",
	UnsubscribeType: "UNSUBSCRIBE",
	UnsubAckType:    "UNSUBACK",
	PingReqType:     "PINGREQ",
	PingRespType:    "PINGRESP",
	DisconnectType:  "DISCONNECT",
}

// Packet is an MQTT control packet. The set of implementations is closed:
// *Connect, *ConnAck, *Publish, *PubAck, *PubRec, *PubRel, *PubComp,
// *Subscribe, *SubAck, *Unsubscribe, *UnsubAck, *PingReq, *PingResp
// and *Disconnect.
type Packet interface {
	// Type returns the packet type constant.
	Type() byte

	// String returns a human-readable representation.
	String() string

	// Details returns the packet metadata used to correlate acknowledgments.
	Details() Details

	// flags returns the low nibble of the fixed header.
	flags() byte

	// appendBody appends the variable header and payload to dst.
	appendBody(dst []byte) ([]byte, error)

	// unpack parses the variable header and payload from one packet body.
	unpack(flags byte, r *codec.Reader) error
}

// Details contains packet metadata useful for QoS handling.
type Details struct {
	Type byte
	ID   PacketID
	QoS  QoS
}

// FixedHeader represents the MQTT fixed header present in all packets.
type FixedHeader struct {
	PacketType      byte
	Flags           byte
	RemainingLength int
}

// String returns a human-readable representation of the fixed header.
func (fh FixedHeader) String() string {
	return fmt.Sprintf("type: %s flags: %04b remaining_length: %d",
		typeName(fh.PacketType), fh.Flags, fh.RemainingLength)
}

// Encode serializes the fixed header to bytes.
func (fh FixedHeader) Encode() ([]byte, error) {
	return codec.AppendVBI([]byte{fh.PacketType<<4 | fh.Flags&0x0F}, fh.RemainingLength)
}

// Ptr returns a pointer to v. It is a shorthand for optional packet fields.
func Ptr[T any](v T) *T {
	return &v
}

func typeName(t byte) string {
	if name, ok := PacketNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", t)
}
