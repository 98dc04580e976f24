// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "github.com/absmach/mqttwire/codec"

// PingReq represents the MQTT V3.1.1 PINGREQ packet. It has no body.
type PingReq struct{}

func (p *PingReq) String() string {
	return "type: PINGREQ"
}

func (p *PingReq) Type() byte {
	return PingReqType
}

func (p *PingReq) Details() Details {
	return Details{Type: PingReqType}
}

func (p *PingReq) flags() byte {
	return 0
}

func (p *PingReq) appendBody(dst []byte) ([]byte, error) {
	return dst, nil
}

func (p *PingReq) unpack(byte, *codec.Reader) error {
	return nil
}
