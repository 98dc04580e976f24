// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "github.com/absmach/mqttwire/codec"

// PingResp represents the MQTT V3.1.1 PINGRESP packet. It has no body.
type PingResp struct{}

func (p *PingResp) String() string {
	return "type: PINGRESP"
}

func (p *PingResp) Type() byte {
	return PingRespType
}

func (p *PingResp) Details() Details {
	return Details{Type: PingRespType}
}

func (p *PingResp) flags() byte {
	return 0
}

func (p *PingResp) appendBody(dst []byte) ([]byte, error) {
	return dst, nil
}

func (p *PingResp) unpack(byte, *codec.Reader) error {
	return nil
}
