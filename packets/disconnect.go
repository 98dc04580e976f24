// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "github.com/absmach/mqttwire/codec"

// Disconnect represents the MQTT V3.1.1 DISCONNECT packet. It has no body.
type Disconnect struct{}

func (p *Disconnect) String() string {
	return "type: DISCONNECT"
}

func (p *Disconnect) Type() byte {
	return DisconnectType
}

func (p *Disconnect) Details() Details {
	return Details{Type: DisconnectType}
}

func (p *Disconnect) flags() byte {
	return 0
}

func (p *Disconnect) appendBody(dst []byte) ([]byte, error) {
	return dst, nil
}

func (p *Disconnect) unpack(byte, *codec.Reader) error {
	return nil
}
