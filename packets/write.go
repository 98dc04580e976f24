// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"fmt"
	"io"
	"strings"

	"github.com/absmach/mqttwire/codec"
	"github.com/absmach/mqttwire/internal/bufpool"
)

// maxHeaderLen is one type/flags byte plus the longest remaining length.
const maxHeaderLen = 5

// Encode serializes p into a newly allocated byte slice.
func Encode(p Packet) ([]byte, error) {
	return appendPacket(nil, p)
}

// WritePacket serializes p and writes it to w with a single Write call.
// It returns the number of bytes written.
func WritePacket(w io.Writer, p Packet) (int, error) {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	b, err := appendPacket(*buf, p)
	*buf = b
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

// appendPacket appends the full wire form of p to dst. The body is written
// after a placeholder for the fixed header and shifted left once its length
// is known, so the packet is assembled in one buffer.
func appendPacket(dst []byte, p Packet) ([]byte, error) {
	start := len(dst)
	dst = append(dst, make([]byte, maxHeaderLen)...)

	dst, err := p.appendBody(dst)
	if err != nil {
		return dst[:start], fmt.Errorf("%s: %w", strings.ToLower(typeName(p.Type())), err)
	}

	var hdr [maxHeaderLen]byte
	h, err := codec.AppendVBI(append(hdr[:0], p.Type()<<4|p.flags()), len(dst)-start-maxHeaderLen)
	if err != nil {
		return dst[:start], fmt.Errorf("%s: remaining length: %w", strings.ToLower(typeName(p.Type())), err)
	}

	n := copy(dst[start:], h)
	if shift := maxHeaderLen - n; shift > 0 {
		copy(dst[start+n:], dst[start+maxHeaderLen:])
		dst = dst[:len(dst)-shift]
	}
	return dst, nil
}
