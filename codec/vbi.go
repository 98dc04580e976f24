// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"io"
)

// MaxVBI is the largest value a 4-byte Variable Byte Integer can carry.
const MaxVBI = 268435455

const maxVBISize = 4

// VBISize returns the number of bytes EncodeVBI produces for num, or 0
// when num is outside [0, MaxVBI] and cannot be encoded.
func VBISize(num int) int {
	switch {
	case num < 0 || num > MaxVBI:
		return 0
	case num < 128:
		return 1
	case num < 16384:
		return 2
	case num < 2097152:
		return 3
	default:
		return 4
	}
}

// EncodeVBI is used for Variable Byte Integers used to
// encode length in a minimal way.
func EncodeVBI(num int) ([]byte, error) {
	return AppendVBI(make([]byte, 0, maxVBISize), num)
}

// AppendVBI appends the Variable Byte Integer encoding of num to dst.
func AppendVBI(dst []byte, num int) ([]byte, error) {
	if num < 0 || num > MaxVBI {
		return dst, fmt.Errorf("%w: %d out of range [0, %d]", ErrMalformedVarint, num, MaxVBI)
	}
	v := uint32(num)
	for {
		b := byte(v & 0x7F) // take 7 least significant bits
		v >>= 7
		if v > 0 {
			b |= 0x80 // set continuation bit
		}
		dst = append(dst, b)
		if v == 0 {
			return dst, nil
		}
	}
}

// DecodeVBI reads a Variable Byte Integer from r one byte at a time and
// returns its value and the number of bytes consumed. It never reads past
// the 4th byte: a 4th byte with the continuation bit set is ErrMalformedVarint.
func DecodeVBI(r io.Reader) (int, int, error) {
	var value, n int
	multiplier := 1
	for n < maxVBISize {
		b, err := readByte(r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, n, ErrTruncatedLength
			}
			return 0, n, err
		}
		n++
		value += int(b&0x7F) * multiplier
		if b&0x80 == 0 {
			return value, n, nil
		}
		multiplier *= 128
	}
	return 0, n, ErrMalformedVarint
}

func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
