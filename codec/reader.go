// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"unicode/utf8"
)

// Reader is a bounded cursor over the body of a single packet.
// Every read is checked against the end of the body, so running out of
// bytes is reported the same way for every field.
// Slices returned by Reader point into the underlying data.
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a new reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of bytes remaining to be read.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Offset returns the number of bytes consumed so far. A failed read does
// not advance it.
func (r *Reader) Offset() int {
	return r.offset
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, ErrIncompleteMessage
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, ErrIncompleteMessage
	}
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

// ReadBytes reads a 2-byte length L and then exactly L bytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	if r.Remaining() < 2 {
		return nil, ErrTruncatedLength
	}
	length := int(binary.BigEndian.Uint16(r.data[r.offset:]))
	if r.Remaining()-2 < length {
		return nil, ErrIncompleteMessage
	}
	r.offset += 2
	b := r.data[r.offset : r.offset+length : r.offset+length]
	r.offset += length
	return b, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// ReadRemaining returns all remaining bytes.
func (r *Reader) ReadRemaining() []byte {
	b := r.data[r.offset:]
	r.offset = len(r.data)
	return b
}

// Skip advances the offset by n bytes. It fails with ErrIncompleteMessage,
// without moving, when fewer than n bytes remain.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.Remaining() < n {
		return ErrIncompleteMessage
	}
	r.offset += n
	return nil
}
