// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/absmach/mqttwire/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testString = "test string"
	testBytes  = []byte("test bytes")
	utf8String = "Hello 世界 🌍"
	longString = string(make([]byte, 65535))
)

func TestEncodeDecodeBytes(t *testing.T) {
	cases := []struct {
		desc  string
		input []byte
	}{
		{desc: "encode and decode normal bytes", input: testBytes},
		{desc: "encode and decode empty bytes", input: []byte{}},
		{desc: "encode and decode UTF-8 bytes", input: []byte(utf8String)},
		{desc: "encode and decode max length bytes", input: make([]byte, 65535)},
		{desc: "encode and decode single byte", input: []byte{0x42}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			encoded, err := codec.EncodeBytes(tc.input)
			require.NoError(t, err)
			assert.Len(t, encoded, len(tc.input)+2)

			r := codec.NewReader(encoded)
			decoded, err := r.ReadBytes()
			require.NoError(t, err)
			assert.Equal(t, tc.input, decoded)
			assert.Equal(t, 0, r.Remaining())
		})
	}
}

func TestEncodeDecodeString(t *testing.T) {
	cases := []struct {
		desc  string
		input string
	}{
		{desc: "encode and decode normal string", input: testString},
		{desc: "encode and decode empty string", input: ""},
		{desc: "encode and decode UTF-8 string", input: utf8String},
		{desc: "encode and decode max length string", input: longString},
		{desc: "encode and decode string with special characters", input: "test/topic/+/#"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			encoded, err := codec.EncodeString(tc.input)
			require.NoError(t, err)

			decoded, err := codec.NewReader(encoded).ReadString()
			require.NoError(t, err)
			assert.Equal(t, tc.input, decoded)
		})
	}
}

func TestEncodeFieldTooLarge(t *testing.T) {
	_, err := codec.EncodeBytes(make([]byte, 65536))
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrFieldTooLarge))

	var ftl *codec.FieldTooLargeError
	require.True(t, errors.As(err, &ftl))
	assert.Equal(t, 65536, ftl.Size)

	dst := []byte{0x01}
	out, err := codec.AppendString(dst, string(make([]byte, 70000)))
	assert.ErrorIs(t, err, codec.ErrFieldTooLarge)
	assert.Equal(t, dst, out, "destination must be left untouched")
}

func TestEncodeUint16(t *testing.T) {
	cases := []struct {
		desc  string
		input uint16
		want  []byte
	}{
		{desc: "zero", input: 0, want: []byte{0x00, 0x00}},
		{desc: "keep alive 60", input: 60, want: []byte{0x00, 0x3C}},
		{desc: "big endian order", input: 0x1234, want: []byte{0x12, 0x34}},
		{desc: "max value", input: 65535, want: []byte{0xFF, 0xFF}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, codec.EncodeUint16(tc.input))
			assert.Equal(t, tc.want, codec.AppendUint16(nil, tc.input))

			got, err := codec.NewReader(tc.want).ReadUint16()
			require.NoError(t, err)
			assert.Equal(t, tc.input, got)
		})
	}
}

func TestVBISizeOutOfRange(t *testing.T) {
	for _, num := range []int{-1, codec.MaxVBI + 1} {
		assert.Equal(t, 0, codec.VBISize(num), "size of %d", num)
		_, err := codec.EncodeVBI(num)
		assert.ErrorIs(t, err, codec.ErrMalformedVarint)
	}
}

func TestEncodeDecodeVBI(t *testing.T) {
	cases := []struct {
		desc        string
		input       int
		expectedLen int
	}{
		{desc: "encode and decode zero", input: 0, expectedLen: 1},
		{desc: "encode and decode boundary 127 (1 byte)", input: 127, expectedLen: 1},
		{desc: "encode and decode boundary 128 (2 bytes)", input: 128, expectedLen: 2},
		{desc: "encode and decode boundary 16383 (2 bytes)", input: 16383, expectedLen: 2},
		{desc: "encode and decode boundary 16384 (3 bytes)", input: 16384, expectedLen: 3},
		{desc: "encode and decode boundary 2097151 (3 bytes)", input: 2097151, expectedLen: 3},
		{desc: "encode and decode boundary 2097152 (4 bytes)", input: 2097152, expectedLen: 4},
		{desc: "encode and decode max VBI value", input: codec.MaxVBI, expectedLen: 4},
		{desc: "encode and decode typical packet size", input: 1024, expectedLen: 2},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			encoded, err := codec.EncodeVBI(tc.input)
			require.NoError(t, err)
			assert.Len(t, encoded, tc.expectedLen, "VBI length mismatch")
			assert.Equal(t, tc.expectedLen, codec.VBISize(tc.input))

			decoded, n, err := codec.DecodeVBI(bytes.NewReader(encoded))
			require.NoError(t, err)
			assert.Equal(t, tc.input, decoded)
			assert.Equal(t, tc.expectedLen, n)

			// Same result without the io.ByteReader fast path.
			decoded, n, err = codec.DecodeVBI(iotest.OneByteReader(bytes.NewReader(encoded)))
			require.NoError(t, err)
			assert.Equal(t, tc.input, decoded)
			assert.Equal(t, tc.expectedLen, n)
		})
	}
}

func TestEncodeVBIOutOfRange(t *testing.T) {
	for _, n := range []int{codec.MaxVBI + 1, 1 << 30, -1} {
		_, err := codec.EncodeVBI(n)
		assert.ErrorIs(t, err, codec.ErrMalformedVarint, "value %d", n)
	}
}

func TestDecodeVBIErrors(t *testing.T) {
	cases := []struct {
		desc     string
		input    []byte
		err      error
		consumed int
	}{
		{
			desc:     "five byte encoding",
			input:    []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F},
			err:      codec.ErrMalformedVarint,
			consumed: 4,
		},
		{
			desc:     "four continuation bytes without terminator",
			input:    []byte{0x80, 0x80, 0x80, 0x80},
			err:      codec.ErrMalformedVarint,
			consumed: 4,
		},
		{
			desc:     "stream ends after continuation byte",
			input:    []byte{0x80},
			err:      codec.ErrTruncatedLength,
			consumed: 1,
		},
		{
			desc:     "empty stream",
			input:    []byte{},
			err:      codec.ErrTruncatedLength,
			consumed: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, n, err := codec.DecodeVBI(bytes.NewReader(tc.input))
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.consumed, n)
		})
	}
}

func TestDecodeVBITruncatedIsIncomplete(t *testing.T) {
	_, _, err := codec.DecodeVBI(bytes.NewReader([]byte{0xC1, 0x80}))
	assert.ErrorIs(t, err, codec.ErrIncompleteMessage)
}

func TestDecodeVBIPropagatesReadError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := codec.DecodeVBI(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, codec.ErrIncompleteMessage)
}

func TestEncodeBool(t *testing.T) {
	assert.Equal(t, byte(1), codec.EncodeBool(true))
	assert.Equal(t, byte(0), codec.EncodeBool(false))
}

func TestDecodeAfterEOF(t *testing.T) {
	_, _, err := codec.DecodeVBI(io.LimitReader(bytes.NewReader([]byte{0x80, 0x01}), 1))
	assert.ErrorIs(t, err, codec.ErrTruncatedLength)
}
