// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec_test

import (
	"testing"

	"github.com/absmach/mqttwire/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReadBytesErrors(t *testing.T) {
	cases := []struct {
		desc  string
		input []byte
		err   error
	}{
		{desc: "decode from empty buffer", input: []byte{}, err: codec.ErrTruncatedLength},
		{desc: "decode with incomplete length prefix", input: []byte{0x00}, err: codec.ErrTruncatedLength},
		{desc: "decode with length but no data", input: []byte{0x00, 0x05}, err: codec.ErrIncompleteMessage},
		{desc: "decode with length larger than available data", input: []byte{0x00, 0x10, 0x01, 0x02}, err: codec.ErrIncompleteMessage},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			r := codec.NewReader(tc.input)
			_, err := r.ReadBytes()
			assert.ErrorIs(t, err, tc.err)
			assert.ErrorIs(t, err, codec.ErrIncompleteMessage)
			assert.Equal(t, 0, r.Offset(), "failed read must not advance")
		})
	}
}

func TestReaderReadStringInvalidUTF8(t *testing.T) {
	r := codec.NewReader([]byte{0x00, 0x02, 0xC3, 0x28})
	_, err := r.ReadString()
	assert.ErrorIs(t, err, codec.ErrInvalidUTF8)
}

func TestReaderSequence(t *testing.T) {
	data := []byte{0x07, 0x12, 0x34, 0x00, 0x02, 'a', 'b', 'x', 'y', 'z'}
	r := codec.NewReader(data)

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x07), b)

	n, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), n)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
	assert.Equal(t, 7, r.Offset())
	assert.Equal(t, 3, r.Remaining())

	require.NoError(t, r.Skip(1))
	assert.Equal(t, []byte("yz"), r.ReadRemaining())
	assert.Equal(t, 0, r.Remaining())

	_, err = r.ReadByte()
	assert.ErrorIs(t, err, codec.ErrIncompleteMessage)
	_, err = r.ReadUint16()
	assert.ErrorIs(t, err, codec.ErrIncompleteMessage)
	assert.ErrorIs(t, r.Skip(1), codec.ErrIncompleteMessage)
}

func TestReaderBytesDoNotAliasFollowingData(t *testing.T) {
	data := []byte{0x00, 0x01, 'a', 'b'}
	b, err := codec.NewReader(data).ReadBytes()
	require.NoError(t, err)
	b = append(b, 'z')
	assert.Equal(t, byte('b'), data[3])
	assert.Equal(t, []byte("az"), b)
}
