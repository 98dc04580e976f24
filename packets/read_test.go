// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	. "github.com/absmach/mqttwire/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPacketErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{
			name: "empty stream",
			data: nil,
			err:  ErrIncompleteMessage,
		},
		{
			name: "truncated remaining length",
			data: []byte{0x30, 0x80},
			err:  ErrTruncatedLength,
		},
		{
			name: "five byte remaining length",
			data: []byte{0x30, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F},
			err:  ErrMalformedVarint,
		},
		{
			name: "reserved type 0",
			data: []byte{0x00, 0x00},
			err:  ErrUnknownPacketType,
		},
		{
			name: "reserved type 15",
			data: []byte{0xF0, 0x00},
			err:  ErrUnknownPacketType,
		},
		{
			name: "short body",
			data: []byte{0x30, 0x0A, 0x00, 0x02, 'a', 'b', 'h', 'e', 'l', 'l', 'o'},
			err:  ErrIncompleteMessage,
		},
		{
			name: "subscribe without reserved flags",
			data: []byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x01, 't', 0x00},
			err:  ErrInvalidFlags,
		},
		{
			name: "pingreq with flags",
			data: []byte{0xC1, 0x00},
			err:  ErrInvalidFlags,
		},
		{
			name: "pubrel without reserved flags",
			data: []byte{0x60, 0x02, 0x00, 0x01},
			err:  ErrInvalidFlags,
		},
		{
			name: "disconnect with trailing bytes",
			data: []byte{0xE0, 0x01, 0x00},
			err:  ErrTrailingBytes,
		},
		{
			name: "puback with trailing bytes",
			data: []byte{0x40, 0x03, 0x00, 0x01, 0x00},
			err:  ErrTrailingBytes,
		},
		{
			name: "puback missing id",
			data: []byte{0x40, 0x01, 0x00},
			err:  ErrIncompleteMessage,
		},
		{
			name: "publish qos 3",
			data: []byte{0x36, 0x05, 0x00, 0x01, 't', 0x00, 0x01},
			err:  ErrInvalidQoS,
		},
		{
			name: "publish empty topic",
			data: []byte{0x30, 0x02, 0x00, 0x00},
			err:  ErrEmptyTopic,
		},
		{
			name: "publish invalid utf8 topic",
			data: []byte{0x30, 0x04, 0x00, 0x02, 0xC3, 0x28},
			err:  ErrInvalidUTF8,
		},
		{
			name: "publish topic length past body",
			data: []byte{0x30, 0x03, 0x00, 0x05, 'a'},
			err:  ErrIncompleteMessage,
		},
		{
			name: "publish topic length prefix cut",
			data: []byte{0x30, 0x01, 0x00},
			err:  ErrTruncatedLength,
		},
		{
			name: "connack unknown return code",
			data: []byte{0x20, 0x02, 0x00, 0x06},
			err:  ErrInvalidReturnCode,
		},
		{
			name: "suback unknown return code",
			data: []byte{0x90, 0x03, 0x00, 0x01, 0x03},
			err:  ErrInvalidReturnCode,
		},
		{
			name: "connect wrong protocol name",
			data: []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'I', 'S', 0x04, 0x02, 0x00, 0x3C, 0x00, 0x00},
			err:  ErrProtocolName,
		},
		{
			name: "connect wrong protocol level",
			data: []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x05, 0x02, 0x00, 0x3C, 0x00, 0x00},
			err:  ErrProtocolLevel,
		},
		{
			name: "connect reserved flag",
			data: []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x03, 0x00, 0x3C, 0x00, 0x00},
			err:  ErrMalformedConnectFlags,
		},
		{
			name: "connect will retain without will",
			data: []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x22, 0x00, 0x3C, 0x00, 0x00},
			err:  ErrMalformedConnectFlags,
		},
		{
			name: "connect will qos 3",
			data: []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x1E, 0x00, 0x3C, 0x00, 0x00},
			err:  ErrInvalidQoS,
		},
		{
			name: "connect username flag without username",
			data: []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x82, 0x00, 0x3C, 0x00, 0x00},
			err:  ErrTruncatedLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ReadPacket(bytes.NewReader(tt.data))
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReadPacketCleanEOF(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrIncompleteMessage)
	assert.ErrorIs(t, err, io.EOF)

	_, err = ReadPacket(bytes.NewReader([]byte{0x30}))
	assert.ErrorIs(t, err, ErrIncompleteMessage)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestReadPacketUnknownTypeValue(t *testing.T) {
	for _, b := range []byte{0x00, 0xF0} {
		_, err := ReadPacket(bytes.NewReader([]byte{b, 0x00}))
		var typeErr *UnknownPacketTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, b>>4, typeErr.Value)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	data := []byte{0x82, 0x06, 0x00, 0x01, 0x00, 0x01, 't', 0x03}

	_, err := ReadPacket(bytes.NewReader(data))
	var qosErr *QoSError
	require.ErrorAs(t, err, &qosErr)
	assert.Equal(t, byte(3), qosErr.Value)
	assert.ErrorIs(t, err, ErrInvalidQoS)
}

func TestReadPacketWrapsFieldName(t *testing.T) {
	data := []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x02, 0x00, 0x3C, 0x00, 0x01}

	_, err := ReadPacket(bytes.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteMessage)
	assert.Contains(t, err.Error(), "connect: client id")
}

func TestReadPacketLimit(t *testing.T) {
	pkt := &Publish{Message: Message{Topic: "t", Payload: bytes.Repeat([]byte{'x'}, 100)}}
	encoded, err := Encode(pkt)
	require.NoError(t, err)

	_, err = ReadPacketLimit(bytes.NewReader(encoded), 50)
	assert.ErrorIs(t, err, ErrPacketTooLarge)

	got, err := ReadPacketLimit(bytes.NewReader(encoded), 103)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)

	got, err = ReadPacketLimit(bytes.NewReader(encoded), 0)
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestReadPacketLimitDoesNotReadBody(t *testing.T) {
	// Declares a 268435455 byte body that is never sent.
	data := []byte{0x30, 0xFF, 0xFF, 0xFF, 0x7F}
	r := bytes.NewReader(data)

	_, err := ReadPacketLimit(r, 1024)
	assert.ErrorIs(t, err, ErrPacketTooLarge)
	assert.Equal(t, 0, r.Len())
}

func TestReadPacketOneByteReader(t *testing.T) {
	pkt := &Subscribe{ID: 42, Topics: []Subscription{{Topic: "a/b", QoS: QoS1}, {Topic: "c/#", QoS: QoS2}}}
	encoded, err := Encode(pkt)
	require.NoError(t, err)

	got, err := ReadPacket(iotest.OneByteReader(bytes.NewReader(encoded)))
	require.NoError(t, err)
	assert.Equal(t, pkt, got)
}

func TestReadPacketPropagatesReadError(t *testing.T) {
	boom := errors.New("boom")

	_, err := ReadPacket(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)

	r := io.MultiReader(bytes.NewReader([]byte{0x30, 0x05, 0x00}), iotest.ErrReader(boom))
	_, err = ReadPacket(r)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrIncompleteMessage)
}

func TestReadPacketSequence(t *testing.T) {
	var buf bytes.Buffer
	for i := 1; i <= 3; i++ {
		_, err := WritePacket(&buf, &PubAck{ID: PacketID(i)})
		require.NoError(t, err)
	}

	for i := 1; i <= 3; i++ {
		p, err := ReadPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, &PubAck{ID: PacketID(i)}, p)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	data := []byte{0xC0, 0x00, 0xD0}
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrTrailingBytes)
}

func TestNewPacket(t *testing.T) {
	p, err := NewPacket(FixedHeader{PacketType: PublishType, Flags: 0b1011})
	require.NoError(t, err)
	assert.IsType(t, &Publish{}, p)

	p, err = NewPacket(FixedHeader{PacketType: UnsubscribeType, Flags: 0b0010})
	require.NoError(t, err)
	assert.IsType(t, &Unsubscribe{}, p)

	_, err = NewPacket(FixedHeader{PacketType: UnsubscribeType})
	assert.ErrorIs(t, err, ErrInvalidFlags)
}
