// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package testutil_test

import (
	"fmt"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/absmach/mqttwire/packets"
	"github.com/absmach/mqttwire/testutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

func startBroker(t *testing.T) (*testutil.Broker, string) {
	t.Helper()
	b := testutil.NewBroker()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go b.Serve(ln)
	t.Cleanup(func() { b.Close() })
	return b, ln.Addr().String()
}

func pipe(t *testing.T, b *testutil.Broker) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	go b.ServeConn(server)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.SetDeadline(time.Now().Add(waitTimeout)))
	return client
}

func exchange(t *testing.T, conn net.Conn, p packets.Packet) packets.Packet {
	t.Helper()
	_, err := packets.WritePacket(conn, p)
	require.NoError(t, err)
	resp, err := packets.ReadPacket(conn)
	require.NoError(t, err)
	return resp
}

func TestBrokerHandshake(t *testing.T) {
	b := testutil.NewBroker()
	b.SessionPresent = true
	conn := pipe(t, b)

	resp := exchange(t, conn, &packets.Connect{ClientID: "raw", CleanSession: true})
	assert.Equal(t, &packets.ConnAck{SessionPresent: true, ReturnCode: packets.Accepted}, resp)

	resp = exchange(t, conn, &packets.PingReq{})
	assert.Equal(t, &packets.PingResp{}, resp)

	resp = exchange(t, conn, &packets.Subscribe{ID: 5, Topics: []packets.Subscription{
		{Topic: "a/+", QoS: packets.QoS2},
		{Topic: "bad/#/filter", QoS: packets.QoS1},
	}})
	assert.Equal(t, &packets.SubAck{ID: 5, ReturnCodes: []packets.SubAckReturnCode{packets.SubAckQoS2, packets.SubAckFailure}}, resp)

	resp = exchange(t, conn, &packets.Unsubscribe{ID: 6, Topics: []string{"a/+"}})
	assert.Equal(t, &packets.UnsubAck{ID: 6}, resp)

	_, err := packets.WritePacket(conn, &packets.Disconnect{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got := b.Received()
		return len(got) == 5 && got[4].Type() == packets.DisconnectType
	}, waitTimeout, 10*time.Millisecond)
}

func TestBrokerRefusesConnection(t *testing.T) {
	b := testutil.NewBroker()
	b.ReturnCode = packets.RefusedBadLogin
	conn := pipe(t, b)

	resp := exchange(t, conn, &packets.Connect{ClientID: "refused"})
	assert.Equal(t, &packets.ConnAck{ReturnCode: packets.RefusedBadLogin}, resp)

	_, err := packets.ReadPacket(conn)
	assert.Error(t, err)
}

func TestBrokerQoSFlows(t *testing.T) {
	b := testutil.NewBroker()
	conn := pipe(t, b)
	exchange(t, conn, &packets.Connect{ClientID: "flows"})

	resp := exchange(t, conn, &packets.Publish{
		Message:  packets.Message{Topic: "q1", Payload: []byte("one"), QoS: packets.QoS1},
		PacketID: packets.Ptr(packets.PacketID(1)),
	})
	assert.Equal(t, &packets.PubAck{ID: 1}, resp)

	resp = exchange(t, conn, &packets.Publish{
		Message:  packets.Message{Topic: "q2", Payload: []byte("two"), QoS: packets.QoS2},
		PacketID: packets.Ptr(packets.PacketID(2)),
	})
	assert.Equal(t, &packets.PubRec{ID: 2}, resp)

	resp = exchange(t, conn, &packets.PubRel{ID: 2})
	assert.Equal(t, &packets.PubComp{ID: 2}, resp)
}

func TestBrokerFanOutAndRetain(t *testing.T) {
	b := testutil.NewBroker()
	pub := pipe(t, b)
	exchange(t, pub, &packets.Connect{ClientID: "pub"})
	_, err := packets.WritePacket(pub, &packets.Publish{
		Message: packets.Message{Topic: "sensors/1/temp", Payload: []byte("20"), Retain: true},
	})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(b.Received()) == 2 }, waitTimeout, 10*time.Millisecond)

	sub := pipe(t, b)
	exchange(t, sub, &packets.Connect{ClientID: "sub"})
	resp := exchange(t, sub, &packets.Subscribe{ID: 1, Topics: []packets.Subscription{{Topic: "sensors/+/temp", QoS: packets.QoS1}}})
	assert.Equal(t, &packets.SubAck{ID: 1, ReturnCodes: []packets.SubAckReturnCode{packets.SubAckQoS1}}, resp)

	retained, err := packets.ReadPacket(sub)
	require.NoError(t, err)
	assert.Equal(t, "sensors/1/temp", retained.(*packets.Publish).Message.Topic)
	assert.Equal(t, packets.QoS0, retained.(*packets.Publish).Message.QoS)

	resp = exchange(t, pub, &packets.Publish{
		Message:  packets.Message{Topic: "sensors/2/temp", Payload: []byte("21"), QoS: packets.QoS1},
		PacketID: packets.Ptr(packets.PacketID(7)),
	})
	assert.Equal(t, &packets.PubAck{ID: 7}, resp)

	got, err := packets.ReadPacket(sub)
	require.NoError(t, err)
	delivered := got.(*packets.Publish)
	assert.Equal(t, packets.Message{Topic: "sensors/2/temp", Payload: []byte("21"), QoS: packets.QoS1}, delivered.Message)
	require.NotNil(t, delivered.PacketID)
}

func TestBrokerWill(t *testing.T) {
	b := testutil.NewBroker()
	watcher := pipe(t, b)
	exchange(t, watcher, &packets.Connect{ClientID: "watcher"})
	exchange(t, watcher, &packets.Subscribe{ID: 1, Topics: []packets.Subscription{{Topic: "status/#"}}})

	client, server := net.Pipe()
	go b.ServeConn(server)
	require.NoError(t, client.SetDeadline(time.Now().Add(waitTimeout)))
	exchange(t, client, &packets.Connect{
		ClientID: "dying",
		Will:     &packets.Message{Topic: "status/dying", Payload: []byte("offline")},
	})
	client.Close()

	got, err := packets.ReadPacket(watcher)
	require.NoError(t, err)
	assert.Equal(t, &packets.Publish{Message: packets.Message{Topic: "status/dying", Payload: []byte("offline")}}, got)
}

func TestBrokerFirstPacketNotConnect(t *testing.T) {
	b := testutil.NewBroker()
	conn := pipe(t, b)

	_, err := packets.WritePacket(conn, &packets.PingReq{})
	require.NoError(t, err)
	_, err = packets.ReadPacket(conn)
	assert.Error(t, err)
}

func newPahoClient(t *testing.T, broker, id string) mqtt.Client {
	t.Helper()
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(id).
		SetProtocolVersion(4).
		SetAutoReconnect(false).
		SetConnectTimeout(waitTimeout)
	c := mqtt.NewClient(opts)
	token := c.Connect()
	require.True(t, token.WaitTimeout(waitTimeout), "connect timed out")
	require.NoError(t, token.Error())
	t.Cleanup(func() { c.Disconnect(100) })
	return c
}

func pahoRoundTrip(t *testing.T, broker string) {
	t.Helper()
	sub := newPahoClient(t, broker, "paho-sub")
	pub := newPahoClient(t, broker, "paho-pub")

	var (
		mu  sync.Mutex
		got = make(map[string]string)
	)
	received := make(chan struct{}, 3)
	token := sub.Subscribe("interop/#", 2, func(_ mqtt.Client, m mqtt.Message) {
		mu.Lock()
		got[m.Topic()] = fmt.Sprintf("%s@%d", m.Payload(), m.Qos())
		mu.Unlock()
		received <- struct{}{}
	})
	require.True(t, token.WaitTimeout(waitTimeout))
	require.NoError(t, token.Error())

	for qos := byte(0); qos <= 2; qos++ {
		token := pub.Publish(fmt.Sprintf("interop/qos%d", qos), qos, false, fmt.Sprintf("msg%d", qos))
		require.True(t, token.WaitTimeout(waitTimeout))
		require.NoError(t, token.Error())
	}

	for i := 0; i < 3; i++ {
		select {
		case <-received:
		case <-time.After(waitTimeout):
			t.Fatalf("received %d of 3 messages", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]string{
		"interop/qos0": "msg0@0",
		"interop/qos1": "msg1@1",
		"interop/qos2": "msg2@2",
	}, got)
}

func TestPahoInteropTCP(t *testing.T) {
	_, addr := startBroker(t)
	pahoRoundTrip(t, "tcp://"+addr)
}

func TestPahoInteropWebSocket(t *testing.T) {
	b := testutil.NewBroker()
	srv := httptest.NewServer(b.ServeWebSocket())
	t.Cleanup(srv.Close)

	pahoRoundTrip(t, "ws://"+strings.TrimPrefix(srv.URL, "http://")+"/mqtt")
}
