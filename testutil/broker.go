// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides an in-process MQTT 3.1.1 broker for tests. It
// speaks the wire protocol through the packets package and keeps no state
// beyond the lifetime of its connections.
package testutil

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/absmach/mqttwire/packets"
	"github.com/absmach/mqttwire/topics"
	"github.com/absmach/mqttwire/transport"
	"github.com/gorilla/websocket"
)

const outboundQueueSize = 256

// Broker is a minimal MQTT broker. Configure the exported fields before
// serving the first connection.
type Broker struct {
	// ReturnCode is sent in every CONNACK. Non-zero codes close the connection.
	ReturnCode     packets.ConnectReturnCode
	SessionPresent bool

	// RefuseFilters are answered with SubAckFailure.
	RefuseFilters []string

	// MaxPacketSize limits inbound packets, 0 = protocol maximum.
	MaxPacketSize int

	// Silent suppresses every response, for timeout tests.
	Silent bool

	Logger *slog.Logger

	mu        sync.Mutex
	sessions  map[*session]struct{}
	retained  map[string]packets.Message
	received  []packets.Packet
	listeners []net.Listener
	wg        sync.WaitGroup
}

type session struct {
	broker   *Broker
	conn     net.Conn
	clientID string
	will     *packets.Message

	subs   map[string]packets.QoS
	nextID packets.PacketID

	// QoS 2 messages received and waiting for PUBREL.
	awaitingRel map[packets.PacketID]packets.Message

	out        chan packets.Packet
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

// NewBroker returns a broker that accepts every connection.
func NewBroker() *Broker {
	return &Broker{
		sessions: make(map[*session]struct{}),
		retained: make(map[string]packets.Message),
		Logger:   slog.Default(),
	}
}

// Serve accepts connections from ln until it is closed.
func (b *Broker) Serve(ln net.Listener) error {
	b.mu.Lock()
	b.listeners = append(b.listeners, ln)
	b.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.ServeConn(conn)
		}()
	}
}

// ServeWebSocket returns an HTTP handler that upgrades requests to MQTT over
// WebSocket and serves them.
func (b *Broker) ServeWebSocket() http.Handler {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{transport.Subprotocol},
		CheckOrigin:  func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.Logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		b.ServeConn(transport.NewWSConn(ws))
	})
}

// ServeConn serves a single connection and returns when it is closed.
func (b *Broker) ServeConn(conn net.Conn) {
	s := &session{
		broker:      b,
		conn:        conn,
		subs:        make(map[string]packets.QoS),
		awaitingRel: make(map[packets.PacketID]packets.Message),
		out:         make(chan packets.Packet, outboundQueueSize),
		done:        make(chan struct{}),
		writerDone:  make(chan struct{}),
	}
	defer s.close()
	go s.writeLoop()

	p, err := packets.ReadPacketLimit(conn, b.MaxPacketSize)
	if err != nil {
		return
	}
	b.record(p)
	connect, ok := p.(*packets.Connect)
	if !ok {
		b.Logger.Warn("first packet is not CONNECT", slog.String("type", packets.PacketNames[p.Type()]))
		return
	}
	s.clientID = connect.ClientID
	s.will = connect.Will
	s.send(&packets.ConnAck{SessionPresent: b.SessionPresent, ReturnCode: b.ReturnCode})
	if b.ReturnCode != packets.Accepted {
		return
	}

	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.sessions, s)
		b.mu.Unlock()
	}()

	for {
		p, err := packets.ReadPacketLimit(conn, b.MaxPacketSize)
		if err != nil {
			if s.will != nil {
				b.publish(*s.will)
			}
			return
		}
		b.record(p)
		if _, ok := p.(*packets.Disconnect); ok {
			return
		}
		s.handle(p)
	}
}

// Received returns a copy of every packet read by the broker, in order.
func (b *Broker) Received() []packets.Packet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]packets.Packet(nil), b.received...)
}

// Sessions returns the number of connected clients.
func (b *Broker) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Close stops every listener and connection and waits for their handlers.
func (b *Broker) Close() error {
	b.mu.Lock()
	for _, ln := range b.listeners {
		ln.Close()
	}
	for s := range b.sessions {
		s.conn.Close()
	}
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}

func (b *Broker) record(p packets.Packet) {
	b.mu.Lock()
	b.received = append(b.received, p)
	b.mu.Unlock()
}

func (b *Broker) refused(filter string) bool {
	if topics.ValidateFilter(filter) != nil {
		return true
	}
	for _, f := range b.RefuseFilters {
		if f == filter {
			return true
		}
	}
	return false
}

// publish fans msg out to every matching subscription and updates the
// retained store.
func (b *Broker) publish(msg packets.Message) {
	b.mu.Lock()
	if msg.Retain {
		if len(msg.Payload) == 0 {
			delete(b.retained, msg.Topic)
		} else {
			b.retained[msg.Topic] = msg
		}
	}
	type delivery struct {
		s   *session
		qos packets.QoS
	}
	var targets []delivery
	for s := range b.sessions {
		granted, ok := s.match(msg.Topic)
		if ok {
			targets = append(targets, delivery{s: s, qos: granted})
		}
	}
	b.mu.Unlock()

	for _, t := range targets {
		out := msg
		out.Retain = false
		out.QoS = min(msg.QoS, t.qos)
		t.s.deliver(out)
	}
}

func (s *session) handle(p packets.Packet) {
	b := s.broker
	switch p := p.(type) {
	case *packets.Publish:
		switch p.Message.QoS {
		case packets.QoS0:
			b.publish(p.Message)
		case packets.QoS1:
			b.publish(p.Message)
			s.send(&packets.PubAck{ID: *p.PacketID})
		case packets.QoS2:
			s.awaitingRel[*p.PacketID] = p.Message
			s.send(&packets.PubRec{ID: *p.PacketID})
		}
	case *packets.PubRel:
		if msg, ok := s.awaitingRel[p.ID]; ok {
			delete(s.awaitingRel, p.ID)
			b.publish(msg)
		}
		s.send(&packets.PubComp{ID: p.ID})
	case *packets.PubRec:
		s.send(&packets.PubRel{ID: p.ID})
	case *packets.PubAck, *packets.PubComp:
	case *packets.Subscribe:
		codes := make([]packets.SubAckReturnCode, len(p.Topics))
		var retained []packets.Message
		b.mu.Lock()
		for i, sub := range p.Topics {
			if b.refused(sub.Topic) {
				codes[i] = packets.SubAckFailure
				continue
			}
			s.subs[sub.Topic] = sub.QoS
			codes[i] = packets.SubAckReturnCode(sub.QoS)
			for topic, msg := range b.retained {
				if topics.Match(sub.Topic, topic) {
					msg.QoS = min(msg.QoS, sub.QoS)
					retained = append(retained, msg)
				}
			}
		}
		b.mu.Unlock()
		s.send(&packets.SubAck{ID: p.ID, ReturnCodes: codes})
		for _, msg := range retained {
			s.deliver(msg)
		}
	case *packets.Unsubscribe:
		b.mu.Lock()
		for _, topic := range p.Topics {
			delete(s.subs, topic)
		}
		b.mu.Unlock()
		s.send(&packets.UnsubAck{ID: p.ID})
	case *packets.PingReq:
		s.send(&packets.PingResp{})
	default:
		b.Logger.Warn("unexpected packet", slog.String("client_id", s.clientID), slog.String("type", packets.PacketNames[p.Type()]))
		s.conn.Close()
	}
}

// match returns the highest QoS granted by the session's filters matching
// topic. Callers hold the broker lock.
func (s *session) match(topic string) (packets.QoS, bool) {
	var (
		granted packets.QoS
		found   bool
	)
	for filter, qos := range s.subs {
		if topics.Match(filter, topic) {
			granted = max(granted, qos)
			found = true
		}
	}
	return granted, found
}

func (s *session) deliver(msg packets.Message) {
	pub := &packets.Publish{Message: msg}
	if msg.QoS != packets.QoS0 {
		pub.PacketID = packets.Ptr(s.packetID())
	}
	s.send(pub)
}

func (s *session) packetID() packets.PacketID {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.nextID++
	if s.nextID == 0 {
		s.nextID = 1
	}
	return s.nextID
}

func (s *session) send(p packets.Packet) {
	if s.broker.Silent {
		return
	}
	select {
	case s.out <- p:
	case <-s.done:
	}
}

// writeLoop writes queued packets in order. Once the session is done it
// flushes whatever is still queued and returns.
func (s *session) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case p := <-s.out:
			if _, err := packets.WritePacket(s.conn, p); err != nil {
				return
			}
		case <-s.done:
			for {
				select {
				case p := <-s.out:
					if _, err := packets.WritePacket(s.conn, p); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.writerDone
		s.conn.Close()
	})
}
