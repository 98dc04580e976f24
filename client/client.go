// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package client is a synchronous MQTT 3.1.1 client over a single byte
// stream. Each request writes one packet and blocks until the matching
// response arrives. There is no retransmission or session persistence.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/absmach/mqttwire/packets"
	"github.com/absmach/mqttwire/topics"
	"github.com/absmach/mqttwire/transport"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "mqttwire/client"

// Client is an MQTT client bound to one connection. Requests are serialized:
// only one packet exchange is in flight at any time.
type Client struct {
	opts     Options
	clientID string

	conn   net.Conn
	reader *countingReader

	// mu owns the stream for the duration of a request or a Listen call.
	mu     sync.Mutex
	state  stateManager
	lastID packets.PacketID

	limiter *rate.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates a client over an established connection. The caller still
// has to call Connect before any other request.
func New(conn net.Conn, opts *Options) (*Client, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		opts:     *opts,
		clientID: opts.ClientID,
		conn:     conn,
		reader:   &countingReader{r: conn},
		logger:   opts.Logger,
		tracer:   opts.Tracer,
	}
	if c.clientID == "" {
		c.clientID = ClientIDPrefix + uuid.NewString()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("client_id", c.clientID))
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.opts.RequestTimeout <= 0 {
		c.opts.RequestTimeout = DefaultRequestTimeout
	}
	if c.opts.ConnectTimeout <= 0 {
		c.opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.PublishRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.PublishRate), max(opts.PublishBurst, 1))
	}
	return c, nil
}

// Dial connects to opts.Broker with d and returns a client that has not yet
// sent CONNECT.
func Dial(ctx context.Context, d *transport.Dialer, opts *Options) (*Client, error) {
	if opts == nil || opts.Broker == "" {
		return nil, ErrNoBroker
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	conn, err := d.Dial(ctx, opts.Broker)
	if err != nil {
		return nil, err
	}
	c, err := New(conn, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// ClientID returns the identifier sent in CONNECT.
func (c *Client) ClientID() string {
	return c.clientID
}

// State returns the connection state.
func (c *Client) State() State {
	return c.state.get()
}

// Connect sends CONNECT and waits for CONNACK. A refused connection returns
// the CONNACK together with a *ConnectError.
func (c *Client) Connect(ctx context.Context) (ack *packets.ConnAck, err error) {
	if !c.state.transition(StateDisconnected, StateConnecting) {
		if c.state.get() == StateClosed {
			return nil, ErrClientClosed
		}
		return nil, ErrAlreadyConnected
	}
	defer func() {
		if err != nil && c.state.get() == StateConnecting {
			c.state.set(StateDisconnected)
		}
	}()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}
	ctx, end := c.startSpan(ctx, "connect")
	defer func() { end(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	release := c.bind(ctx)
	defer release()

	if err := c.write(ctx, c.connectPacket()); err != nil {
		return nil, err
	}
	p, err := c.await(ctx, packets.ConnAckType, 0)
	if err != nil {
		return nil, err
	}
	ack = p.(*packets.ConnAck)
	if ack.ReturnCode != packets.Accepted {
		c.logger.Warn("connection refused", slog.String("reason", ack.ReturnCode.String()))
		return ack, &ConnectError{Code: ack.ReturnCode}
	}

	c.state.set(StateConnected)
	c.logger.Info("connected", slog.Bool("session_present", ack.SessionPresent))
	return ack, nil
}

func (c *Client) connectPacket() *packets.Connect {
	p := &packets.Connect{
		ClientID:     c.clientID,
		CleanSession: c.opts.CleanSession,
		KeepAlive:    uint16(c.opts.KeepAlive / time.Second),
		Will:         c.opts.Will,
	}
	if c.opts.Username != "" {
		p.Username = packets.Ptr(c.opts.Username)
	}
	if c.opts.Password != "" {
		p.Password = []byte(c.opts.Password)
	}
	return p
}

// Publish sends msg and waits for the acknowledgments its QoS requires:
// nothing for QoS 0, PUBACK for QoS 1, PUBREC then PUBCOMP for QoS 2.
func (c *Client) Publish(ctx context.Context, msg packets.Message) (err error) {
	if err := topics.ValidateName(msg.Topic); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, msg.Topic)
	}
	if !msg.QoS.Valid() {
		return &packets.QoSError{Value: byte(msg.QoS)}
	}
	if err := c.state.check(); err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	ctx, end := c.startSpan(ctx, "publish",
		attribute.String("mqtt.topic", msg.Topic),
		attribute.Int("mqtt.qos", int(msg.QoS)))
	defer func() { end(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	release := c.bind(ctx)
	defer release()

	pub := &packets.Publish{Message: msg}
	if msg.QoS == packets.QoS0 {
		return c.write(ctx, pub)
	}

	id := c.packetID()
	pub.PacketID = &id
	if err := c.write(ctx, pub); err != nil {
		return err
	}

	if msg.QoS == packets.QoS1 {
		_, err = c.await(ctx, packets.PubAckType, id)
		return err
	}

	if _, err := c.await(ctx, packets.PubRecType, id); err != nil {
		return err
	}
	if err := c.write(ctx, &packets.PubRel{ID: id}); err != nil {
		return err
	}
	_, err = c.await(ctx, packets.PubCompType, id)
	return err
}

// Subscribe sends SUBSCRIBE and waits for SUBACK. If the broker refuses any
// filter the SUBACK is returned together with ErrSubscriptionRefused.
func (c *Client) Subscribe(ctx context.Context, subs ...packets.Subscription) (ack *packets.SubAck, err error) {
	if len(subs) == 0 {
		return nil, ErrNoTopics
	}
	filters := make([]string, len(subs))
	for i, s := range subs {
		if err := topics.ValidateFilter(s.Topic); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, s.Topic)
		}
		if !s.QoS.Valid() {
			return nil, &packets.QoSError{Value: byte(s.QoS)}
		}
		filters[i] = s.Topic
	}
	if err := c.state.check(); err != nil {
		return nil, err
	}

	ctx, end := c.startSpan(ctx, "subscribe", attribute.StringSlice("mqtt.filters", filters))
	defer func() { end(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	release := c.bind(ctx)
	defer release()

	id := c.packetID()
	if err := c.write(ctx, &packets.Subscribe{ID: id, Topics: subs}); err != nil {
		return nil, err
	}
	p, err := c.await(ctx, packets.SubAckType, id)
	if err != nil {
		return nil, err
	}
	ack = p.(*packets.SubAck)
	if len(ack.ReturnCodes) != len(subs) {
		return ack, fmt.Errorf("%w: %d return codes for %d filters", ErrUnexpectedPacket, len(ack.ReturnCodes), len(subs))
	}

	var refused []string
	for i, code := range ack.ReturnCodes {
		if code == packets.SubAckFailure {
			refused = append(refused, subs[i].Topic)
		}
	}
	if len(refused) > 0 {
		return ack, fmt.Errorf("%w: %s", ErrSubscriptionRefused, strings.Join(refused, ", "))
	}
	return ack, nil
}

// Unsubscribe sends UNSUBSCRIBE and waits for UNSUBACK.
func (c *Client) Unsubscribe(ctx context.Context, filters ...string) (err error) {
	if len(filters) == 0 {
		return ErrNoTopics
	}
	for _, f := range filters {
		if err := topics.ValidateFilter(f); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTopic, f)
		}
	}
	if err := c.state.check(); err != nil {
		return err
	}

	ctx, end := c.startSpan(ctx, "unsubscribe", attribute.StringSlice("mqtt.filters", filters))
	defer func() { end(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	release := c.bind(ctx)
	defer release()

	id := c.packetID()
	if err := c.write(ctx, &packets.Unsubscribe{ID: id, Topics: filters}); err != nil {
		return err
	}
	_, err = c.await(ctx, packets.UnsubAckType, id)
	return err
}

// Ping sends PINGREQ and waits for PINGRESP.
func (c *Client) Ping(ctx context.Context) (err error) {
	if err := c.state.check(); err != nil {
		return err
	}

	ctx, end := c.startSpan(ctx, "ping")
	defer func() { end(err) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	release := c.bind(ctx)
	defer release()

	if err := c.write(ctx, &packets.PingReq{}); err != nil {
		return err
	}
	_, err = c.await(ctx, packets.PingRespType, 0)
	return err
}

// Disconnect sends DISCONNECT and closes the connection. It is safe to call
// more than once.
func (c *Client) Disconnect() error {
	prev := c.state.get()
	if prev == StateClosed {
		return nil
	}
	c.state.set(StateClosed)

	// Unblock a Listen call holding the stream.
	c.conn.SetReadDeadline(time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	var werr error
	if prev == StateConnected {
		c.conn.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout))
		werr = c.write(context.Background(), &packets.Disconnect{})
	}
	cerr := c.conn.Close()
	c.logger.Info("disconnected")
	return errors.Join(werr, cerr)
}

// Close closes the connection without sending DISCONNECT, so the broker
// publishes the will message if one was set.
func (c *Client) Close() error {
	c.state.set(StateClosed)
	return c.conn.Close()
}

// Listen reads packets until ctx ends, the connection fails or handler
// returns an error. Inbound QoS 1 and QoS 2 PUBLISH packets are acknowledged
// after handler accepts them. Listen owns the stream while it runs, so
// requests from other goroutines wait until it returns.
func (c *Client) Listen(ctx context.Context, handler func(packets.Packet) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Reset before the state check: a Disconnect landing after the check
	// re-arms the read deadline.
	c.conn.SetDeadline(time.Time{})
	if err := c.state.check(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		p, err := c.read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.state.get() == StateClosed {
				return ErrClientClosed
			}
			return err
		}
		if err := handler(p); err != nil {
			return err
		}
		if err := c.acknowledge(ctx, p); err != nil {
			return err
		}
	}
}

// bind maps the context deadline, or the request timeout, onto the
// connection deadline and makes cancellation interrupt blocked I/O.
func (c *Client) bind(ctx context.Context) func() {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.opts.RequestTimeout)
	}
	c.conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	return func() {
		stop()
		c.conn.SetDeadline(time.Time{})
	}
}

// packetID returns the next non-zero packet identifier. Callers hold mu.
func (c *Client) packetID() packets.PacketID {
	c.lastID++
	if c.lastID == 0 {
		c.lastID = 1
	}
	return c.lastID
}

func (c *Client) write(ctx context.Context, p packets.Packet) error {
	n, err := packets.WritePacket(c.conn, p)
	if err != nil {
		return c.ioError(ctx, fmt.Errorf("write %s: %w", packets.PacketNames[p.Type()], err))
	}
	c.opts.Metrics.RecordPacketSent(packets.PacketNames[p.Type()], n)
	c.logger.Debug("packet sent", slog.String("type", packets.PacketNames[p.Type()]), slog.Int("bytes", n))
	return nil
}

func (c *Client) read() (packets.Packet, error) {
	c.reader.n = 0
	p, err := packets.ReadPacketLimit(c.reader, c.opts.MaxPacketSize)
	if err != nil {
		var netErr net.Error
		if !errors.Is(err, io.EOF) && !errors.As(err, &netErr) {
			c.opts.Metrics.RecordDecodeError()
		}
		return nil, err
	}
	c.opts.Metrics.RecordPacketReceived(packets.PacketNames[p.Type()], c.reader.n)
	c.logger.Debug("packet received", slog.String("type", packets.PacketNames[p.Type()]), slog.Int("bytes", c.reader.n))
	return p, nil
}

// await reads until a packet of type want carrying id arrives. PUBLISH and
// PUBREL packets from the broker are handled on the way; anything else is
// ErrUnexpectedPacket.
func (c *Client) await(ctx context.Context, want byte, id packets.PacketID) (packets.Packet, error) {
	for {
		p, err := c.read()
		if err != nil {
			return nil, c.ioError(ctx, err)
		}
		if p.Type() == want && p.Details().ID == id {
			return p, nil
		}

		switch p := p.(type) {
		case *packets.Publish:
			if c.opts.OnMessage != nil {
				c.opts.OnMessage(p)
			}
			if err := c.acknowledge(ctx, p); err != nil {
				return nil, err
			}
			continue
		case *packets.PubRel:
			if err := c.acknowledge(ctx, p); err != nil {
				return nil, err
			}
			continue
		}
		return nil, fmt.Errorf("%w: expected %s id %d, got %s", ErrUnexpectedPacket,
			packets.PacketNames[want], id, p)
	}
}

// acknowledge answers broker-initiated QoS flows.
func (c *Client) acknowledge(ctx context.Context, p packets.Packet) error {
	switch p := p.(type) {
	case *packets.Publish:
		switch p.Message.QoS {
		case packets.QoS1:
			return c.write(ctx, &packets.PubAck{ID: *p.PacketID})
		case packets.QoS2:
			return c.write(ctx, &packets.PubRec{ID: *p.PacketID})
		}
	case *packets.PubRel:
		return c.write(ctx, &packets.PubComp{ID: p.ID})
	}
	return nil
}

// ioError prefers the context error when the context caused the failure.
// An expired connection deadline is reported as context.DeadlineExceeded
// whether it came from ctx or from the request timeout.
func (c *Client) ioError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func (c *Client) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "mqtt."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("mqtt.client_id", c.clientID))...))
	return ctx, func(err error) {
		c.opts.Metrics.RecordRequestDuration(op, float64(time.Since(start).Microseconds())/1000)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += n
	return n, err
}
