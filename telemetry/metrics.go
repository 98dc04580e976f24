// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "mqttwire"

// Metrics holds the packet and request instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	packetsSent     metric.Int64Counter
	packetsReceived metric.Int64Counter
	bytesSent       metric.Int64Counter
	bytesReceived   metric.Int64Counter
	decodeErrors    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on the meter of mp. A nil mp uses the
// global meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.packetsSent, err = meter.Int64Counter(
		"mqttwire.packets.sent",
		metric.WithDescription("Control packets written, by packet type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create packetsSent counter: %w", err)
	}

	m.packetsReceived, err = meter.Int64Counter(
		"mqttwire.packets.received",
		metric.WithDescription("Control packets decoded, by packet type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create packetsReceived counter: %w", err)
	}

	m.bytesSent, err = meter.Int64Counter(
		"mqttwire.bytes.sent",
		metric.WithDescription("Bytes written to the stream"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytesSent counter: %w", err)
	}

	m.bytesReceived, err = meter.Int64Counter(
		"mqttwire.bytes.received",
		metric.WithDescription("Bytes of decoded packets read from the stream"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytesReceived counter: %w", err)
	}

	m.decodeErrors, err = meter.Int64Counter(
		"mqttwire.decode.errors",
		metric.WithDescription("Packets that failed to decode"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decodeErrors counter: %w", err)
	}

	m.requestDuration, err = meter.Float64Histogram(
		"mqttwire.request.duration.ms",
		metric.WithDescription("Request to acknowledgment duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requestDuration histogram: %w", err)
	}

	return m, nil
}

// RecordPacketSent records one written packet of the given type name.
func (m *Metrics) RecordPacketSent(packetType string, sizeBytes int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.packetsSent.Add(ctx, 1, metric.WithAttributes(attribute.String("type", packetType)))
	m.bytesSent.Add(ctx, int64(sizeBytes))
}

// RecordPacketReceived records one decoded packet of the given type name.
func (m *Metrics) RecordPacketReceived(packetType string, sizeBytes int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.packetsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("type", packetType)))
	m.bytesReceived.Add(ctx, int64(sizeBytes))
}

// RecordDecodeError records a packet that could not be decoded.
func (m *Metrics) RecordDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Add(context.Background(), 1)
}

// RecordRequestDuration records how long a request waited for its response.
func (m *Metrics) RecordRequestDuration(request string, durationMs float64) {
	if m == nil {
		return
	}
	m.requestDuration.Record(context.Background(), durationMs, metric.WithAttributes(attribute.String("request", request)))
}
