// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

func (d *Dialer) netDial(ctx context.Context, network, addr string) (net.Conn, error) {
	if d.proxy != nil {
		if cd, ok := d.proxy.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return d.proxy.Dial(network, addr)
	}
	var nd net.Dialer
	return nd.DialContext(ctx, network, addr)
}

func (d *Dialer) dialTCP(ctx context.Context, u *url.URL) (net.Conn, error) {
	addr := hostPort(u, DefaultTCPPort)
	conn, err := d.netDial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	d.logger.Debug("tcp connection established", slog.String("remote", conn.RemoteAddr().String()))
	return conn, nil
}

func (d *Dialer) dialTLS(ctx context.Context, u *url.URL) (net.Conn, error) {
	addr := hostPort(u, DefaultTLSPort)
	raw, err := d.netDial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	cfg := d.tlsCfg.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = u.Hostname()
	}
	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake with %s failed: %w", addr, err)
	}
	d.logger.Debug("tls connection established",
		slog.String("remote", conn.RemoteAddr().String()),
		slog.String("version", tls.VersionName(conn.ConnectionState().Version)))
	return conn, nil
}

func hostPort(u *url.URL, defaultPort string) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), defaultPort)
}
