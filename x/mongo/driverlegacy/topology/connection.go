// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/skrtheboss/mongo-go-driver/x/network/address"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// ConnectionError is returned from a Connection method when the
// connection itself, rather than the server, is at fault.
type ConnectionError struct {
	ConnectionID string
	Wrapped      error
	message      string
}

// Error implements the error interface.
func (e ConnectionError) Error() string {
	if e.Wrapped != nil {
		return "connection(" + e.ConnectionID + ") " + e.message + ": " + e.Wrapped.Error()
	}
	return "connection(" + e.ConnectionID + ") " + e.message
}

// Unwrap returns the wrapped error, if any.
func (e ConnectionError) Unwrap() error { return e.Wrapped }

type connectionConfig struct {
	dialer       *net.Dialer
	idleTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	handshaker   func(ctx context.Context, nc net.Conn, addr address.Address) (description.Server, error)
}

// ConnectionOption configures a connection, matching the teacher's
// functional-option idiom for connection construction.
type ConnectionOption func(*connectionConfig)

// WithDialer sets the dialer used to establish the underlying net.Conn.
func WithDialer(d *net.Dialer) ConnectionOption {
	return func(cfg *connectionConfig) { cfg.dialer = d }
}

// WithIdleTimeout sets how long an idle pooled connection may sit
// before it is considered expired.
func WithIdleTimeout(d time.Duration) ConnectionOption {
	return func(cfg *connectionConfig) { cfg.idleTimeout = d }
}

// WithReadTimeout sets the per-read deadline for wire messages.
func WithReadTimeout(d time.Duration) ConnectionOption {
	return func(cfg *connectionConfig) { cfg.readTimeout = d }
}

// WithWriteTimeout sets the per-write deadline for wire messages.
func WithWriteTimeout(d time.Duration) ConnectionOption {
	return func(cfg *connectionConfig) { cfg.writeTimeout = d }
}

// WithHandshaker sets the function run immediately after dialing to
// negotiate wire version and (if configured) authenticate; it returns
// the description this connection's server reported of itself.
func WithHandshaker(h func(ctx context.Context, nc net.Conn, addr address.Address) (description.Server, error)) ConnectionOption {
	return func(cfg *connectionConfig) { cfg.handshaker = h }
}

var nextConnID uint64

// connection is a single established, post-handshake connection to a
// server. It implements driver.Connection; framing and decoding the
// wire messages that flow over it is the Wire Protocol Codec's job
// (spec §1 Out-of-scope (b)) — this type only moves bytes.
type connection struct {
	id         string
	nc         net.Conn
	addr       address.Address
	desc       description.Server
	cfg        connectionConfig
	pool       *pool
	poolID     uint64
	generation uint64
	lastUsed   time.Time
}

// newConnection dials addr and runs the configured handshaker, if any.
func newConnection(ctx context.Context, addr address.Address, opts ...ConnectionOption) (*connection, error) {
	cfg := connectionConfig{dialer: &net.Dialer{}, idleTimeout: 10 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := strconv.FormatUint(atomic.AddUint64(&nextConnID, 1), 10)

	nc, err := cfg.dialer.DialContext(ctx, addr.Network(), addr.String())
	if err != nil {
		return nil, ConnectionError{ConnectionID: id, Wrapped: err, message: "failed to dial"}
	}

	desc := description.Server{Addr: string(addr)}
	if cfg.handshaker != nil {
		desc, err = cfg.handshaker(ctx, nc, addr)
		if err != nil {
			_ = nc.Close()
			return nil, ConnectionError{ConnectionID: id, Wrapped: err, message: "handshake failed"}
		}
	}

	return &connection{
		id:       id,
		nc:       nc,
		addr:     addr,
		desc:     desc,
		cfg:      cfg,
		lastUsed: timeNow(),
	}, nil
}

// expired reports whether c belongs to a drained pool generation or has
// been idle past its configured timeout.
func (c *connection) expired() bool {
	if c.pool != nil && c.pool.expired(c.generation) {
		return true
	}
	if c.cfg.idleTimeout <= 0 {
		return false
	}
	return timeNow().Sub(c.lastUsed) > c.cfg.idleTimeout
}

// WriteWireMessage writes an already wire-framed message.
func (c *connection) WriteWireMessage(ctx context.Context, wm []byte) error {
	if c.nc == nil {
		return ErrConnectionClosed
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = c.nc.SetWriteDeadline(dl)
	} else if c.cfg.writeTimeout > 0 {
		_ = c.nc.SetWriteDeadline(timeNow().Add(c.cfg.writeTimeout))
	}
	_, err := c.nc.Write(wm)
	c.lastUsed = timeNow()
	if err != nil {
		return ConnectionError{ConnectionID: c.id, Wrapped: err, message: "failed to write wire message"}
	}
	return nil
}

// ReadWireMessage reads the next complete wire message, appending it to dst.
func (c *connection) ReadWireMessage(ctx context.Context, dst []byte) ([]byte, error) {
	if c.nc == nil {
		return nil, ErrConnectionClosed
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = c.nc.SetReadDeadline(dl)
	} else if c.cfg.readTimeout > 0 {
		_ = c.nc.SetReadDeadline(timeNow().Add(c.cfg.readTimeout))
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(c.nc, sizeBuf[:]); err != nil {
		return nil, ConnectionError{ConnectionID: c.id, Wrapped: err, message: "failed to read message length"}
	}
	size := int32(sizeBuf[0]) | int32(sizeBuf[1])<<8 | int32(sizeBuf[2])<<16 | int32(sizeBuf[3])<<24
	if size < 4 {
		return nil, ConnectionError{ConnectionID: c.id, message: "invalid wire message length"}
	}

	full := make([]byte, size)
	copy(full, sizeBuf[:])
	if _, err := io.ReadFull(c.nc, full[4:]); err != nil {
		return nil, ConnectionError{ConnectionID: c.id, Wrapped: err, message: "failed to read message body"}
	}
	c.lastUsed = timeNow()
	return append(dst, full...), nil
}

// Close closes this connection, returning it through its owning pool if
// it has one so pool bookkeeping (opened/generation) stays consistent.
func (c *connection) Close() error {
	if c.pool != nil {
		return c.pool.put(c)
	}
	return c.closeNetConn()
}

func (c *connection) closeNetConn() error {
	if c.nc == nil {
		return nil
	}
	err := c.nc.Close()
	c.nc = nil
	if err != nil {
		return ConnectionError{ConnectionID: c.id, Wrapped: err, message: "failed to close net.Conn"}
	}
	return nil
}

// ID returns this connection's pool-scoped identifier.
func (c *connection) ID() string { return c.id }

// Description returns the server description this connection's
// handshake observed.
func (c *connection) Description() description.Server { return c.desc }

// timeNow exists only so connection's idle-timeout bookkeeping has a
// single seam; production code always calls time.Now.
func timeNow() time.Time { return time.Now() }
