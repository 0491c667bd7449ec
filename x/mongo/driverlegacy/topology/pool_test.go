// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/skrtheboss/mongo-go-driver/x/network/address"
)

// listen starts a fake mongod that just accepts and holds connections
// open, so pool tests can dial a real endpoint without a full wire
// handshake.
func listen(t *testing.T) (address.Address, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 256)
				for {
					if _, err := c.Read(buf); err != nil {
						return
					}
				}
			}(c)
		}
	}()
	return address.Address(ln.Addr().String()), func() { _ = ln.Close() }
}

func TestPool(t *testing.T) {
	t.Run("get before connect returns ErrPoolDisconnected", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()
		p := newPool(addr, 2)
		_, err := p.get(context.Background())
		if err != ErrPoolDisconnected {
			t.Errorf("got %v; want %v", err, ErrPoolDisconnected)
		}
	})
	t.Run("connect twice returns ErrPoolConnected", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()
		p := newPool(addr, 2)
		if err := p.connect(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p.connect(); err != ErrPoolConnected {
			t.Errorf("got %v; want %v", err, ErrPoolConnected)
		}
	})
	t.Run("get dials a new connection and put recycles it", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()
		p := newPool(addr, 2)
		noerr(t, p.connect())

		c, err := p.get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.pool != p {
			t.Error("connection not associated with the pool it was checked out from")
		}
		firstID := c.poolID

		if err := p.put(c); err != nil {
			t.Fatalf("unexpected error putting connection back: %v", err)
		}

		c2, err := p.get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c2.poolID != firstID {
			t.Errorf("expected the recycled connection back, got a new one (id %v vs %v)", c2.poolID, firstID)
		}
	})
	t.Run("drain forces the next put to close rather than recycle", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()
		p := newPool(addr, 2)
		noerr(t, p.connect())

		c, err := p.get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p.drain()
		if !c.expired() {
			t.Error("connection from a pre-drain generation should be expired after drain")
		}
		if err := p.put(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p.Lock()
		_, stillOpen := p.opened[c.poolID]
		p.Unlock()
		if stillOpen {
			t.Error("expired connection should have been closed, not tracked as opened, after put")
		}
	})
	t.Run("put from a foreign pool returns ErrWrongPool", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()
		p1 := newPool(addr, 2)
		p2 := newPool(addr, 2)
		noerr(t, p1.connect())
		noerr(t, p2.connect())

		c, err := p1.get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p2.put(c); err != ErrWrongPool {
			t.Errorf("got %v; want %v", err, ErrWrongPool)
		}
	})
	t.Run("disconnect closes idle and opened connections", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()
		p := newPool(addr, 2)
		noerr(t, p.connect())

		c, err := p.get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		noerr(t, p.put(c))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.disconnect(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := p.get(context.Background()); err != ErrPoolDisconnected {
			t.Errorf("expected ErrPoolDisconnected after disconnect, got %v", err)
		}
	})
}

func noerr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
		t.FailNow()
	}
}
