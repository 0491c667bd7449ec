// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"testing"
	"time"

	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

func selectAll() description.ServerSelectorFunc {
	return func(_ description.Topology, candidates []description.Server) ([]description.Server, error) {
		return candidates, nil
	}
}

func selectNone() description.ServerSelectorFunc {
	return func(_ description.Topology, candidates []description.Server) ([]description.Server, error) {
		return nil, nil
	}
}

func TestTopology(t *testing.T) {
	t.Run("New requires no servers to succeed, but wires up what's given", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()

		topo, err := New(WithServer(addr, &description.Server{Addr: string(addr), Kind: description.RSPrimary}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer topo.Disconnect(context.Background())

		srv, ok := topo.Server(addr)
		if !ok {
			t.Fatal("expected the configured server to be present")
		}
		if srv.Description().Server.Kind != description.RSPrimary {
			t.Errorf("got %v; want %v", srv.Description().Server.Kind, description.RSPrimary)
		}
	})
	t.Run("ShouldCheckForSessionSupport flips after the first successful selection", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()

		topo, err := New(WithServer(addr, &description.Server{Addr: string(addr), Kind: description.RSPrimary}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer topo.Disconnect(context.Background())

		if !topo.ShouldCheckForSessionSupport() {
			t.Error("expected discovery to be pending before any selection")
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := topo.SelectServer(ctx, selectAll()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if topo.ShouldCheckForSessionSupport() {
			t.Error("expected discovery to be marked done after a successful selection")
		}
	})
	t.Run("SelectServer returns the ctx error when no candidate ever matches", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()

		topo, err := New(WithServer(addr, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer topo.Disconnect(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = topo.SelectServer(ctx, selectNone())
		if err != context.DeadlineExceeded {
			t.Errorf("got %v; want %v", err, context.DeadlineExceeded)
		}
	})
	t.Run("options are applied", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()

		topo, err := New(
			WithServer(addr, nil),
			WithRetryReads(false),
			WithRetryWrites(true),
			WithCommonWireVersion(6),
			WithSessionTimeoutMinutes(30),
			WithSupportsSnapshotReads(true),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer topo.Disconnect(context.Background())

		if topo.RetryReads() {
			t.Error("expected RetryReads to be false")
		}
		if !topo.RetryWrites() {
			t.Error("expected RetryWrites to be true")
		}
		if topo.CommonWireVersion() != 6 {
			t.Errorf("got %v; want 6", topo.CommonWireVersion())
		}
		if !topo.HasSessionSupport() {
			t.Error("expected HasSessionSupport once a session timeout is configured")
		}
		if !topo.SupportsSnapshotReads() {
			t.Error("expected SupportsSnapshotReads to be true")
		}
	})
	t.Run("StartSession mints a session through the shared pool", func(t *testing.T) {
		addr, closeLn := listen(t)
		defer closeLn()

		topo, err := New(WithServer(addr, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer topo.Disconnect(context.Background())

		sess, err := topo.StartSession(nil, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess == nil {
			t.Fatal("expected a non-nil session")
		}
	})
}
