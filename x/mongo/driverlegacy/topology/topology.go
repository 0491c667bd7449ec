// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package topology is this slice's implementation of the Topology
// subsystem: the external collaborator the Execution Core reaches
// through driver.Deployment to find a server, and through which
// sessions are minted (spec §1 Out-of-scope (a), (c)).
package topology

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/uuid"
	"github.com/skrtheboss/mongo-go-driver/x/network/address"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// serverSelectionPollInterval is how long SelectServer waits between
// rounds of re-checking candidates when a round yields none, mirroring
// the real driver's server-selection retry loop.
const serverSelectionPollInterval = 5 * time.Millisecond

// Topology is a live view of a MongoDB deployment: every known server
// plus the cluster-wide capabilities (session support, common wire
// version, snapshot-read eligibility) the Execution Core consults
// through the narrow driver.Deployment contract (spec §6).
type Topology struct {
	cfg topologyConfig

	mu      sync.RWMutex
	kind    description.TopologyKind
	servers map[address.Address]*Server

	sessionPool   *session.Pool
	discoveryDone bool
}

// New constructs a Topology from the given options, connecting a Server
// for each WithServer option. No WithServer option is required.
func New(opts ...Option) (*Topology, error) {
	cfg := topologyConfig{
		kind:           description.Single,
		retryReads:     true,
		retryWrites:    false,
		commonWireVer:  description.WireVersion50,
		serverPoolSize: 10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &Topology{
		cfg:         cfg,
		kind:        cfg.kind,
		servers:     make(map[address.Address]*Server),
		sessionPool: session.NewPool(cfg.clock),
	}
	for _, addr := range cfg.addrs {
		srv := NewServer(addr, cfg.kind, cfg.serverPoolSize, cfg.connOpts...)
		if err := srv.Connect(); err != nil {
			return nil, err
		}
		if desc, ok := cfg.initialDescriptions[addr]; ok {
			srv.UpdateDescription(desc)
		}
		t.servers[addr] = srv
	}
	return t, nil
}

// Disconnect drains every server's pool concurrently, so one server
// stuck waiting out its graceful-shutdown deadline doesn't delay the
// rest from starting theirs.
func (t *Topology) Disconnect(ctx context.Context) error {
	t.mu.RLock()
	servers := make([]*Server, 0, len(t.servers))
	for _, srv := range t.servers {
		servers = append(servers, srv)
	}
	t.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error { return srv.Disconnect(gctx) })
	}
	return g.Wait()
}

// Server returns the Server for addr, if present.
func (t *Topology) Server(addr address.Address) (*Server, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.servers[addr]
	return s, ok
}

// snapshot builds the description.Topology view SelectServer hands to
// a ServerSelector, plus the Server address each description.Server
// came from.
func (t *Topology) snapshot() (description.Topology, map[string]address.Address) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	servers := make([]description.Server, 0, len(t.servers))
	byAddr := make(map[string]address.Address, len(t.servers))
	for addr, srv := range t.servers {
		sel := srv.Description()
		servers = append(servers, sel.Server)
		byAddr[sel.Server.Addr] = addr
	}
	return description.Topology{
		Kind:                  t.kind,
		Servers:               servers,
		SessionTimeoutMinutes: t.cfg.sessionTimeoutMinutes,
		SupportsSnapshotReads: t.cfg.supportsSnapshotReads,
		CommonWireVersion:     t.cfg.commonWireVer,
	}, byAddr
}

// SelectServer blocks until selector matches at least one server, or
// ctx is done. The first call also satisfies the discovery round trip
// Execute's first step waits on (spec §4.1 step 1): a real topology's
// first successful selection implies the initial scan has completed.
func (t *Topology) SelectServer(ctx context.Context, selector description.ServerSelector) (driver.Server, error) {
	for {
		topo, byAddr := t.snapshot()
		candidates, err := selector.SelectServer(topo, topo.Servers)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			chosen := candidates[rand.Intn(len(candidates))]
			addr, ok := byAddr[chosen.Addr]
			if !ok {
				return nil, driver.UnexpectedServerResponseError("selected server is no longer part of the topology")
			}
			srv, ok := t.Server(addr)
			if !ok {
				return nil, driver.UnexpectedServerResponseError("selected server is no longer part of the topology")
			}
			t.mu.Lock()
			t.discoveryDone = true
			t.mu.Unlock()
			return srv, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(serverSelectionPollInterval):
		}
	}
}

// ShouldCheckForSessionSupport reports whether this Topology has not
// yet completed the discovery round trip Execute's first step forces
// (spec §4.1 step 1).
func (t *Topology) ShouldCheckForSessionSupport() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.discoveryDone
}

// HasSessionSupport reports whether this topology was configured with a
// session timeout (WithSessionTimeoutMinutes); server descriptions are
// not consulted.
func (t *Topology) HasSessionSupport() bool {
	return t.cfg.sessionTimeoutMinutes != nil
}

// StartSession mints a new logical session via this Topology's Session
// Pool.
func (t *Topology) StartSession(owner *uuid.UUID, typ session.Type) (*session.Client, error) {
	return session.NewClientSession(t.sessionPool, owner, typ)
}

// SupportsSnapshotReads reports whether every server in this topology
// can serve a snapshot read.
func (t *Topology) SupportsSnapshotReads() bool { return t.cfg.supportsSnapshotReads }

// CommonWireVersion returns the configured common wire version
// (description.WireVersion50 unless set by an option); it is not
// computed from the servers' descriptions.
func (t *Topology) CommonWireVersion() int32 { return t.cfg.commonWireVer }

// RetryReads reports this deployment's configured retryable-reads
// setting (spec §9: defaults on, "≠ false").
func (t *Topology) RetryReads() bool { return t.cfg.retryReads }

// RetryWrites reports this deployment's configured retryable-writes
// setting (spec §9: defaults off, "= true").
func (t *Topology) RetryWrites() bool { return t.cfg.retryWrites }
