// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"sync"

	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver"
	"github.com/skrtheboss/mongo-go-driver/x/network/address"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// Server is this slice's implementation of driver.Server: one endpoint
// in the cluster plus the connection pool backing it. It is the
// Topology subsystem's unit of "a place the core can run an operation"
// (spec §1 Out-of-scope (a)).
type Server struct {
	addr address.Address
	pool *pool

	mu           sync.RWMutex
	desc         description.Server
	topologyKind description.TopologyKind
}

// NewServer constructs a Server for addr, with an unconnected pool of
// the given size.
func NewServer(addr address.Address, topologyKind description.TopologyKind, poolSize uint64, opts ...ConnectionOption) *Server {
	return &Server{
		addr:         addr,
		pool:         newPool(addr, poolSize, opts...),
		desc:         description.Server{Addr: string(addr)},
		topologyKind: topologyKind,
	}
}

// Connect puts this server's pool into the connected state.
func (s *Server) Connect() error { return s.pool.connect() }

// Disconnect drains and closes this server's pool.
func (s *Server) Disconnect(ctx context.Context) error { return s.pool.disconnect(ctx) }

// Connection checks out a pooled connection to this server.
func (s *Server) Connection(ctx context.Context) (driver.Connection, error) {
	c, err := s.pool.get(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Description returns this server's last-known description, decorated
// with the topology kind it belongs to.
func (s *Server) Description() description.SelectedServer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return description.SelectedServer{Server: s.desc, Kind: s.topologyKind}
}

// UpdateDescription replaces this server's description, as observed by
// a heartbeat. Exposed for the Topology's monitor loop and for tests
// that need to simulate a server's capabilities changing.
func (s *Server) UpdateDescription(desc description.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desc = desc
}

// Address returns this server's endpoint address.
func (s *Server) Address() address.Address { return s.addr }

// Drain forces every pooled connection to this server to be closed
// rather than reused. Nothing in this module calls it; the retry path's
// forced unpin does not drain any pool.
func (s *Server) Drain() { s.pool.drain() }
