// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/network/address"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

type topologyConfig struct {
	addrs               []address.Address
	kind                description.TopologyKind
	retryReads          bool
	retryWrites         bool
	commonWireVer       int32
	sessionTimeoutMinutes *int64
	supportsSnapshotReads bool
	serverPoolSize      uint64
	connOpts            []ConnectionOption
	clock               *session.ClusterClock
	initialDescriptions map[address.Address]description.Server
}

// Option configures a Topology, matching the teacher's functional
// option idiom (ConnectionOption/ServerOption in driverlegacy/topology).
type Option func(*topologyConfig)

// WithServer adds a server address to the topology, optionally seeded
// with an initial description (useful for tests, which don't run a
// heartbeat monitor loop).
func WithServer(addr address.Address, initial *description.Server) Option {
	return func(cfg *topologyConfig) {
		cfg.addrs = append(cfg.addrs, addr)
		if initial != nil {
			if cfg.initialDescriptions == nil {
				cfg.initialDescriptions = make(map[address.Address]description.Server)
			}
			cfg.initialDescriptions[addr] = *initial
		}
	}
}

// WithTopologyKind sets the cluster's topology kind.
func WithTopologyKind(kind description.TopologyKind) Option {
	return func(cfg *topologyConfig) { cfg.kind = kind }
}

// WithRetryReads sets this deployment's retryable-reads setting.
func WithRetryReads(v bool) Option {
	return func(cfg *topologyConfig) { cfg.retryReads = v }
}

// WithRetryWrites sets this deployment's retryable-writes setting.
func WithRetryWrites(v bool) Option {
	return func(cfg *topologyConfig) { cfg.retryWrites = v }
}

// WithCommonWireVersion sets the lowest max wire version across the
// cluster, used to parameterize wire-version-gated selectors.
func WithCommonWireVersion(v int32) Option {
	return func(cfg *topologyConfig) { cfg.commonWireVer = v }
}

// WithSessionTimeoutMinutes marks the cluster as supporting logical
// sessions with the given timeout.
func WithSessionTimeoutMinutes(minutes int64) Option {
	return func(cfg *topologyConfig) { cfg.sessionTimeoutMinutes = &minutes }
}

// WithSupportsSnapshotReads marks every server in the cluster as able
// to serve a snapshot read.
func WithSupportsSnapshotReads(v bool) Option {
	return func(cfg *topologyConfig) { cfg.supportsSnapshotReads = v }
}

// WithServerPoolSize sets the idle-connection capacity of each server's
// pool.
func WithServerPoolSize(size uint64) Option {
	return func(cfg *topologyConfig) { cfg.serverPoolSize = size }
}

// WithConnectionOptions sets the options used to dial and handshake
// every connection opened by this topology's server pools.
func WithConnectionOptions(opts ...ConnectionOption) Option {
	return func(cfg *topologyConfig) { cfg.connOpts = append(cfg.connOpts, opts...) }
}

// WithClusterClock sets the ClusterClock new sessions gossip through,
// so multiple Topology values in the same client share one clock.
func WithClusterClock(clock *session.ClusterClock) Option {
	return func(cfg *topologyConfig) { cfg.clock = clock }
}
