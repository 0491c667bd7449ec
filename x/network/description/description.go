// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package description contains the vocabulary the Topology subsystem
// uses to describe servers and the cluster as a whole: server kind,
// topology kind, wire version range, and the ServerSelector contract
// the Operation Execution Core uses to ask Topology for a server.
//
// This package stands in for the external Topology collaborator's
// description model (spec §1 Out-of-scope (a)); the Execution Core only
// reads from it, never mutates it.
package description

import (
	"time"

	"github.com/skrtheboss/mongo-go-driver/mongo/readpref"
)

// Wire version constants used for retry and feature gating.
const (
	UnknownWireVersion        = 0
	SupportsOpMsgWireVersion  = 6
	ReplicaSetTransactionsWireVersion = 7
	ShardedTransactionsWireVersion    = 8
	WireVersion50             = 13

	// MinSupportedWireVersion is the lowest wire version this driver
	// slice will talk to.
	MinSupportedWireVersion = SupportsOpMsgWireVersion
)

// ServerKind represents the kind of a server in a cluster.
type ServerKind uint32

// These constants are the possible server kinds.
const (
	Unknown ServerKind = iota
	Standalone
	RSPrimary
	RSSecondary
	RSArbiter
	RSMember
	Mongos
	LoadBalancer
)

// TopologyKind represents the kind of a topology.
type TopologyKind uint32

// These constants are the possible topology kinds.
const (
	TopologyUnknown TopologyKind = iota
	Single
	ReplicaSet
	Sharded
	LoadBalanced
)

// VersionRange represents a range of wire versions that a server supports.
type VersionRange struct {
	Min int32
	Max int32
}

// Includes returns true if the range includes the given version.
func (vr VersionRange) Includes(v int32) bool { return v >= vr.Min && v <= vr.Max }

// Server contains information about a server in a cluster, as reported
// by the last heartbeat observed for it.
type Server struct {
	Addr        string
	Kind        ServerKind
	WireVersion *VersionRange
	LastError   error

	// SessionTimeoutMinutes is the logical session timeout advertised by
	// the server, or nil if the server does not support sessions.
	SessionTimeoutMinutes *int64

	// RetryableWritesSupported reports whether this particular server has
	// advertised support for retryable writes (requires the server to be
	// part of a replica set or sharded cluster with sessions enabled).
	RetryableWritesSupported bool

	AverageRTT        time.Duration
	AverageRTTSet     bool
}

// SupportsRetryWrites reports whether a server advertises retryable
// write support and a session timeout. The wire version is not checked.
func (s Server) SupportsRetryWrites() bool {
	return s.RetryableWritesSupported && s.SessionTimeoutMinutes != nil
}

// SessionsSupported reports whether a wire version range supports
// server sessions (and, transitively, transaction numbers).
func SessionsSupported(wv *VersionRange) bool {
	return wv != nil && wv.Max >= SupportsOpMsgWireVersion
}

// Topology is a point-in-time view of an entire cluster: every server
// description known plus the cluster's aggregate kind and capabilities.
type Topology struct {
	Kind    TopologyKind
	Servers []Server

	// SessionTimeoutMinutes is the minimum session timeout across all
	// data-bearing servers, or nil if the cluster as a whole has no
	// session support.
	SessionTimeoutMinutes *int64

	// SupportsSnapshotReads reports whether every server in the topology
	// can serve a snapshot read.
	SupportsSnapshotReads bool

	// CommonWireVersion is the lowest max wire version across all
	// servers, used to parameterize selectors that must pick a server
	// every member of the cluster can serve.
	CommonWireVersion int32
}

// SelectedServer decorates a Server with the TopologyKind it was
// selected from, since some wire-protocol decisions (slaveOK bit,
// read-preference document shape) depend on both.
type SelectedServer struct {
	Server
	Kind TopologyKind
}

// ServerSelector selects a subset of the candidate servers in a
// Topology that are suitable for a particular operation.
type ServerSelector interface {
	SelectServer(Topology, []Server) ([]Server, error)
}

// ServerSelectorFunc adapts a plain function to the ServerSelector
// interface.
type ServerSelectorFunc func(Topology, []Server) ([]Server, error)

// SelectServer calls f.
func (f ServerSelectorFunc) SelectServer(t Topology, svrs []Server) ([]Server, error) { return f(t, svrs) }

// CompositeSelector combines several selectors, narrowing the candidate
// set through each in turn.
func CompositeSelector(selectors []ServerSelector) ServerSelector {
	return ServerSelectorFunc(func(t Topology, candidates []Server) ([]Server, error) {
		var err error
		for _, sel := range selectors {
			if sel == nil {
				continue
			}
			candidates, err = sel.SelectServer(t, candidates)
			if err != nil {
				return nil, err
			}
		}
		return candidates, nil
	})
}

// LatencySelector filters out servers whose average round trip time
// exceeds the given latency window beyond the fastest candidate.
func LatencySelector(latency time.Duration) ServerSelector {
	return ServerSelectorFunc(func(_ Topology, candidates []Server) ([]Server, error) {
		if len(candidates) == 0 || latency < 0 {
			return candidates, nil
		}
		min := time.Duration(-1)
		for _, s := range candidates {
			if !s.AverageRTTSet {
				continue
			}
			if min == -1 || s.AverageRTT < min {
				min = s.AverageRTT
			}
		}
		if min == -1 {
			return candidates, nil
		}
		out := make([]Server, 0, len(candidates))
		for _, s := range candidates {
			if !s.AverageRTTSet || s.AverageRTT <= min+latency {
				out = append(out, s)
			}
		}
		return out, nil
	})
}

// ReadPrefSelector filters servers suitable for the given read
// preference. On a Single topology (direct connection) it passes every
// candidate through unfiltered, matching the real driver's slaveOK
// behavior for standalone deployments.
func ReadPrefSelector(rp *readpref.ReadPref) ServerSelector {
	return ServerSelectorFunc(func(t Topology, candidates []Server) ([]Server, error) {
		if t.Kind == Single || rp == nil {
			return candidates, nil
		}
		if t.Kind == Sharded || t.Kind == LoadBalanced {
			// Any mongos (or the load balancer) can route the read
			// preference itself; the core does not need to filter.
			return candidates, nil
		}
		mode := rp.Mode()
		out := make([]Server, 0, len(candidates))
		for _, s := range candidates {
			switch mode {
			case readpref.PrimaryMode:
				if s.Kind == RSPrimary {
					out = append(out, s)
				}
			case readpref.PrimaryPreferredMode:
				out = append(out, s)
			case readpref.SecondaryMode:
				if s.Kind == RSSecondary {
					out = append(out, s)
				}
			case readpref.SecondaryPreferredMode, readpref.NearestMode:
				out = append(out, s)
			default:
				out = append(out, s)
			}
		}
		if mode == readpref.PrimaryPreferredMode {
			for _, s := range out {
				if s.Kind == RSPrimary {
					return []Server{s}, nil
				}
			}
		}
		if mode == readpref.SecondaryPreferredMode {
			var secondaries []Server
			for _, s := range out {
				if s.Kind == RSSecondary {
					secondaries = append(secondaries, s)
				}
			}
			if len(secondaries) > 0 {
				return secondaries, nil
			}
		}
		return out, nil
	})
}

// WriteSelector selects servers suitable for a write that may be routed
// to a secondary-like member (e.g. an aggregate $out/$merge stage on a
// sharded cluster, which mongos may route away from the primary shard).
// It is parameterized by the topology's common wire version: below the
// sharded-transactions wire version, it ignores rp and selects the
// primary only.
func WriteSelector(commonWireVersion int32, rp *readpref.ReadPref) ServerSelector {
	if commonWireVersion < ShardedTransactionsWireVersion {
		return ReadPrefSelector(readpref.Primary())
	}
	return ReadPrefSelector(rp)
}

// SameServerSelector selects only the named server, if still present in
// the candidate set, so a cursor-iterating operation continues to
// target the server it was created on. It matches by address only and
// does not check the server's kind, so a server whose description has
// become Unknown is still selected.
func SameServerSelector(addr string) ServerSelector {
	return ServerSelectorFunc(func(_ Topology, candidates []Server) ([]Server, error) {
		for _, s := range candidates {
			if s.Addr == addr {
				return []Server{s}, nil
			}
		}
		return nil, nil
	})
}
