// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driver implements the Operation Execution Core: given an
// Operation and a Deployment (the Execution Core's view of the
// Topology subsystem), it decides where to run the operation, whether
// to attach session state, whether to retry, and how to classify any
// resulting error.
//
// Everything the core consumes from its collaborators — Topology, the
// Session Pool, the Wire Protocol Codec, and concrete operations — is
// reached only through the narrow contracts in this file, matching
// spec §6.
package driver

import (
	"context"

	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/uuid"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// Deployment is implemented by the Topology subsystem. It is the only
// way the core reaches outside of itself to find a server.
type Deployment interface {
	// SelectServer blocks until a server matching selector is available,
	// or ctx is done.
	SelectServer(ctx context.Context, selector description.ServerSelector) (Server, error)

	// ShouldCheckForSessionSupport reports whether the deployment has
	// not yet performed the discovery round trip needed to know if the
	// cluster supports sessions at all (spec §4.1 step 1).
	ShouldCheckForSessionSupport() bool

	// HasSessionSupport reports whether the cluster supports logical
	// sessions, once discovery has happened.
	HasSessionSupport() bool

	// StartSession mints a new logical session via the Session Pool,
	// tagged as implicit or explicit.
	StartSession(owner *uuid.UUID, typ session.Type) (*session.Client, error)

	// SupportsSnapshotReads reports whether every server in the cluster
	// can serve a snapshot read.
	SupportsSnapshotReads() bool

	// CommonWireVersion is the lowest max wire version across every
	// server in the cluster.
	CommonWireVersion() int32

	// RetryReads/RetryWrites mirror the deployment-level options the
	// Retry Policy consults (spec §4.2's willRetryRead/willRetryWrite
	// gates; spec §9 notes reads default-on, writes default-off).
	RetryReads() bool
	RetryWrites() bool
}

// Server is a handle to one selected network endpoint.
type Server interface {
	// Connection checks out a connection to this server.
	Connection(ctx context.Context) (Connection, error)
	// Description returns this server's last-known description.
	Description() description.SelectedServer
}

// Connection represents an established connection to a MongoDB server,
// post wire-handshake and (if applicable) post-authentication. Framing
// and decoding the wire messages that flow over it is the Wire Protocol
// Codec's job, not the core's; the core only asks a Connection to write
// an already-encoded wire message and read back the raw response.
type Connection interface {
	// WriteWireMessage writes an already-encoded wire message.
	WriteWireMessage(ctx context.Context, wm []byte) error
	// ReadWireMessage reads the next wire message, appending it to dst.
	ReadWireMessage(ctx context.Context, dst []byte) ([]byte, error)
	Close() error
	ID() string
	Description() description.Server
}
