// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package driver

import (
	"context"
	"time"

	"github.com/skrtheboss/mongo-go-driver/mongo/readconcern"
	"github.com/skrtheboss/mongo-go-driver/mongo/readpref"
	"github.com/skrtheboss/mongo-go-driver/mongo/writeconcern"
	"github.com/skrtheboss/mongo-go-driver/x/bsonx/bsoncore"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/session"
	"github.com/skrtheboss/mongo-go-driver/x/mongo/driver/uuid"
	"github.com/skrtheboss/mongo-go-driver/x/network/description"
)

// Options is the mutable options bag an Operation carries (spec §3
// Operation (v)). The core's only write to it is WillRetryWrite, set
// immediately before a retry-armed write's first attempt so the
// outgoing command can carry it.
type Options struct {
	WillRetryWrite bool
}

// Operation is the request the caller wishes to perform: the data
// model described in spec §3. It is created by the caller and
// destroyed when Execute returns.
type Operation struct {
	// CommandFn builds the outgoing command bytes for the server
	// description that was selected. It is the one hook into a concrete
	// operation implementation (insert, find, aggregate, ...), which is
	// out of the Execution Core's scope (spec §1 Out-of-scope (d)).
	CommandFn func(dst []byte, desc description.SelectedServer) ([]byte, error)

	// ProcessResponseFn, if set, is given the raw server response after
	// a successful attempt, together with the server and server
	// description it ran against.
	ProcessResponseFn func(response bsoncore.Document, srvr Server, desc description.SelectedServer) error

	Deployment Deployment
	Database   string

	// Selector, if set, overrides the aspect-driven selector resolution
	// in selectorFor entirely — an escape hatch for callers that already
	// know exactly which selector an operation needs.
	Selector description.ServerSelector

	ReadPreference *readpref.ReadPref
	ReadConcern    *readconcern.ReadConcern
	WriteConcern   *writeconcern.WriteConcern

	Client *session.Client
	Clock  *session.ClusterClock

	// Aspects are the capability flags this operation carries (spec §3
	// (i), §9 "aspect set as polymorphism").
	Aspects []Aspect

	// CanRetryRead/CanRetryWrite/TrySecondaryWrite are set by the
	// operation's author (spec §3 (vi)).
	CanRetryRead      bool
	CanRetryWrite     bool
	TrySecondaryWrite bool

	// Opts is the mutable options bag (spec §3 (v)).
	Opts Options
}

func (op Operation) aspectSet() aspectSet { return newAspectSet(op.Aspects...) }

func (op Operation) readPref() *readpref.ReadPref {
	if op.ReadPreference != nil {
		return op.ReadPreference
	}
	return readpref.Primary()
}

// Validate reports whether op is well-formed (spec §4.1 step 1).
func (op Operation) Validate() error {
	if op.CommandFn == nil {
		return InvalidOperationError{MissingField: "CommandFn"}
	}
	if op.Deployment == nil {
		return InvalidOperationError{MissingField: "Deployment"}
	}
	if op.Database == "" {
		return InvalidOperationError{MissingField: "Database"}
	}
	return nil
}

// selectorFor resolves the Selector Resolver's choice of selector (spec
// §4.2 "Selector choice" table).
func (op Operation) selectorFor() description.ServerSelector {
	if op.Selector != nil {
		return op.Selector
	}
	switch {
	case op.aspectSet().has(CursorIterating):
		addr := ""
		if op.Client != nil {
			addr = op.Client.PinnedServer
		}
		return description.SameServerSelector(addr)
	case op.TrySecondaryWrite:
		return description.WriteSelector(op.Deployment.CommonWireVersion(), op.readPref())
	default:
		return description.CompositeSelector([]description.ServerSelector{
			description.ReadPrefSelector(op.readPref()),
			description.LatencySelector(15 * time.Millisecond),
		})
	}
}

// selectServer validates op and asks the Deployment to select a server
// with the resolved selector. Execute does not call it: its discovery
// step selects with a primaryPreferred selector, and its attempt selects
// in executeWithSelection.
func (op Operation) selectServer(ctx context.Context) (Server, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return op.Deployment.SelectServer(ctx, op.selectorFor())
}

// Execute runs the full pipeline described in spec §4.1: validate,
// acquire a session, select a server and execute (with at most one
// retry), then tear down any session this call created.
func (op *Operation) Execute(ctx context.Context) (response bsoncore.Document, err error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	// Step 1: force discovery before the first real attempt.
	for op.Deployment.ShouldCheckForSessionSupport() {
		if _, discErr := op.Deployment.SelectServer(ctx, description.ReadPrefSelector(readpref.PrimaryPreferred())); discErr != nil {
			return nil, discErr
		}
	}

	// Step 2: session acquisition.
	var implicitOwner *uuid.UUID
	if op.Client != nil {
		if !op.Deployment.HasSessionSupport() {
			return nil, CompatibilityError("an explicit session was provided, but this deployment does not support sessions")
		}
		if op.Client.Ended() {
			return nil, ExpiredSessionError()
		}
		if op.Client.SnapshotEnabled() && !op.Deployment.SupportsSnapshotReads() {
			return nil, CompatibilityError("snapshot reads are not supported by this deployment")
		}
	} else if op.Deployment.HasSessionSupport() {
		owner, genErr := uuid.New()
		if genErr != nil {
			return nil, RuntimeError(genErr)
		}
		implicitOwner = &owner
		sess, startErr := op.Deployment.StartSession(implicitOwner, session.Implicit)
		if startErr != nil {
			return nil, startErr
		}
		op.Client = sess
	}

	// Step 4 (teardown) is guaranteed on every exit path below,
	// including a panic unwinding through the inner pipeline (spec §9
	// "exception-to-teardown coupling").
	defer func() {
		sess := op.Client
		ownsSession := implicitOwner != nil && sess != nil && sess.OwnedBy(implicitOwner)
		if r := recover(); r != nil {
			if ownsSession {
				sess.EndSession()
			}
			panic(r)
		}
		if ownsSession {
			// The execution error, if any, always wins over an
			// end-session failure (spec §4.1 step 4, §7 Propagation).
			// Ending a session in this slice is in-process bookkeeping
			// on the Session Pool and cannot itself fail, but the shape
			// is kept so a codec-backed endSessions command could wire
			// in here without changing this function's contract.
			sess.EndSession()
		}
	}()

	return op.executeWithSelection(ctx)
}

// executeWithSelection is the inner state machine (spec §4.2): pre-flight
// constraints, selector choice, first attempt, and — if armed and the
// first attempt fails — handing off to the Retry Policy.
func (op *Operation) executeWithSelection(ctx context.Context) (bsoncore.Document, error) {
	sess := op.Client

	if sess != nil {
		if sess.TransactionRunning() && op.readPref().Mode() != readpref.PrimaryMode {
			return nil, TransactionError("read preference in a transaction must be primary")
		}
		if sess.PinnedServer != "" && sess.TransactionCommitted() && !op.aspectSet().has(BypassPinningCheck) {
			sess.Unpin()
		}
	}

	selector := op.selectorFor()

	server, err := op.Deployment.SelectServer(ctx, selector)
	if err != nil {
		return nil, err
	}

	desc := server.Description()

	retryType := RetryNone
	var snapshotWireMax int32
	if op.aspectSet().has(Retryable) && sess != nil {
		retryType = op.retryable(desc.Server)
		if retryType != RetryNone {
			// Snapshot the wire version before the attempt: the server
			// may be marked Unknown by the very error we are about to
			// observe, losing this information (spec §4.2, invariant 6).
			snapshotWireMax = wireMax(desc.WireVersion)
			if retryType == RetryWrite {
				op.Opts.WillRetryWrite = true
				sess.IncrementTxnNumber()
			}
		}
	}

	resp, attemptErr := op.attempt(ctx, server, desc)

	if sess != nil && sess.TransactionStarting() {
		pinAddr := ""
		if desc.Kind == description.Sharded || desc.Kind == description.LoadBalanced {
			pinAddr = desc.Addr
		}
		sess.ApplyCommand(pinAddr)
	}

	if attemptErr == nil {
		return resp, nil
	}

	if _, ok := attemptErr.(Error); !ok {
		// A programmer error, not a protocol-layer failure: surface
		// unchanged (spec §4.2).
		return nil, attemptErr
	}

	if retryType == RetryNone {
		return nil, attemptErr
	}

	rr := op.retry(ctx, retryType, attemptErr, snapshotWireMax, selector)
	if rr.err != nil {
		return nil, rr.err
	}
	return rr.response, nil
}

// attempt runs one full round trip of this operation against server:
// check out a connection, build the command, send it, and process the
// response.
func (op *Operation) attempt(ctx context.Context, server Server, desc description.SelectedServer) (bsoncore.Document, error) {
	conn, err := server.Connection(ctx)
	if err != nil {
		return nil, NetworkError(err.Error())
	}
	defer conn.Close()

	wm, err := op.CommandFn(nil, desc)
	if err != nil {
		return nil, err
	}

	resp, err := op.roundTrip(ctx, conn, wm)
	if err != nil {
		return nil, err
	}

	op.updateClusterTimes(resp)
	op.updateOperationTime(resp)

	if op.ProcessResponseFn != nil {
		if err := op.ProcessResponseFn(resp, server, desc); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// roundTrip writes wm to conn and reads back the response, wrapping any
// transport failure as a network Error carrying both the network and
// transient-transaction labels.
func (op Operation) roundTrip(ctx context.Context, conn Connection, wm []byte) ([]byte, error) {
	if err := conn.WriteWireMessage(ctx, wm); err != nil {
		return nil, NetworkError(err.Error())
	}
	res, err := conn.ReadWireMessage(ctx, wm[:0])
	if err != nil {
		return nil, NetworkError(err.Error())
	}
	return res, nil
}

func wireMax(vr *description.VersionRange) int32 {
	if vr == nil {
		return 0
	}
	return vr.Max
}

// addReadConcern appends a readConcern element to dst, if one applies.
// A starting transaction's read concern overrides whatever the
// operation itself requested.
func (op Operation) addReadConcern(dst []byte, desc description.SelectedServer) ([]byte, error) {
	rc := op.ReadConcern
	if op.Client != nil && op.Client.TransactionStarting() {
		if crc, ok := op.Client.CurrentRc.(*readconcern.ReadConcern); ok && crc != nil {
			rc = crc
		}
	}
	if rc == nil {
		return dst, nil
	}
	elem, err := rc.MarshalBSONValue()
	if err != nil {
		return dst, err
	}
	if elem == nil {
		return dst, nil
	}
	return bsoncore.AppendDocumentElement(dst, "readConcern", elem), nil
}

// addWriteConcern appends a writeConcern element to dst, if one applies.
func (op Operation) addWriteConcern(dst []byte) ([]byte, error) {
	if op.WriteConcern == nil {
		return dst, nil
	}
	elem, err := op.WriteConcern.MarshalBSONValue()
	if err != nil {
		return dst, err
	}
	if elem == nil {
		return dst, nil
	}
	return bsoncore.AppendDocumentElement(dst, "writeConcern", elem), nil
}

// addClusterTime appends the greater of the session's and the cluster
// clock's $clusterTime, if the selected server is new enough to
// understand it.
func (op Operation) addClusterTime(dst []byte, desc description.SelectedServer) []byte {
	if desc.WireVersion == nil || desc.WireVersion.Max < WireVersionSupportsOpMsg {
		return dst
	}
	var clusterTime bsoncore.Document
	if op.Client != nil {
		clusterTime = op.Client.ClusterTime
	}
	if op.Clock != nil {
		if ct := op.Clock.GetClusterTime(); clusterTimeNewer(ct, clusterTime) {
			clusterTime = ct
		}
	}
	if len(clusterTime) == 0 {
		return dst
	}
	return bsoncore.AppendDocumentElement(dst, "$clusterTime", clusterTime)
}

func clusterTimeNewer(candidate, current bsoncore.Document) bool {
	if len(candidate) == 0 {
		return false
	}
	if len(current) == 0 {
		return true
	}
	_, ctVal, ok1 := bsoncore.Lookup(candidate, "clusterTime")
	_, curVal, ok2 := bsoncore.Lookup(current, "clusterTime")
	if !ok1 || !ok2 {
		return len(candidate) > len(current)
	}
	ct, ci, _ := bsoncore.ReadTimestamp(ctVal)
	curt, curi, _ := bsoncore.ReadTimestamp(curVal)
	if ct != curt {
		return ct > curt
	}
	return ci > curi
}

// updateClusterTimes advances both the session's and the cluster
// clock's view of $clusterTime from a server response.
func (op Operation) updateClusterTimes(response bsoncore.Document) {
	_, clusterTime, ok := bsoncore.Lookup(response, "$clusterTime")
	if !ok {
		return
	}
	if op.Client != nil {
		_ = op.Client.AdvanceClusterTime(clusterTime)
	}
	if op.Clock != nil {
		op.Clock.AdvanceClusterTime(clusterTime)
	}
}

// updateOperationTime advances the session's view of operationTime from
// a server response, for causal consistency.
func (op Operation) updateOperationTime(response bsoncore.Document) {
	if op.Client == nil {
		return
	}
	_, value, ok := bsoncore.Lookup(response, "operationTime")
	if !ok {
		return
	}
	t, i, ok := bsoncore.ReadTimestamp(value)
	if !ok {
		return
	}
	op.Client.AdvanceOperationTime(&session.Timestamp{T: t, I: i})
}

// createReadPref builds the $readPreference document implied by rp for
// the given server and topology kind. A nil document means "no read
// preference needs to be sent": a Single topology whose server is not a
// mongos, a nil rp on any other topology, or a secondaryPreferred rp
// without tags or max staleness sent to a mongos as an OP_QUERY-shaped
// command.
func (op Operation) createReadPref(serverKind description.ServerKind, topoKind description.TopologyKind, opQuery bool) bsoncore.Document {
	rp := op.ReadPreference

	if topoKind == description.Single && serverKind != description.Mongos {
		return nil
	}
	if rp == nil {
		if topoKind == description.Single {
			rp = readpref.PrimaryPreferred()
		} else {
			return nil
		}
	}

	if serverKind == description.Mongos && opQuery && rp.Mode() != readpref.PrimaryMode {
		if rp.Mode() == readpref.SecondaryPreferredMode && len(rp.TagSets()) == 0 && rp.MaxStaleness() == 0 {
			return nil
		}
	}

	switch rp.Mode() {
	case readpref.PrimaryMode:
		if topoKind == description.Single {
			return bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendStringElement(nil, "mode", "primaryPreferred"))
		}
		return bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendStringElement(nil, "mode", "primary"))
	case readpref.PrimaryPreferredMode:
		return bsoncore.BuildDocumentFromElements(nil, bsoncore.AppendStringElement(nil, "mode", "primaryPreferred"))
	case readpref.SecondaryMode:
		return appendTagsAndStaleness(rp, "secondary")
	case readpref.SecondaryPreferredMode:
		if serverKind == description.Mongos && opQuery && len(rp.TagSets()) == 0 && rp.MaxStaleness() == 0 {
			return nil
		}
		return appendTagsAndStaleness(rp, "secondaryPreferred")
	case readpref.NearestMode:
		return appendTagsAndStaleness(rp, "nearest")
	default:
		return nil
	}
}

func appendTagsAndStaleness(rp *readpref.ReadPref, mode string) bsoncore.Document {
	elems := [][]byte{bsoncore.AppendStringElement(nil, "mode", mode)}
	if len(rp.TagSets()) > 0 {
		var tagElems [][]byte
		for _, set := range rp.TagSets() {
			var kv [][]byte
			for k, v := range set {
				kv = append(kv, bsoncore.AppendStringElement(nil, k, v))
			}
			tagElems = append(tagElems, bsoncore.BuildDocumentFromElements(nil, kv...))
		}
		_ = tagElems // arrays are out of this minimal codec's scope, so
		// the tag sets are built but not encoded: the returned document
		// carries no tags.
	}
	if rp.MaxStaleness() > 0 {
		elems = append(elems, bsoncore.AppendInt32Element(nil, "maxStalenessSeconds", int32(rp.MaxStaleness()/time.Second)))
	}
	return bsoncore.BuildDocumentFromElements(nil, elems...)
}

// slaveOK reports whether the SlaveOK query flag should be set for an
// OP_QUERY-shaped command against the given server.
func (op Operation) slaveOK(desc description.SelectedServer) bool {
	if desc.Kind == description.Single && desc.Server.Kind != description.Mongos {
		return true
	}
	if op.ReadPreference != nil && op.ReadPreference.Mode() != readpref.PrimaryMode {
		return true
	}
	return false
}
